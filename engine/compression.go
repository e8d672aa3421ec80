package engine

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/nao1215/tablepad/domain/model"
)

// Magic numbers used to detect compressed buffers.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// detectCompression inspects the leading bytes of a buffer.
func detectCompression(data []byte) model.Compression {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return model.CompressionGZ
	case bytes.HasPrefix(data, zstdMagic):
		return model.CompressionZSTD
	case bytes.HasPrefix(data, xzMagic):
		return model.CompressionXZ
	default:
		return model.CompressionNone
	}
}

// createReader wraps reader with a decompression reader.
func createReader(reader io.Reader, c model.Compression) (io.Reader, func() error, error) {
	switch c {
	case model.CompressionNone:
		return reader, func() error { return nil }, nil

	case model.CompressionGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil

	case model.CompressionXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		// xz.Reader doesn't have a Close method
		return xzReader, func() error { return nil }, nil

	case model.CompressionZSTD:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error {
			decoder.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("%w: compression %v", ErrUnsupportedFormat, c)
	}
}

// createWriter wraps writer with a compression writer. The returned close
// function flushes the compressed stream.
func createWriter(writer io.Writer, c model.Compression) (io.Writer, func() error, error) {
	switch c {
	case model.CompressionNone:
		return writer, func() error { return nil }, nil

	case model.CompressionGZ:
		gzWriter := gzip.NewWriter(writer)
		return gzWriter, gzWriter.Close, nil

	case model.CompressionXZ:
		xzWriter, err := xz.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzWriter, xzWriter.Close, nil

	case model.CompressionZSTD:
		zstdWriter, err := zstd.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, zstdWriter.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: compression %v", ErrUnsupportedFormat, c)
	}
}

// decompress returns data unchanged unless it starts with a known magic number.
func decompress(data []byte) ([]byte, error) {
	c := detectCompression(data)
	if c == model.CompressionNone {
		return data, nil
	}
	reader, closeFn, err := createReader(bytes.NewReader(data), c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	defer func() { _ = closeFn() }()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress %s data: %w", ErrInvalidData, c, err)
	}
	return out, nil
}

// compress encodes data with c.
func compress(data []byte, c model.Compression) ([]byte, error) {
	if c == model.CompressionNone {
		return data, nil
	}
	var buf bytes.Buffer
	writer, closeFn, err := createWriter(&buf, c)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to write %s data: %w", c, err)
	}
	if err := closeFn(); err != nil {
		return nil, fmt.Errorf("failed to finish %s stream: %w", c, err)
	}
	return buf.Bytes(), nil
}
