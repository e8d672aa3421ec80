package model

import (
	"fmt"
	"strings"
)

// OutputFormat represents the export file format
type OutputFormat int

const (
	// OutputFormatCSV is CSV with a header row and comma delimiter
	OutputFormatCSV OutputFormat = iota
	// OutputFormatJSON is newline delimited JSON records
	OutputFormatJSON
	// OutputFormatParquet is Apache Parquet
	OutputFormatParquet
	// OutputFormatXLSX is an Excel workbook with a single sheet
	OutputFormatXLSX
)

// String returns the string representation of OutputFormat.
// It is also the value of the FORMAT option in a COPY statement.
func (f OutputFormat) String() string {
	switch f {
	case OutputFormatJSON:
		return "json"
	case OutputFormatParquet:
		return "parquet"
	case OutputFormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

// Extension returns the file extension for the format.
// JSON exports keep the ".jsonl" extension because records are line delimited.
func (f OutputFormat) Extension() string {
	switch f {
	case OutputFormatJSON:
		return ".jsonl"
	case OutputFormatParquet:
		return ".parquet"
	case OutputFormatXLSX:
		return ".xlsx"
	default:
		return ".csv"
	}
}

// ContentType returns the MIME type of an exported artifact.
func (f OutputFormat) ContentType() string {
	switch f {
	case OutputFormatJSON:
		return "application/json"
	case OutputFormatParquet:
		return "application/octet-stream"
	case OutputFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain"
	}
}

// DefaultFileName returns the virtual output name used for exports.
func (f OutputFormat) DefaultFileName() string {
	return "output" + f.Extension()
}

// ParseOutputFormat parses a format name such as "csv" or "parquet".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return OutputFormatCSV, nil
	case "json", "jsonl", "ndjson":
		return OutputFormatJSON, nil
	case "parquet":
		return OutputFormatParquet, nil
	case "xlsx":
		return OutputFormatXLSX, nil
	default:
		return OutputFormatCSV, fmt.Errorf("unknown output format %q", s)
	}
}

// OutputFormatFromPath guesses the format from a file name extension,
// ignoring a trailing compression extension.
func OutputFormatFromPath(path string) (OutputFormat, bool) {
	p := strings.ToLower(path)
	for _, c := range []Compression{CompressionGZ, CompressionZSTD, CompressionXZ} {
		p = strings.TrimSuffix(p, c.Extension())
	}
	switch {
	case strings.HasSuffix(p, ".csv"):
		return OutputFormatCSV, true
	case strings.HasSuffix(p, ".jsonl"), strings.HasSuffix(p, ".json"), strings.HasSuffix(p, ".ndjson"):
		return OutputFormatJSON, true
	case strings.HasSuffix(p, ".parquet"):
		return OutputFormatParquet, true
	case strings.HasSuffix(p, ".xlsx"):
		return OutputFormatXLSX, true
	default:
		return OutputFormatCSV, false
	}
}

// Compression represents the compression applied to an exported artifact
type Compression int

const (
	// CompressionNone represents no compression
	CompressionNone Compression = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
	// CompressionXZ represents xz compression
	CompressionXZ
)

// String returns the string representation of Compression.
// It is also the value of the COMPRESSION option in a COPY statement.
func (c Compression) String() string {
	switch c {
	case CompressionGZ:
		return "gzip"
	case CompressionZSTD:
		return "zstd"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c Compression) Extension() string {
	switch c {
	case CompressionGZ:
		return ".gz"
	case CompressionZSTD:
		return ".zst"
	case CompressionXZ:
		return ".xz"
	default:
		return ""
	}
}

// ContentType returns the MIME type of a compressed artifact.
// It returns "" for CompressionNone.
func (c Compression) ContentType() string {
	switch c {
	case CompressionGZ:
		return "application/gzip"
	case CompressionZSTD:
		return "application/zstd"
	case CompressionXZ:
		return "application/x-xz"
	default:
		return ""
	}
}

// ParseCompression parses a compression name. The empty string is none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "uncompressed":
		return CompressionNone, nil
	case "gz", "gzip":
		return CompressionGZ, nil
	case "zst", "zstd":
		return CompressionZSTD, nil
	case "xz":
		return CompressionXZ, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}
