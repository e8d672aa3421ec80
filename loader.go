package tablepad

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// LoadBytes reads r to the end into memory. It is single shot: a failed
// read is returned as a *ReadError and never retried.
func LoadBytes(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, &ReadError{Err: errors.New("nil reader")}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ReadError{Err: err}
	}
	return data, nil
}

// LoadFile reads the file at path into memory.
func LoadFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return nil, &ReadError{Name: filepath.Base(path), Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &ReadError{Name: filepath.Base(path), Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ReadError{Name: filepath.Base(path), Err: errors.New("not a regular file")}
	}

	data, err := LoadBytes(f)
	if err != nil {
		var re *ReadError
		if errors.As(err, &re) {
			re.Name = filepath.Base(path)
		}
		return nil, err
	}
	return data, nil
}
