package engine

import (
	"errors"

	"github.com/nao1215/tablepad/domain/model"
)

// Predefined errors
var (
	// ErrClosed is returned when a terminated database or closed connection is used
	ErrClosed = errors.New("tablepad engine: database is terminated")

	// ErrConnectionClosed is returned when a closed connection is used
	ErrConnectionClosed = errors.New("tablepad engine: connection is closed")

	// ErrConnectionInUse is returned when a second logical connection is requested
	ErrConnectionInUse = errors.New("tablepad engine: a connection is already open")

	// ErrStoreLocked is returned when another engine instance holds the store path
	ErrStoreLocked = errors.New("tablepad engine: store is in use by another engine instance")

	// ErrFileNotFound is returned when a virtual file is not registered
	ErrFileNotFound = errors.New("tablepad engine: virtual file not found")

	// ErrInvalidFileName is returned for an empty or malformed virtual file name
	ErrInvalidFileName = errors.New("tablepad engine: invalid virtual file name")

	// ErrEmptyData is returned when a registered buffer holds no columns
	ErrEmptyData = errors.New("tablepad engine: empty data source")

	// ErrInvalidData is returned when a registered buffer cannot be decoded
	ErrInvalidData = errors.New("tablepad engine: invalid data format")

	// ErrInvalidCopy is returned for a malformed COPY statement
	ErrInvalidCopy = errors.New("tablepad engine: invalid COPY statement")

	// ErrUnsupportedFormat is returned for an unknown reader function or COPY format
	ErrUnsupportedFormat = errors.New("tablepad engine: unsupported format")

	// ErrDuplicateColumnName is returned when a file contains duplicate column names
	ErrDuplicateColumnName = model.ErrDuplicateColumnName

	// ErrTooManyColumns is returned when a file has too many columns
	ErrTooManyColumns = errors.New("tablepad engine: too many columns")
)
