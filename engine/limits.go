package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxColumnCount defines the maximum number of columns allowed in a table
const MaxColumnCount = 2000

// MaxFileNameLength defines the maximum length of a virtual file name
const MaxFileNameLength = 255

// maxLogLength limits how much of a statement is echoed into logs and errors
const maxLogLength = 200

// ValidateColumnCount checks if the number of columns is within acceptable limits
func ValidateColumnCount(columnCount int) error {
	if columnCount > MaxColumnCount {
		return fmt.Errorf("%w: %d > %d", ErrTooManyColumns, columnCount, MaxColumnCount)
	}
	return nil
}

// ValidateFileName checks that a virtual file name is usable inside a
// quoted SQL string literal.
func ValidateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrInvalidFileName
	case len(name) > MaxFileNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidFileName, MaxFileNameLength)
	case strings.ContainsAny(name, "\x00'\n\r"):
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidFileName)
	}
	return nil
}

// ValidateStorePath checks the store path before it is handed to SQLite.
func ValidateStorePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty store path", ErrInvalidFileName)
	}
	// '?' would start the DSN query string
	if strings.ContainsAny(path, "\x00?") {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, path)
	}
	return nil
}

// SanitizeForLog shortens a statement before it is written to a log or error.
func SanitizeForLog(input string) string {
	result := strings.Join(strings.Fields(input), " ")
	if len(result) > maxLogLength {
		result = result[:maxLogLength] + "..."
	}
	return result
}
