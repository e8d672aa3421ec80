// Package model provides the value types shared by the tablepad engine and
// the session pipeline: ingestion formats, export targets, and the header,
// record and column descriptions produced while reading uploaded files.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrDuplicateColumnName is returned when a file contains duplicate column names
var ErrDuplicateColumnName = errors.New("duplicate column name")

// Header is the ordered list of column names read from a file.
type Header []string

// NewHeader create new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// Equal compare Header.
func (h Header) Equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// Validate checks for duplicate column names.
// Comparison is case-insensitive because SQLite column names are.
func (h Header) Validate() error {
	seen := make(map[string]bool, len(h))
	for _, col := range h {
		key := strings.ToLower(strings.TrimSpace(col))
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumnName, col)
		}
		seen[key] = true
	}
	return nil
}

// Record is one row of values. A nil element is a SQL NULL.
type Record []any

// NewRecord create new Record.
func NewRecord(r ...any) Record {
	return Record(r)
}

// Equal compare Record.
func (r Record) Equal(r2 Record) bool {
	if len(r) != len(r2) {
		return false
	}
	for i, v := range r {
		if !reflect.DeepEqual(v, r2[i]) {
			return false
		}
	}
	return true
}

// ColumnType represents the SQL column type
type ColumnType int

const (
	// ColumnTypeText represents TEXT column type
	ColumnTypeText ColumnType = iota
	// ColumnTypeInteger represents INTEGER column type
	ColumnTypeInteger
	// ColumnTypeReal represents REAL column type
	ColumnTypeReal
	// ColumnTypeDatetime represents datetime stored as TEXT in ISO8601 format
	ColumnTypeDatetime
	// ColumnTypeBlob represents raw bytes
	ColumnTypeBlob
)

const (
	sqlTypeText    = "TEXT"
	sqlTypeInteger = "INTEGER"
	sqlTypeReal    = "REAL"
	sqlTypeBlob    = "BLOB"
)

// String returns the SQL column type string
func (ct ColumnType) String() string {
	switch ct {
	case ColumnTypeInteger:
		return sqlTypeInteger
	case ColumnTypeReal:
		return sqlTypeReal
	case ColumnTypeBlob:
		return sqlTypeBlob
	case ColumnTypeDatetime:
		return sqlTypeText // SQLite stores datetime as TEXT in ISO8601 format
	default:
		return sqlTypeText
	}
}

// ColumnInfo represents column information with name and inferred type
type ColumnInfo struct {
	Name string
	Type ColumnType
}

// Definition returns the column definition used in CREATE TABLE.
func (c ColumnInfo) Definition() string {
	return fmt.Sprintf(`"%s" %s`, strings.ReplaceAll(c.Name, `"`, `""`), c.Type)
}

// Table is a fully decoded file ready to be written into the store.
type Table struct {
	Columns []ColumnInfo
	Records []Record
}

// Header returns the column names of the table.
func (t *Table) Header() Header {
	h := make(Header, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Name
	}
	return h
}
