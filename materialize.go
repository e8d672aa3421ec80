package tablepad

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/tablepad/domain/model"
)

// MaterializeOutcome tells whether Materialize created the table.
type MaterializeOutcome int

const (
	// Created means a new table was built from the buffer
	Created MaterializeOutcome = iota + 1
	// SkippedExisting means a table with the same name already existed and
	// was left untouched
	SkippedExisting
)

// String returns the string representation of MaterializeOutcome
func (o MaterializeOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case SkippedExisting:
		return "skipped_existing"
	default:
		return "unknown"
	}
}

// Materialize creates tableName from data. The buffer is registered under
// the virtual name of format, then read with the matching reader function.
// If the table already exists it is not replaced: the first write wins.
// A decoding failure is returned as is, without cleanup.
func Materialize(ctx context.Context, conn *Connection, data []byte, tableName string, format model.Format) (MaterializeOutcome, error) {
	if tableName == "" {
		return 0, errors.New("tablepad: empty table name")
	}
	if err := conn.registerFileBuffer(format.VirtualName(), data); err != nil {
		return 0, err
	}

	exists, err := tableExists(ctx, conn, tableName)
	if err != nil {
		return 0, err
	}
	if exists {
		return SkippedExisting, nil
	}

	if _, err := conn.Query(ctx, createFromStatement(tableName, format)); err != nil {
		return 0, NewErrorContext("materialize", format.VirtualName()).
			WithTable(tableName).
			WithDetails(format.String()).
			Error(err)
	}
	return Created, nil
}

// tableExists checks the schema catalog for tableName.
func tableExists(ctx context.Context, conn *Connection, tableName string) (bool, error) {
	res, err := conn.Query(ctx, existsStatement(tableName))
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	return res.Len() > 0, nil
}
