package tablepad

import (
	"context"
)

// ResultSet is a fully materialized query result in row order.
// Columns is empty when there are no rows.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	return len(r.Rows)
}

// Records returns every row as a map from column name to value.
func (r *ResultSet) Records() []map[string]any {
	records := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			rec[col] = row[j]
		}
		records[i] = rec
	}
	return records
}

// Value returns the cell at row and the named column.
func (r *ResultSet) Value(row int, column string) (any, bool) {
	if row < 0 || row >= len(r.Rows) {
		return nil, false
	}
	for j, col := range r.Columns {
		if col == column {
			return r.Rows[row][j], true
		}
	}
	return nil, false
}

// Execute runs query and returns its full result. Blank input runs
// SHOW TABLES. Any engine error fails the whole execution.
func Execute(ctx context.Context, conn *Connection, query string) (*ResultSet, error) {
	res, err := conn.Query(ctx, normalizeQuery(query))
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{
		Columns: []string{},
		Rows:    [][]any{},
	}
	if res.Len() == 0 {
		return rs, nil
	}
	rs.Columns = res.Columns
	rs.Rows = res.Rows
	return rs, nil
}
