package engine

// Result is the fully materialized outcome of one statement.
// Rows are in the order the engine produced them. Values are int64, float64,
// string, []byte, bool or nil.
type Result struct {
	// Columns holds the output column names in select order.
	Columns []string
	// Types holds the declared type of each column when the engine knows it.
	Types []string
	// Rows holds one slice of values per row.
	Rows [][]any
	// RowsAffected is set for statements that do not return rows.
	RowsAffected int64
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ColumnIndex returns the position of the named column or -1.
func (r *Result) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
