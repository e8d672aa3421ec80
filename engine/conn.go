package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/tablepad/domain/model"
)

// countColumn names the single column returned by CREATE ... AS and COPY.
const countColumn = "Count"

// Conn is the logical connection of a Database.
type Conn struct {
	db     *Database
	conn   *sql.Conn
	mu     sync.Mutex
	closed bool
}

// Close releases the logical connection. Closing twice is not an error.
func (c *Conn) Close() error {
	c.db.release(c)
	return c.closeUnderlying()
}

func (c *Conn) closeUnderlying() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Query runs one statement and returns its full result.
func (c *Conn) Query(ctx context.Context, query string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}

	if stmt, ok := parseCreateFrom(query); ok {
		return c.createFrom(ctx, stmt)
	}
	if isCopy(query) {
		stmt, err := parseCopy(query)
		if err != nil {
			return nil, err
		}
		return c.copyTo(ctx, stmt)
	}
	return c.run(ctx, query)
}

// run executes SHOW TABLES or a plain SQLite statement.
func (c *Conn) run(ctx context.Context, query string) (*Result, error) {
	if isShowTables(query) {
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}
	if !returnsRows(query) {
		r, err := c.conn.ExecContext(ctx, query)
		if err != nil {
			return nil, err
		}
		n, _ := r.RowsAffected() // modernc always reports it
		return &Result{RowsAffected: n}, nil
	}

	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// collect reads every row of rows.
func collect(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	res := &Result{
		Columns: columns,
		Types:   make([]string, len(columns)),
		Rows:    [][]any{},
	}
	if types, err := rows.ColumnTypes(); err == nil {
		for i, t := range types {
			res.Types[i] = t.DatabaseTypeName()
		}
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// normalize maps driver values onto int64, float64, string, []byte, bool or nil.
func normalize(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// createFrom materializes a registered buffer into a new table.
func (c *Conn) createFrom(ctx context.Context, stmt *createFromStatement) (*Result, error) {
	data, err := c.db.CopyFileToBuffer(stmt.source)
	if err != nil {
		return nil, err
	}
	table, err := decode(ctx, stmt.format, data)
	if err != nil {
		return nil, fmt.Errorf("%s('%s'): %w", stmt.format.ReaderFunction(), stmt.source, err)
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()

	if err := createTable(ctx, tx, stmt, table); err != nil {
		return nil, err
	}
	n, err := insertRecords(ctx, tx, stmt.table, table)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return countResult(n), nil
}

func createTable(ctx context.Context, tx *sql.Tx, stmt *createFromStatement, table *model.Table) error {
	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		defs[i] = col.Definition()
	}
	ifNotExists := ""
	if stmt.ifNotExists {
		ifNotExists = "IF NOT EXISTS "
	}
	query := fmt.Sprintf("CREATE TABLE %s%s (%s)", ifNotExists, quoteIdent(stmt.table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", stmt.table, err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, tableName string, table *model.Table) (int64, error) {
	placeholders := make([]string, len(table.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(tableName), strings.Join(placeholders, ", "))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	var n int64
	for _, record := range table.Records {
		if _, err := stmt.ExecContext(ctx, record...); err != nil {
			return n, fmt.Errorf("failed to insert record %d: %w", n+1, err)
		}
		n++
	}
	return n, nil
}

// copyTo runs the inner query of a COPY statement and writes the encoded
// result to the virtual file system.
func (c *Conn) copyTo(ctx context.Context, stmt *copyStatement) (*Result, error) {
	if !isShowTables(stmt.query) && !returnsRows(stmt.query) {
		return nil, fmt.Errorf("%w: inner statement must be a query", ErrInvalidCopy)
	}
	res, err := c.run(ctx, stmt.query)
	if err != nil {
		return nil, err
	}
	if len(res.Columns) == 0 {
		return nil, fmt.Errorf("%w: inner statement returned no columns", ErrInvalidCopy)
	}

	data, err := encode(res, stmt)
	if err != nil {
		return nil, err
	}
	if err := c.db.RegisterFileBuffer(stmt.target, data); err != nil {
		return nil, err
	}
	return countResult(int64(res.Len())), nil
}

func countResult(n int64) *Result {
	return &Result{
		Columns:      []string{countColumn},
		Types:        []string{"INTEGER"},
		Rows:         [][]any{{n}},
		RowsAffected: n,
	}
}
