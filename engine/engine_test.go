package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Terminate() })
	return db
}

func connectTest(t *testing.T, db *Database) *Conn {
	t.Helper()
	conn, err := db.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mustQuery(t *testing.T, conn *Conn, query string) *Result {
	t.Helper()
	res, err := conn.Query(context.Background(), query)
	require.NoError(t, err, query)
	return res
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("second instance on the same path is rejected until terminate", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "store.db")

		first, err := Open(ctx, Config{Path: path})
		require.NoError(t, err)

		_, err = Open(ctx, Config{Path: path})
		require.ErrorIs(t, err, ErrStoreLocked)

		require.NoError(t, first.Terminate())

		second, err := Open(ctx, Config{Path: path})
		require.NoError(t, err)
		assert.NoError(t, second.Terminate())
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := Open(context.Background(), Config{Path: " "})
		assert.ErrorIs(t, err, ErrInvalidFileName)
	})

	t.Run("read only store rejects writes", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "store.db")

		rw, err := Open(ctx, Config{Path: path})
		require.NoError(t, err)
		conn, err := rw.Connect(ctx)
		require.NoError(t, err)
		_, err = conn.Query(ctx, "CREATE TABLE t (a INTEGER)")
		require.NoError(t, err)
		require.NoError(t, rw.Terminate())

		ro, err := Open(ctx, Config{Path: path, AccessMode: AccessModeReadOnly})
		require.NoError(t, err)
		defer func() { _ = ro.Terminate() }()
		conn, err = ro.Connect(ctx)
		require.NoError(t, err)

		_, err = conn.Query(ctx, "INSERT INTO t VALUES (1)")
		assert.Error(t, err)
		res, err := conn.Query(ctx, "SHOW TABLES")
		require.NoError(t, err)
		assert.Equal(t, [][]any{{"t"}}, res.Rows)
	})
}

func TestDatabase_Connect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDatabase(t)

	conn, err := db.Connect(ctx)
	require.NoError(t, err)

	_, err = db.Connect(ctx)
	require.ErrorIs(t, err, ErrConnectionInUse)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "closing twice is allowed")

	_, err = conn.Query(ctx, "SELECT 1")
	require.ErrorIs(t, err, ErrConnectionClosed)

	again, err := db.Connect(ctx)
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestDatabase_Terminate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "store.db")})
	require.NoError(t, err)
	conn, err := db.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, db.RegisterFileBuffer("uploaded_csv", []byte("a\n1\n")))

	require.NoError(t, db.Terminate())
	assert.True(t, db.Terminated())
	assert.NoError(t, db.Terminate(), "terminate is idempotent")

	_, err = conn.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = db.Connect(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = db.CopyFileToBuffer("uploaded_csv")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, db.RegisterFileBuffer("x", nil), ErrClosed)
}

func TestDatabase_VirtualFiles(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)

	_, err := db.CopyFileToBuffer("missing.csv")
	require.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, db.RegisterFileBuffer("a.csv", []byte("first")))
	require.NoError(t, db.RegisterFileBuffer("a.csv", []byte("second")))
	got, err := db.CopyFileToBuffer("a.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, db.DropFile("a.csv"))
	require.NoError(t, db.DropFile("a.csv"))
	_, err = db.CopyFileToBuffer("a.csv")
	assert.ErrorIs(t, err, ErrFileNotFound)

	assert.ErrorIs(t, db.RegisterFileBuffer("", []byte("x")), ErrInvalidFileName)
	assert.ErrorIs(t, db.RegisterFileBuffer("it's.csv", []byte("x")), ErrInvalidFileName)
}

func TestConn_ShowTables(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)

	res := mustQuery(t, conn, "SHOW TABLES;")
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Equal(t, 0, res.Len())

	mustQuery(t, conn, "CREATE TABLE zeta (a INTEGER)")
	mustQuery(t, conn, "CREATE TABLE alpha (a INTEGER)")

	res = mustQuery(t, conn, "show tables")
	assert.Equal(t, [][]any{{"alpha"}, {"zeta"}}, res.Rows)
}

func TestConn_CreateFromCSV(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	require.NoError(t, db.RegisterFileBuffer("uploaded_csv", []byte("id,name,amount,day\n1,alice,10.5,2024-01-02\n2,bob,,2024-01-03\n")))

	res := mustQuery(t, conn, `CREATE TABLE "sales data" AS SELECT * FROM read_csv('uploaded_csv');`)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)

	res = mustQuery(t, conn, `SELECT id, name, amount, day FROM "sales data" ORDER BY id`)
	assert.Equal(t, []string{"id", "name", "amount", "day"}, res.Columns)
	assert.Equal(t, []string{"INTEGER", "TEXT", "REAL", "TEXT"}, res.Types)
	assert.Equal(t, [][]any{
		{int64(1), "alice", 10.5, "2024-01-02"},
		{int64(2), "bob", nil, "2024-01-03"},
	}, res.Rows)
}

func TestConn_CreateFromCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "empty buffer", data: "", wantErr: ErrEmptyData},
		{name: "duplicate header", data: "a,A\n1,2\n", wantErr: ErrDuplicateColumnName},
		{name: "ragged rows", data: "a,b\n1\n", wantErr: ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := openTestDatabase(t)
			conn := connectTest(t, db)
			require.NoError(t, db.RegisterFileBuffer("uploaded_csv", []byte(tt.data)))

			_, err := conn.Query(context.Background(), "CREATE TABLE t AS SELECT * FROM read_csv('uploaded_csv')")
			require.ErrorIs(t, err, tt.wantErr)

			res := mustQuery(t, conn, "SHOW TABLES")
			assert.Equal(t, 0, res.Len(), "no table is left behind")
		})
	}
}

func TestConn_CreateFromMissingBuffer(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)

	_, err := conn.Query(context.Background(), "CREATE TABLE t AS SELECT * FROM read_parquet('uploaded_parquet')")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestConn_CreateFromJSON(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	data := `{"id":1,"ok":true,"score":1.5,"tags":["x","y"]}
{"id":2,"ok":false,"score":2,"note":"late"}

{"id":3,"ok":null}
`
	require.NoError(t, db.RegisterFileBuffer("uploaded_json", []byte(data)))
	mustQuery(t, conn, "CREATE TABLE events AS SELECT * FROM read_json('uploaded_json')")

	res := mustQuery(t, conn, "SELECT * FROM events ORDER BY id")
	assert.Equal(t, []string{"id", "ok", "score", "tags", "note"}, res.Columns)
	assert.Equal(t, [][]any{
		{int64(1), int64(1), 1.5, `["x","y"]`, nil},
		{int64(2), int64(0), 2.0, nil, "late"},
		{int64(3), nil, nil, nil, nil},
	}, res.Rows)
}

func TestConn_CSVAndJSONAgree(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	csv := "id,sold_on,note,score\n1,2024-01-02,early,1.5\n2,,,\n3,2024-01-04,late,2\n"
	jsonl := `{"id":1,"sold_on":"2024-01-02","note":"early","score":1.5}
{"id":2,"sold_on":null,"note":null}
{"id":3,"sold_on":"2024-01-04","note":"late","score":2}
`
	require.NoError(t, db.RegisterFileBuffer("uploaded_csv", []byte(csv)))
	require.NoError(t, db.RegisterFileBuffer("uploaded_json", []byte(jsonl)))
	mustQuery(t, conn, "CREATE TABLE from_csv AS SELECT * FROM read_csv('uploaded_csv')")
	mustQuery(t, conn, "CREATE TABLE from_json AS SELECT * FROM read_json('uploaded_json')")

	fromCSV := mustQuery(t, conn, "SELECT * FROM from_csv ORDER BY id")
	fromJSON := mustQuery(t, conn, "SELECT * FROM from_json ORDER BY id")
	assert.Equal(t, fromCSV.Types, fromJSON.Types)
	assert.Equal(t, [][]any{
		{int64(1), "2024-01-02", "early", 1.5},
		{int64(2), nil, nil, nil},
		{int64(3), "2024-01-04", "late", 2.0},
	}, fromCSV.Rows)
	assert.Equal(t, fromCSV.Rows, fromJSON.Rows)
}

func TestConn_CreateFromJSON_Invalid(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	require.NoError(t, db.RegisterFileBuffer("uploaded_json", []byte("{\"a\":1}\n{\"a\":\n")))

	_, err := conn.Query(context.Background(), "CREATE TABLE t AS SELECT * FROM read_json('uploaded_json')")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestConn_CopyCSV(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	mustQuery(t, conn, "CREATE TABLE sales (id INTEGER, amount INTEGER, label TEXT)")
	mustQuery(t, conn, "INSERT INTO sales VALUES (1, 10, 'a,b'), (2, 20, NULL)")

	res := mustQuery(t, conn, "COPY (SELECT * FROM sales ORDER BY id) TO 'output.csv' (HEADER, DELIMITER ',')")
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)

	got, err := db.CopyFileToBuffer("output.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,amount,label\n1,10,\"a,b\"\n2,20,\n", string(got))

	mustQuery(t, conn, "COPY (SELECT id FROM sales ORDER BY id) TO 'output.csv' (HEADER false, DELIMITER '|')")
	got, err = db.CopyFileToBuffer("output.csv")
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", string(got))
}

func TestConn_CopyJSON(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	mustQuery(t, conn, "CREATE TABLE sales (id INTEGER, amount INTEGER)")
	mustQuery(t, conn, "INSERT INTO sales VALUES (1, 10), (2, 20)")

	mustQuery(t, conn, "COPY (SELECT SUM(amount) AS total FROM sales) TO 'output.jsonl' (FORMAT JSON)")
	got, err := db.CopyFileToBuffer("output.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "{\"total\":30}\n", string(got))
}

func TestConn_ParquetRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	require.NoError(t, db.RegisterFileBuffer("uploaded_csv", []byte("id,amount,name\n1,10.5,alice\n2,,bob\n")))
	mustQuery(t, conn, "CREATE TABLE src AS SELECT * FROM read_csv('uploaded_csv')")

	mustQuery(t, conn, "COPY (SELECT * FROM src) TO 'output.parquet' (FORMAT PARQUET)")
	data, err := db.CopyFileToBuffer("output.parquet")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PAR1")))

	require.NoError(t, db.RegisterFileBuffer("uploaded_parquet", data))
	mustQuery(t, conn, "CREATE TABLE dst AS SELECT * FROM read_parquet('uploaded_parquet')")

	src := mustQuery(t, conn, "SELECT * FROM src ORDER BY id")
	dst := mustQuery(t, conn, "SELECT * FROM dst ORDER BY id")
	assert.Equal(t, src.Columns, dst.Columns)
	assert.Equal(t, src.Rows, dst.Rows)
}

func TestConn_ParquetEmptyResult(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	mustQuery(t, conn, "CREATE TABLE t (a INTEGER, b TEXT)")

	res := mustQuery(t, conn, "COPY (SELECT * FROM t) TO 'output.parquet'")
	assert.Equal(t, [][]any{{int64(0)}}, res.Rows)

	data, err := db.CopyFileToBuffer("output.parquet")
	require.NoError(t, err)
	require.NoError(t, db.RegisterFileBuffer("uploaded_parquet", data))
	mustQuery(t, conn, "CREATE TABLE u AS SELECT * FROM read_parquet('uploaded_parquet')")

	out := mustQuery(t, conn, "SELECT * FROM u")
	assert.Equal(t, []string{"a", "b"}, out.Columns)
	assert.Equal(t, 0, out.Len())
}

func TestConn_CopyXLSX(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	mustQuery(t, conn, "CREATE TABLE t (id INTEGER, name TEXT)")
	mustQuery(t, conn, "INSERT INTO t VALUES (1, 'alice'), (2, 'bob')")

	mustQuery(t, conn, "COPY (SELECT * FROM t ORDER BY id) TO 'output.xlsx' (FORMAT xlsx)")
	data, err := db.CopyFileToBuffer("output.xlsx")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(xlsxSheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "name"}, {"1", "alice"}, {"2", "bob"}}, rows)
}

func TestConn_CopyCompressed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		option string
		target string
		magic  []byte
	}{
		{name: "gzip", option: "COMPRESSION gzip", target: "output.csv.gz", magic: gzipMagic},
		{name: "zstd", option: "COMPRESSION zstd", target: "output.csv.zst", magic: zstdMagic},
		{name: "xz", option: "COMPRESSION xz", target: "output.csv.xz", magic: xzMagic},
		{name: "inferred from target", option: "HEADER", target: "output.csv.gz", magic: gzipMagic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := openTestDatabase(t)
			conn := connectTest(t, db)
			mustQuery(t, conn, "CREATE TABLE t (a INTEGER, b TEXT)")
			mustQuery(t, conn, "INSERT INTO t VALUES (1, 'x'), (2, 'y')")

			mustQuery(t, conn, "COPY (SELECT * FROM t ORDER BY a) TO '"+tt.target+"' ("+tt.option+")")
			data, err := db.CopyFileToBuffer(tt.target)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, tt.magic))

			plain, err := decompress(data)
			require.NoError(t, err)
			assert.Equal(t, "a,b\n1,x\n2,y\n", string(plain))

			// compressed uploads are read transparently
			require.NoError(t, db.RegisterFileBuffer("uploaded_csv", data))
			mustQuery(t, conn, "CREATE TABLE again AS SELECT * FROM read_csv('uploaded_csv')")
			res := mustQuery(t, conn, "SELECT COUNT(*) FROM again")
			assert.Equal(t, [][]any{{int64(2)}}, res.Rows)
		})
	}
}

func TestConn_PassThrough(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)

	res := mustQuery(t, conn, "CREATE TABLE t (a INTEGER)")
	assert.Empty(t, res.Columns)

	res = mustQuery(t, conn, "INSERT INTO t VALUES (1), (2), (3)")
	assert.Equal(t, int64(3), res.RowsAffected)

	res = mustQuery(t, conn, "WITH x AS (SELECT a FROM t WHERE a > 1) SELECT COUNT(*) AS n FROM x")
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)

	res = mustQuery(t, conn, "SELECT * FROM t WHERE a > 10")
	assert.Equal(t, []string{"a"}, res.Columns)
	assert.Equal(t, 0, res.Len())

	_, err := conn.Query(context.Background(), "SELEC * FROM t")
	assert.Error(t, err)
	_, err = conn.Query(context.Background(), "SELECT * FROM missing")
	assert.Error(t, err)
}

func TestConn_CopyErrors(t *testing.T) {
	t.Parallel()

	db := openTestDatabase(t)
	conn := connectTest(t, db)
	mustQuery(t, conn, "CREATE TABLE t (a INTEGER)")

	_, err := conn.Query(context.Background(), "COPY (SELECT * FROM missing) TO 'output.csv'")
	assert.Error(t, err)

	_, err = conn.Query(context.Background(), "COPY (SELECT * FROM t) TO 'output.csv' (FORMAT avro)")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = conn.Query(context.Background(), "COPY (INSERT INTO t VALUES (1)) TO 'output.csv'")
	assert.ErrorIs(t, err, ErrInvalidCopy)

	_, err = db.CopyFileToBuffer("output.csv")
	assert.ErrorIs(t, err, ErrFileNotFound, "failed copies produce no file")
}
