package tablepad

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/tablepad/domain/model"
)

func TestExecute(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(testStorePath(t))
	err := m.Do(context.Background(), func(ctx context.Context, _ *Session, c *Connection) error {
		t.Run("blank query shows tables", func(t *testing.T) {
			rs, err := Execute(ctx, c, "  ")
			require.NoError(t, err)
			assert.Equal(t, 0, rs.Len())
			assert.Empty(t, rs.Columns)
		})

		_, err := c.Query(ctx, "CREATE TABLE items (id INTEGER, name TEXT)")
		require.NoError(t, err)
		_, err = c.Query(ctx, "INSERT INTO items VALUES (1, 'apple'), (2, NULL)")
		require.NoError(t, err)

		t.Run("rows and records", func(t *testing.T) {
			rs, err := Execute(ctx, c, "SELECT id, name FROM items ORDER BY id;")
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name"}, rs.Columns)
			assert.Equal(t, 2, rs.Len())
			assert.Equal(t, []map[string]any{
				{"id": int64(1), "name": "apple"},
				{"id": int64(2), "name": nil},
			}, rs.Records())

			v, ok := rs.Value(0, "name")
			assert.True(t, ok)
			assert.Equal(t, "apple", v)
			_, ok = rs.Value(5, "name")
			assert.False(t, ok)
			_, ok = rs.Value(0, "missing")
			assert.False(t, ok)
		})

		t.Run("empty result has no columns", func(t *testing.T) {
			rs, err := Execute(ctx, c, "SELECT * FROM items WHERE id > 100")
			require.NoError(t, err)
			assert.Equal(t, 0, rs.Len())
			assert.Empty(t, rs.Columns)
			assert.Empty(t, rs.Records())
			_, ok := rs.Value(0, "id")
			assert.False(t, ok)
		})

		t.Run("leading comments do not hide rows", func(t *testing.T) {
			tests := []struct {
				name  string
				query string
			}{
				{name: "line comment", query: "-- count apples\nSELECT COUNT(*) AS n FROM items WHERE name = 'apple'"},
				{name: "block comment", query: "/* report */\nSELECT COUNT(*) AS n FROM items WHERE name = 'apple';"},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					rs, err := Execute(ctx, c, tt.query)
					require.NoError(t, err)
					assert.Equal(t, []string{"n"}, rs.Columns)
					assert.Equal(t, [][]any{{int64(1)}}, rs.Rows)
				})
			}
		})

		t.Run("returning clause yields rows", func(t *testing.T) {
			rs, err := Execute(ctx, c, "INSERT INTO items VALUES (3, 'cherry') RETURNING id, name")
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name"}, rs.Columns)
			assert.Equal(t, [][]any{{int64(3), "cherry"}}, rs.Rows)
		})

		t.Run("commented query exports its rows", func(t *testing.T) {
			artifacts := NewArtifacts()
			query := "-- ids so far\nSELECT SUM(id) AS total FROM items /* all */ -- end"
			artifact, err := NewExporter(artifacts).Export(ctx, c, query, model.OutputFormatCSV, "", NewExportOptions())
			require.NoError(t, err)
			blob, err := artifacts.Get(artifact.ID)
			require.NoError(t, err)
			assert.Equal(t, "total\n6\n", string(blob.Data))
		})

		t.Run("sql errors fail the whole execution", func(t *testing.T) {
			rs, err := Execute(ctx, c, "SELECT * FROM nope")
			require.ErrorIs(t, err, ErrEngine)
			assert.Nil(t, rs)
		})
		return nil
	})
	require.NoError(t, err)
}
