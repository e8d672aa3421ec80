package tablepad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/tablepad/domain/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     model.ClassifiedFile
		wantErr  error
	}{
		{
			name:     "csv",
			filename: "sales.csv",
			want:     model.ClassifiedFile{TableName: "sales", Format: model.FormatCSV},
		},
		{
			name:     "jsonl",
			filename: "events.jsonl",
			want:     model.ClassifiedFile{TableName: "events", Format: model.FormatJSONL},
		},
		{
			name:     "parquet",
			filename: "metrics.parquet",
			want:     model.ClassifiedFile{TableName: "metrics", Format: model.FormatParquet},
		},
		{
			name:     "name from first dot, extension from last dot",
			filename: "a.b.csv",
			want:     model.ClassifiedFile{TableName: "a", Format: model.FormatCSV},
		},
		{
			name:     "directory is ignored",
			filename: "/tmp/uploads/logs.jsonl",
			want:     model.ClassifiedFile{TableName: "logs", Format: model.FormatJSONL},
		},
		{
			name:     "spaces are kept",
			filename: "my data.csv",
			want:     model.ClassifiedFile{TableName: "my data", Format: model.FormatCSV},
		},
		{name: "no extension", filename: "README", wantErr: ErrNoExtension},
		{name: "empty name", filename: "", wantErr: ErrNoFile},
		{name: "unknown extension", filename: "notes.txt", wantErr: ErrUnrecognizedExtension},
		{name: "json is not jsonl", filename: "events.json", wantErr: ErrUnrecognizedExtension},
		{name: "extension is case-sensitive", filename: "SALES.CSV", wantErr: ErrUnrecognizedExtension},
		{name: "compressed csv", filename: "sales.csv.gz", wantErr: ErrUnrecognizedExtension},
		{name: "dot file without stem", filename: ".csv", wantErr: ErrUnrecognizedExtension},
		{name: "trailing dot", filename: "sales.", wantErr: ErrUnrecognizedExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Classify(tt.filename)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsInputRejected(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Classify(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, got, again, "classification is deterministic")
		})
	}
}
