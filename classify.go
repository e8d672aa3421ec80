package tablepad

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nao1215/tablepad/domain/model"
)

// Classify maps an uploaded file name to a table name and ingestion format.
//
// The extension is taken from the last '.', the table name from the text
// before the first '.', so "a.b.csv" becomes table "a" with format CSV.
// Extensions are matched case-sensitively against .csv, .jsonl and .parquet.
// A leading directory is ignored.
func Classify(filename string) (model.ClassifiedFile, error) {
	if filename == "" {
		return model.ClassifiedFile{}, ErrNoFile
	}
	name := filepath.Base(filename)

	last := strings.LastIndex(name, ".")
	if last < 0 {
		return model.ClassifiedFile{}, fmt.Errorf("%w: %s", ErrNoExtension, name)
	}

	format, ok := model.Extensions[name[last:]]
	first := strings.Index(name, ".")
	if !ok || first == 0 {
		return model.ClassifiedFile{}, fmt.Errorf("%w: %s", ErrUnrecognizedExtension, name)
	}

	return model.ClassifiedFile{
		TableName: name[:first],
		Format:    format,
	}, nil
}
