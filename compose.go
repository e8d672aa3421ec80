package tablepad

import (
	"fmt"
	"strings"

	"github.com/nao1215/tablepad/domain/model"
)

// Every statement the pipeline sends to the engine is built here. Table
// names, virtual file names and user SQL are interpolated as-is apart from
// identifier and literal quoting, so this file is the one place to change if
// statements ever become parameterized.

// defaultQuery is run when the user supplies no SQL.
const defaultQuery = "SHOW TABLES;"

// existsStatement finds a table by name in the schema catalog.
func existsStatement(tableName string) string {
	return fmt.Sprintf(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = %s COLLATE NOCASE",
		quoteLiteral(tableName),
	)
}

// createFromStatement materializes a registered buffer into a new table.
func createFromStatement(tableName string, format model.Format) string {
	return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s(%s)",
		quoteIdent(tableName), format.ReaderFunction(), quoteLiteral(format.VirtualName()))
}

// copyStatement wraps user SQL in a COPY to the virtual output file.
func copyStatement(query string, target model.OutputFormat, outputName string, compression model.Compression) string {
	options := []string{"FORMAT " + strings.ToUpper(target.String())}
	if target == model.OutputFormatCSV {
		options = append(options, "HEADER", "DELIMITER ','")
	}
	if compression != model.CompressionNone {
		options = append(options, "COMPRESSION "+compression.String())
	}
	inner := trimStatement(query)
	if strings.Contains(inner, "--") {
		// keep a trailing line comment from swallowing the closing parenthesis
		inner += "\n"
	}
	return fmt.Sprintf("COPY (%s) TO %s (%s)",
		inner, quoteLiteral(outputName), strings.Join(options, ", "))
}

// normalizeQuery substitutes the default query for blank input.
func normalizeQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return defaultQuery
	}
	return query
}

// trimStatement removes surrounding whitespace and trailing semicolons.
func trimStatement(query string) string {
	q := strings.TrimSpace(query)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	return q
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
