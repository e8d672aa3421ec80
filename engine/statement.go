package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/tablepad/domain/model"
)

var (
	showTablesPattern = regexp.MustCompile(`(?is)^\s*SHOW\s+TABLES\s*;?\s*$`)

	// CREATE TABLE [IF NOT EXISTS] <ident> AS SELECT * FROM read_xxx('<file>')
	createFromPattern = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(IF\s+NOT\s+EXISTS\s+)?` +
		`("(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_]*)\s+AS\s+SELECT\s+\*\s+FROM\s+` +
		`(read_csv|read_csv_auto|read_json|read_json_auto|read_ndjson|read_parquet)\s*\(\s*'([^']*)'\s*\)\s*;?\s*$`)

	copyPrefixPattern = regexp.MustCompile(`(?is)^\s*COPY\s*\(`)

	returningPattern = regexp.MustCompile(`(?i)\bRETURNING\b`)
)

// createFromStatement is a parsed CREATE TABLE ... AS SELECT * FROM read_xxx(...).
type createFromStatement struct {
	table       string // unquoted table name
	ifNotExists bool
	format      model.Format
	source      string // virtual file name
}

// copyStatement is a parsed COPY (query) TO 'target' (options).
type copyStatement struct {
	query       string
	target      string
	format      model.OutputFormat
	header      bool
	delimiter   rune
	compression model.Compression
}

func isShowTables(query string) bool {
	return showTablesPattern.MatchString(stripLeadingComments(query))
}

func parseCreateFrom(query string) (*createFromStatement, bool) {
	m := createFromPattern.FindStringSubmatch(query)
	if m == nil {
		return nil, false
	}
	stmt := &createFromStatement{
		table:       unquoteIdent(m[2]),
		ifNotExists: m[1] != "",
		source:      m[4],
	}
	switch strings.ToLower(m[3]) {
	case "read_json", "read_json_auto", "read_ndjson":
		stmt.format = model.FormatJSONL
	case "read_parquet":
		stmt.format = model.FormatParquet
	default:
		stmt.format = model.FormatCSV
	}
	return stmt, true
}

func isCopy(query string) bool {
	return copyPrefixPattern.MatchString(query)
}

// parseCopy parses a COPY statement. The inner query is taken verbatim
// between the balanced parentheses following COPY.
func parseCopy(query string) (*copyStatement, error) {
	loc := copyPrefixPattern.FindStringIndex(query)
	if loc == nil {
		return nil, fmt.Errorf("%w: expected COPY (query)", ErrInvalidCopy)
	}
	open := loc[1] - 1
	end, err := matchingParen(query, open)
	if err != nil {
		return nil, err
	}
	inner := strings.TrimSpace(query[open+1 : end])
	inner = strings.TrimSpace(strings.TrimSuffix(inner, ";"))
	if inner == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidCopy)
	}
	if isCopy(inner) {
		return nil, fmt.Errorf("%w: nested COPY", ErrInvalidCopy)
	}

	rest := strings.TrimSpace(query[end+1:])
	if len(rest) < 2 || !strings.EqualFold(rest[:2], "TO") {
		return nil, fmt.Errorf("%w: expected TO after query", ErrInvalidCopy)
	}
	rest = strings.TrimSpace(rest[2:])
	target, rest, err := quotedLiteral(rest)
	if err != nil {
		return nil, err
	}
	if err := ValidateFileName(target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCopy, err)
	}

	stmt := &copyStatement{
		query:     inner,
		target:    target,
		header:    true,
		delimiter: ',',
	}
	// FORMAT defaults to the target extension, then to CSV
	if f, ok := model.OutputFormatFromPath(target); ok {
		stmt.format = f
	}
	stmt.compression = compressionFromPath(target)

	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ";"))
	if rest != "" {
		if rest[0] != '(' || rest[len(rest)-1] != ')' {
			return nil, fmt.Errorf("%w: malformed options %q", ErrInvalidCopy, SanitizeForLog(rest))
		}
		opts, err := splitOptions(rest[1 : len(rest)-1])
		if err != nil {
			return nil, err
		}
		for _, opt := range opts {
			key, value := opt[0], opt[1]
			switch strings.ToUpper(key) {
			case "FORMAT":
				f, err := model.ParseOutputFormat(value)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
				}
				stmt.format = f
			case "HEADER":
				if value == "" {
					stmt.header = true
					continue
				}
				b, err := strconv.ParseBool(value)
				if err != nil {
					return nil, fmt.Errorf("%w: HEADER %q", ErrInvalidCopy, value)
				}
				stmt.header = b
			case "DELIMITER", "DELIM", "SEP":
				if utf8.RuneCountInString(value) != 1 {
					return nil, fmt.Errorf("%w: delimiter must be one character", ErrInvalidCopy)
				}
				stmt.delimiter, _ = utf8.DecodeRuneInString(value)
			case "COMPRESSION":
				c, err := model.ParseCompression(value)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrInvalidCopy, err)
				}
				stmt.compression = c
			default:
				return nil, fmt.Errorf("%w: unknown option %s", ErrInvalidCopy, key)
			}
		}
	}
	return stmt, nil
}

func compressionFromPath(path string) model.Compression {
	p := strings.ToLower(path)
	for _, c := range []model.Compression{model.CompressionGZ, model.CompressionZSTD, model.CompressionXZ} {
		if strings.HasSuffix(p, c.Extension()) {
			return c
		}
	}
	return model.CompressionNone
}

// matchingParen returns the index of the parenthesis closing the one at open.
// Parentheses inside quoted strings, identifiers and comments are ignored.
func matchingParen(s string, open int) (int, error) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				// doubled quote is an escaped quote
				if i+1 < len(s) && s[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		if skip := commentLength(s[i:]); skip > 0 {
			i += skip - 1
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unbalanced parentheses", ErrInvalidCopy)
}

// quotedLiteral reads a single-quoted SQL string at the start of s and
// returns its value and the remaining text.
func quotedLiteral(s string) (string, string, error) {
	if s == "" || s[0] != '\'' {
		return "", "", fmt.Errorf("%w: expected quoted file name", ErrInvalidCopy)
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			return b.String(), s[i+1:], nil
		}
		b.WriteByte(s[i])
	}
	return "", "", fmt.Errorf("%w: unterminated string", ErrInvalidCopy)
}

// splitOptions splits "FORMAT csv, HEADER, DELIMITER ','" into key/value pairs.
func splitOptions(s string) ([][2]string, error) {
	var (
		parts []string
		cur   strings.Builder
		quote bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'':
			if quote && i+1 < len(s) && s[i+1] == '\'' {
				cur.WriteString("''")
				i++
				continue
			}
			quote = !quote
			cur.WriteByte(ch)
		case ch == ',' && !quote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if quote {
		return nil, fmt.Errorf("%w: unterminated string in options", ErrInvalidCopy)
	}
	parts = append(parts, cur.String())

	opts := make([][2]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key, value, _ := strings.Cut(p, " ")
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "'") {
			v, rest, err := quotedLiteral(value)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(rest) != "" {
				return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidCopy, rest)
			}
			value = v
		}
		opts = append(opts, [2]string{key, value})
	}
	return opts, nil
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

// quoteIdent quotes a name for use as an SQLite identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// commentLength returns the length of the SQL comment starting at s[0],
// or 0 if s does not start with one. An unterminated comment runs to the end.
func commentLength(s string) int {
	switch {
	case strings.HasPrefix(s, "--"):
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			return i + 1
		}
		return len(s)
	case strings.HasPrefix(s, "/*"):
		if i := strings.Index(s[2:], "*/"); i >= 0 {
			return i + 4
		}
		return len(s)
	default:
		return 0
	}
}

// stripLeadingComments removes whitespace and comments before the first token.
func stripLeadingComments(query string) string {
	q := strings.TrimLeft(query, " \t\r\n")
	for n := commentLength(q); n > 0; n = commentLength(q) {
		q = strings.TrimLeft(q[n:], " \t\r\n")
	}
	return q
}

// firstKeyword returns the upper-cased first word of a statement.
func firstKeyword(query string) string {
	q := stripLeadingComments(query)
	for strings.HasPrefix(q, "(") {
		q = stripLeadingComments(q[1:])
	}
	end := strings.IndexFunc(q, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end >= 0 {
		q = q[:end]
	}
	return strings.ToUpper(q)
}

// returnsRows reports whether a pass-through statement produces a result set.
// Data-modifying statements return rows when they carry a RETURNING clause.
func returnsRows(query string) bool {
	switch firstKeyword(query) {
	case "SELECT", "WITH", "VALUES", "PRAGMA", "EXPLAIN":
		return true
	case "INSERT", "REPLACE", "UPDATE", "DELETE":
		return returningPattern.MatchString(query)
	default:
		return false
	}
}
