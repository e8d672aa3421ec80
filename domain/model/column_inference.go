package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// temporalLayout pairs a shape check with the layouts that may parse it.
type temporalLayout struct {
	shape   *regexp.Regexp
	layouts []string
}

// temporalLayouts lists the date and time spellings recognized in text cells.
var temporalLayouts = []temporalLayout{
	{
		shape:   regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		layouts: []string{time.DateOnly},
	},
	{
		shape:   regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
		layouts: []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05.999999999Z07:00"},
	},
	{
		shape:   regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}( \d{1,2}:\d{2}:\d{2}( [AP]M)?)?$`),
		layouts: []string{"1/2/2006", "1/2/2006 15:04:05", "1/2/2006 3:04:05 PM"},
	},
	{
		shape:   regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}( \d{1,2}:\d{2}:\d{2})?$`),
		layouts: []string{"2.1.2006", "2.1.2006 15:04:05"},
	},
	{
		shape:   regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2}(\.\d+)?)?$`),
		layouts: []string{"15:04", "15:04:05.999999999"},
	},
}

// looksTemporal reports whether s spells a valid date, time or timestamp.
// The shape check keeps "2024-13-45" and bare numbers out.
func looksTemporal(s string) bool {
	for _, tl := range temporalLayouts {
		if !tl.shape.MatchString(s) {
			continue
		}
		for _, layout := range tl.layouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

// TypeTally records the kinds of values seen in one column. CSV cells and
// JSON values feed the same tally so both readers settle types alike.
// The zero value is ready to use.
type TypeTally struct {
	integer  bool
	real     bool
	temporal bool
	text     bool
}

// ObserveCell records an untyped text cell. Blank cells are NULL and do not
// vote.
func (t *TypeTally) ObserveCell(cell string) {
	cell = strings.TrimSpace(cell)
	switch {
	case cell == "":
	case looksTemporal(cell):
		t.temporal = true
	case isInteger(cell):
		t.integer = true
	case isReal(cell):
		t.real = true
	default:
		t.text = true
	}
}

// ObserveString records a value that arrived quoted. Dates still count as
// temporal but numeric-looking strings stay text.
func (t *TypeTally) ObserveString(s string) {
	if looksTemporal(strings.TrimSpace(s)) {
		t.temporal = true
		return
	}
	t.text = true
}

// ObserveNumber records a typed number.
func (t *TypeTally) ObserveNumber(integral bool) {
	if integral {
		t.integer = true
	} else {
		t.real = true
	}
}

// ObserveBool records a boolean, stored as 0 or 1.
func (t *TypeTally) ObserveBool() {
	t.integer = true
}

// ObserveOpaque records a value kept as its text encoding, such as a nested
// JSON object.
func (t *TypeTally) ObserveOpaque() {
	t.text = true
}

// Type settles the column type. Any text, or dates mixed with numbers, gives
// TEXT. A column of only NULLs is TEXT as well.
func (t TypeTally) Type() ColumnType {
	numeric := t.integer || t.real
	switch {
	case t.text, t.temporal && numeric:
		return ColumnTypeText
	case t.temporal:
		return ColumnTypeDatetime
	case t.real:
		return ColumnTypeReal
	case t.integer:
		return ColumnTypeInteger
	default:
		return ColumnTypeText
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isReal(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	// "NaN" and "Inf" are words, not numbers, in a cell
	return err == nil && !strings.ContainsAny(strings.ToLower(s), "ni")
}

// InferColumns settles a type for every header column from text rows.
// Missing trailing cells of a short row count as NULL.
func InferColumns(header Header, rows [][]string) []ColumnInfo {
	tallies := make([]TypeTally, len(header))
	for _, row := range rows {
		for i := range min(len(row), len(tallies)) {
			tallies[i].ObserveCell(row[i])
		}
	}
	columns := make([]ColumnInfo, len(header))
	for i, name := range header {
		columns[i] = ColumnInfo{Name: name, Type: tallies[i].Type()}
	}
	return columns
}

// ConvertValue turns a text cell into the value stored in a column of type
// ct. Blank cells are NULL in every column, the same as a JSON null or a
// missing key. A cell that does not parse as ct is stored as written.
func ConvertValue(cell string, ct ColumnType) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	switch ct {
	case ColumnTypeInteger:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case ColumnTypeReal:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	case ColumnTypeDatetime:
		return trimmed
	case ColumnTypeBlob:
		return []byte(cell)
	}
	return cell
}
