package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/tidwall/gjson"

	"github.com/nao1215/tablepad/domain/model"
)

// utf8BOM is stripped from the start of CSV buffers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode turns a registered buffer into a table using the reader for format.
func decode(ctx context.Context, format model.Format, data []byte) (*model.Table, error) {
	data, err := decompress(data)
	if err != nil {
		return nil, err
	}

	var table *model.Table
	switch format {
	case model.FormatCSV:
		table, err = readCSV(data)
	case model.FormatJSONL:
		table, err = readJSON(data)
	case model.FormatParquet:
		table, err = readParquet(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if len(table.Columns) == 0 {
		return nil, ErrEmptyData
	}
	if err := ValidateColumnCount(len(table.Columns)); err != nil {
		return nil, err
	}
	if err := table.Header().Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// readCSV reads comma separated text whose first record is the header.
// Column types are inferred from the data rows.
func readCSV(data []byte) (*model.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyData
	}

	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyData
	}

	header := model.NewHeader(records[0])
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			header[i] = fmt.Sprintf("column%d", i)
		}
	}
	if err := ValidateColumnCount(len(header)); err != nil {
		return nil, err
	}

	rows := records[1:]
	columns := model.InferColumns(header, rows)
	table := &model.Table{
		Columns: columns,
		Records: make([]model.Record, 0, len(rows)),
	}
	for _, row := range rows {
		record := make(model.Record, len(columns))
		for i, col := range columns {
			record[i] = model.ConvertValue(row[i], col.Type)
		}
		table.Records = append(table.Records, record)
	}
	return table, nil
}

// jsonColumn tallies the values seen for one JSON key.
type jsonColumn struct {
	name  string
	tally model.TypeTally
}

func (c *jsonColumn) observe(v gjson.Result) {
	switch v.Type {
	case gjson.Null:
	case gjson.True, gjson.False:
		c.tally.ObserveBool()
	case gjson.Number:
		c.tally.ObserveNumber(isJSONInteger(v))
	case gjson.String:
		c.tally.ObserveString(v.Str)
	default:
		c.tally.ObserveOpaque()
	}
}

func isJSONInteger(v gjson.Result) bool {
	if strings.ContainsAny(v.Raw, ".eE") {
		return false
	}
	_, err := strconv.ParseInt(v.Raw, 10, 64)
	return err == nil
}

// readJSON reads newline delimited JSON objects. A single top-level JSON
// array of objects is accepted too. The column set is the union of all keys
// in order of first appearance.
func readJSON(data []byte) (*model.Table, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	var objects []gjson.Result
	if data[0] == '[' {
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: malformed JSON array", ErrInvalidData)
		}
		gjson.ParseBytes(data).ForEach(func(_, v gjson.Result) bool {
			objects = append(objects, v)
			return true
		})
	} else {
		for n, line := range bytes.Split(data, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			if !gjson.ValidBytes(line) {
				return nil, fmt.Errorf("%w: malformed JSON on line %d", ErrInvalidData, n+1)
			}
			objects = append(objects, gjson.ParseBytes(line))
		}
	}

	var columns []*jsonColumn
	index := make(map[string]int)
	for n, obj := range objects {
		if !obj.IsObject() {
			return nil, fmt.Errorf("%w: record %d is not a JSON object", ErrInvalidData, n+1)
		}
		obj.ForEach(func(k, v gjson.Result) bool {
			name := k.String()
			i, ok := index[name]
			if !ok {
				i = len(columns)
				index[name] = i
				columns = append(columns, &jsonColumn{name: name})
			}
			columns[i].observe(v)
			return true
		})
	}
	if err := ValidateColumnCount(len(columns)); err != nil {
		return nil, err
	}

	table := &model.Table{
		Columns: make([]model.ColumnInfo, len(columns)),
		Records: make([]model.Record, 0, len(objects)),
	}
	for i, c := range columns {
		table.Columns[i] = model.ColumnInfo{Name: c.name, Type: c.tally.Type()}
	}
	for _, obj := range objects {
		record := make(model.Record, len(columns))
		obj.ForEach(func(k, v gjson.Result) bool {
			i := index[k.String()]
			record[i] = jsonValue(v, table.Columns[i].Type)
			return true
		})
		table.Records = append(table.Records, record)
	}
	return table, nil
}

// jsonValue converts a JSON value for storage in a column of type ct.
func jsonValue(v gjson.Result, ct model.ColumnType) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		switch ct {
		case model.ColumnTypeInteger:
			if v.Bool() {
				return int64(1)
			}
			return int64(0)
		case model.ColumnTypeReal:
			if v.Bool() {
				return 1.0
			}
			return 0.0
		default:
			return v.Raw
		}
	case gjson.Number:
		switch ct {
		case model.ColumnTypeInteger:
			return v.Int()
		case model.ColumnTypeReal:
			return v.Float()
		default:
			return v.Raw
		}
	case gjson.String:
		if ct == model.ColumnTypeDatetime {
			return strings.TrimSpace(v.Str)
		}
		return v.Str
	default:
		// nested objects and arrays keep their JSON text
		return v.Raw
	}
}

// readParquet reads an Apache Parquet buffer through Arrow.
func readParquet(ctx context.Context, data []byte) (*model.Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create parquet reader: %w", ErrInvalidData, err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create arrow reader: %w", ErrInvalidData, err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read table: %w", ErrInvalidData, err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	table := &model.Table{
		Columns: make([]model.ColumnInfo, schema.NumFields()),
		Records: make([]model.Record, 0, tbl.NumRows()),
	}
	for i, field := range schema.Fields() {
		table.Columns[i] = model.ColumnInfo{Name: field.Name, Type: arrowColumnType(field.Type)}
	}

	tableReader := array.NewTableReader(tbl, 0)
	defer tableReader.Release()

	for tableReader.Next() {
		batch := tableReader.Record()
		for row := range int(batch.NumRows()) {
			record := make(model.Record, batch.NumCols())
			for col, arr := range batch.Columns() {
				record[col] = arrowValue(arr, row)
			}
			table.Records = append(table.Records, record)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, fmt.Errorf("%w: error reading table records: %w", ErrInvalidData, err)
	}
	return table, nil
}

// arrowColumnType maps an Arrow data type to the column type used in the store.
func arrowColumnType(dt arrow.DataType) model.ColumnType {
	switch dt.ID() {
	case arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return model.ColumnTypeInteger
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return model.ColumnTypeReal
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return model.ColumnTypeBlob
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return model.ColumnTypeDatetime
	default:
		return model.ColumnTypeText
	}
}

// arrowValue extracts one cell as a value the SQLite driver can bind.
func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		if a.Value(i) {
			return int64(1)
		}
		return int64(0)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return int64(v)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return bytes.Clone(a.Value(i))
	case *array.LargeBinary:
		return bytes.Clone(a.Value(i))
	case *array.FixedSizeBinary:
		return bytes.Clone(a.Value(i))
	case *array.Float16:
		if f, err := strconv.ParseFloat(a.ValueStr(i), 64); err == nil {
			return f
		}
		return a.ValueStr(i)
	default:
		return arr.ValueStr(i)
	}
}
