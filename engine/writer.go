package engine

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/tablepad/domain/model"
)

// xlsxSheetName is the single sheet written by XLSX exports.
const xlsxSheetName = "Sheet1"

// encode serializes a result in the format requested by a COPY statement.
func encode(res *Result, stmt *copyStatement) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch stmt.format {
	case model.OutputFormatCSV:
		data, err = writeCSV(res, stmt.header, stmt.delimiter)
	case model.OutputFormatJSON:
		data, err = writeJSON(res)
	case model.OutputFormatParquet:
		data, err = writeParquet(res)
	case model.OutputFormatXLSX:
		data, err = writeXLSX(res, stmt.header)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, stmt.format)
	}
	if err != nil {
		return nil, err
	}
	return compress(data, stmt.compression)
}

// formatCell renders a value as text for CSV output.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func writeCSV(res *Result, header bool, delimiter rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter

	if header {
		if err := w.Write(res.Columns); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return buf.Bytes(), nil
}

// jsonCell converts a value into something goccy/go-json encodes the way
// a JSON record should look.
func jsonCell(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return x
	}
}

// writeJSON writes one JSON object per line, keys in column order.
func writeJSON(res *Result) ([]byte, error) {
	keys := make([][]byte, len(res.Columns))
	for i, name := range res.Columns {
		k, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode column name %q: %w", name, err)
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	for _, row := range res.Rows {
		buf.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			b, err := json.Marshal(jsonCell(v))
			if err != nil {
				return nil, fmt.Errorf("failed to encode column %s: %w", res.Columns[i], err)
			}
			buf.Write(b)
		}
		buf.WriteString("}\n")
	}
	return buf.Bytes(), nil
}

// parquetType picks the Arrow type of a column from its values, falling back
// to the declared column type when every value is NULL.
func parquetType(res *Result, col int) arrow.DataType {
	var hasInt, hasFloat, hasBool, hasBytes, hasOther bool
	for _, row := range res.Rows {
		switch row[col].(type) {
		case nil:
		case int64:
			hasInt = true
		case float64:
			hasFloat = true
		case bool:
			hasBool = true
		case []byte:
			hasBytes = true
		default:
			hasOther = true
		}
	}

	switch {
	case hasOther:
		return arrow.BinaryTypes.String
	case hasBytes && !hasInt && !hasFloat && !hasBool:
		return arrow.BinaryTypes.Binary
	case hasBytes:
		return arrow.BinaryTypes.String
	case hasBool && !hasInt && !hasFloat:
		return arrow.FixedWidthTypes.Boolean
	case hasFloat:
		return arrow.PrimitiveTypes.Float64
	case hasInt || hasBool:
		return arrow.PrimitiveTypes.Int64
	}

	declared := ""
	if col < len(res.Types) {
		declared = strings.ToUpper(res.Types[col])
	}
	switch {
	case strings.Contains(declared, "INT"):
		return arrow.PrimitiveTypes.Int64
	case strings.Contains(declared, "REAL"), strings.Contains(declared, "FLOA"), strings.Contains(declared, "DOUB"):
		return arrow.PrimitiveTypes.Float64
	case declared == "BLOB":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func appendArrowValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch bldr := b.(type) {
	case *array.Int64Builder:
		switch x := v.(type) {
		case int64:
			bldr.Append(x)
		case bool:
			if x {
				bldr.Append(1)
			} else {
				bldr.Append(0)
			}
		default:
			bldr.AppendNull()
		}
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			bldr.Append(x)
		case int64:
			bldr.Append(float64(x))
		case bool:
			if x {
				bldr.Append(1)
			} else {
				bldr.Append(0)
			}
		default:
			bldr.AppendNull()
		}
	case *array.BooleanBuilder:
		bldr.Append(v.(bool))
	case *array.BinaryBuilder:
		bldr.Append(v.([]byte))
	case *array.StringBuilder:
		bldr.Append(formatCell(v))
	}
}

// writeParquet writes the result as a single row group Parquet file.
func writeParquet(res *Result) ([]byte, error) {
	fields := make([]arrow.Field, len(res.Columns))
	for i, name := range res.Columns {
		fields[i] = arrow.Field{Name: name, Type: parquetType(res, i), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	for _, row := range res.Rows {
		for i, v := range row {
			appendArrowValue(bldr.Field(i), v)
		}
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	writer, err := pqarrow.NewFileWriter(schema, &buf, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if rec.NumRows() > 0 {
		if err := writer.Write(rec); err != nil {
			_ = writer.Close() // Ignore close error since we're already returning an error
			return nil, fmt.Errorf("failed to write parquet records: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// writeXLSX writes the result to the first sheet of a new workbook.
func writeXLSX(res *Result, header bool) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter(xlsxSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet writer: %w", err)
	}

	rowNum := 1
	if header {
		cells := make([]any, len(res.Columns))
		for i, name := range res.Columns {
			cells[i] = name
		}
		if err := setXLSXRow(sw, rowNum, cells); err != nil {
			return nil, err
		}
		rowNum++
	}
	for _, row := range res.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			switch x := v.(type) {
			case []byte:
				cells[i] = string(x)
			default:
				cells[i] = x
			}
		}
		if err := setXLSXRow(sw, rowNum, cells); err != nil {
			return nil, err
		}
		rowNum++
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setXLSXRow(sw *excelize.StreamWriter, rowNum int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to resolve cell name: %w", err)
	}
	if err := sw.SetRow(cell, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
