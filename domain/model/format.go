package model

// Format is an ingestion format recognized from an uploaded file name.
type Format int

const (
	// FormatCSV is comma separated text with a header row
	FormatCSV Format = iota
	// FormatJSONL is newline delimited JSON objects
	FormatJSONL
	// FormatParquet is Apache Parquet
	FormatParquet
)

// File extensions accepted for ingestion. Matching is case-sensitive.
const (
	// ExtCSV is the CSV file extension
	ExtCSV = ".csv"
	// ExtJSONL is the JSON lines file extension
	ExtJSONL = ".jsonl"
	// ExtParquet is the Parquet file extension
	ExtParquet = ".parquet"
)

// Extensions is the static table of accepted extensions.
var Extensions = map[string]Format{
	ExtCSV:     FormatCSV,
	ExtJSONL:   FormatJSONL,
	ExtParquet: FormatParquet,
}

// String returns the string representation of Format
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSONL:
		return "jsonl"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ExtCSV
	case FormatJSONL:
		return ExtJSONL
	case FormatParquet:
		return ExtParquet
	default:
		return ""
	}
}

// VirtualName is the engine file name a buffer of this format is registered
// under before materialization. Names differ per format so sequential
// registrations do not collide.
func (f Format) VirtualName() string {
	switch f {
	case FormatJSONL:
		return "uploaded_json"
	case FormatParquet:
		return "uploaded_parquet"
	default:
		return "uploaded_csv"
	}
}

// ReaderFunction is the engine table function that decodes the format.
func (f Format) ReaderFunction() string {
	switch f {
	case FormatJSONL:
		return "read_json"
	case FormatParquet:
		return "read_parquet"
	default:
		return "read_csv"
	}
}

// ClassifiedFile is an upload whose name mapped to a table and a format.
type ClassifiedFile struct {
	TableName string
	Format    Format
}
