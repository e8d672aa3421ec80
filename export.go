package tablepad

import (
	"context"

	"github.com/nao1215/tablepad/domain/model"
)

// ExportOptions configure an export beyond its target format.
type ExportOptions struct {
	// Compression applied to the artifact
	Compression model.Compression
}

// NewExportOptions creates default export options (no compression).
func NewExportOptions() ExportOptions {
	return ExportOptions{Compression: model.CompressionNone}
}

// WithCompression sets the compression type
func (o ExportOptions) WithCompression(compression model.Compression) ExportOptions {
	o.Compression = compression
	return o
}

// ExportArtifact is a downloadable export.
type ExportArtifact struct {
	ID                string
	DownloadURL       string
	SuggestedFileName string
	ContentType       string
	Size              int
}

// Exporter turns query results into downloadable artifacts.
type Exporter struct {
	artifacts *Artifacts
}

// NewExporter creates an exporter that registers its output in artifacts.
func NewExporter(artifacts *Artifacts) *Exporter {
	return &Exporter{artifacts: artifacts}
}

// Export runs query through the engine's COPY facility into the virtual file
// outputName, reads the file back into memory and registers it as an artifact.
// An empty outputName uses the default name of target. The user SQL is
// spliced into the COPY statement unescaped.
func (e *Exporter) Export(ctx context.Context, conn *Connection, query string, target model.OutputFormat, outputName string, opts ExportOptions) (*ExportArtifact, error) {
	if outputName == "" {
		outputName = target.DefaultFileName()
	}
	name := outputName + opts.Compression.Extension()

	stmt := copyStatement(normalizeQuery(query), target, name, opts.Compression)
	if _, err := conn.Query(ctx, stmt); err != nil {
		return nil, NewErrorContext("export", name).WithDetails(target.String()).Error(err)
	}

	data, err := conn.copyFileToBuffer(name)
	if err != nil {
		return nil, err
	}

	contentType := target.ContentType()
	if ct := opts.Compression.ContentType(); ct != "" {
		contentType = ct
	}
	id, url := e.artifacts.Create(&Blob{
		Data:        data,
		ContentType: contentType,
		FileName:    name,
	})
	return &ExportArtifact{
		ID:                id,
		DownloadURL:       url,
		SuggestedFileName: name,
		ContentType:       contentType,
		Size:              len(data),
	}, nil
}
