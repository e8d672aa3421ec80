package tablepad

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nao1215/tablepad/domain/model"
)

// UploadResult describes a completed upload.
type UploadResult struct {
	TableName string
	Format    model.Format
	Outcome   MaterializeOutcome
}

// Workbench runs the user actions. Every action opens its own session and
// tears it down before returning. Actions are serialized so overlapping
// triggers queue up instead of competing for the store.
type Workbench struct {
	mu         sync.Mutex
	store      *Store
	sessions   *SessionManager
	readers    *SessionManager
	artifacts  *Artifacts
	exporter   *Exporter
	defaultSQL string
	logger     *zap.Logger
}

// NewWorkbench creates a workbench over store whose sessions come from sessions.
func NewWorkbench(store *Store, sessions *SessionManager) *Workbench {
	artifacts := NewArtifacts()
	return &Workbench{
		store:      store,
		sessions:   sessions,
		readers:    sessions,
		artifacts:  artifacts,
		exporter:   NewExporter(artifacts),
		defaultSQL: defaultQuery,
		logger:     zap.NewNop(),
	}
}

// WithReadOnlyQueries makes RunQuery and Export open read-only sessions when
// on is true, so only Upload and ClearStorage change the store.
// Returns the workbench for method chaining.
func (w *Workbench) WithReadOnlyQueries(on bool) *Workbench {
	w.mu.Lock()
	defer w.mu.Unlock()
	if on {
		w.readers = w.sessions.ReadOnly()
	} else {
		w.readers = w.sessions
	}
	return w
}

// WithLogger sets the logger used to record failed actions.
// Returns the workbench for method chaining.
func (w *Workbench) WithLogger(logger *zap.Logger) *Workbench {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithDefaultQuery sets the SQL run when a query is blank.
// Returns the workbench for method chaining.
func (w *Workbench) WithDefaultQuery(query string) *Workbench {
	if strings.TrimSpace(query) != "" {
		w.defaultSQL = query
	}
	return w
}

// Artifacts returns the export registry.
func (w *Workbench) Artifacts() *Artifacts {
	return w.artifacts
}

// DefaultQuery returns the SQL run when a query is blank.
func (w *Workbench) DefaultQuery() string {
	return w.defaultSQL
}

// Upload classifies filename, reads r, clears the store and materializes the
// file into a table in a fresh session. A rejected file name is returned as
// is and never touches the store or the engine.
func (w *Workbench) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	classified, err := Classify(filename)
	if err != nil {
		w.logger.Info("upload rejected", zap.String("file", filename), zap.Error(err))
		return nil, err
	}
	if r == nil {
		return nil, ErrNoFile
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fields := []zap.Field{
		zap.String("action", "upload"),
		zap.String("file", filename),
		zap.String("table", classified.TableName),
		zap.Stringer("format", classified.Format),
	}

	data, err := LoadBytes(r)
	if err != nil {
		return nil, w.fail(err, fields...)
	}
	if err := w.store.Reset(ctx); err != nil {
		return nil, w.fail(err, fields...)
	}

	var outcome MaterializeOutcome
	err = w.sessions.Do(ctx, func(ctx context.Context, _ *Session, conn *Connection) error {
		var err error
		outcome, err = Materialize(ctx, conn, data, classified.TableName, classified.Format)
		return err
	})
	if err != nil {
		return nil, w.fail(err, fields...)
	}

	w.logger.Info("table materialized", append(fields, zap.Stringer("outcome", outcome))...)
	return &UploadResult{
		TableName: classified.TableName,
		Format:    classified.Format,
		Outcome:   outcome,
	}, nil
}

// RunQuery executes query against the existing store.
func (w *Workbench) RunQuery(ctx context.Context, query string) (*ResultSet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	query = w.queryOrDefault(query)
	var rs *ResultSet
	err := w.readers.Do(ctx, func(ctx context.Context, _ *Session, conn *Connection) error {
		var err error
		rs, err = Execute(ctx, conn, query)
		return err
	})
	if err != nil {
		return nil, w.fail(err, zap.String("action", "query"))
	}
	return rs, nil
}

// Export runs query and registers the encoded result as a downloadable artifact.
func (w *Workbench) Export(ctx context.Context, query string, target model.OutputFormat, opts ExportOptions) (*ExportArtifact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	query = w.queryOrDefault(query)
	var artifact *ExportArtifact
	err := w.readers.Do(ctx, func(ctx context.Context, _ *Session, conn *Connection) error {
		var err error
		artifact, err = w.exporter.Export(ctx, conn, query, target, target.DefaultFileName(), opts)
		return err
	})
	if err != nil {
		return nil, w.fail(err,
			zap.String("action", "export"),
			zap.Stringer("format", target),
			zap.Stringer("compression", opts.Compression))
	}
	w.logger.Info("export created",
		zap.String("file", artifact.SuggestedFileName),
		zap.String("url", artifact.DownloadURL),
		zap.Int("bytes", artifact.Size))
	return artifact, nil
}

// ClearStorage removes the store and its write-ahead log.
func (w *Workbench) ClearStorage(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Reset(ctx); err != nil {
		return w.fail(err, zap.String("action", "clear_storage"))
	}
	w.logger.Info("storage cleared", zap.String("store", w.store.Path()))
	return nil
}

func (w *Workbench) queryOrDefault(query string) string {
	if strings.TrimSpace(query) == "" {
		return w.defaultSQL
	}
	return query
}

// fail logs err with its detail and returns the generic action failure.
func (w *Workbench) fail(err error, fields ...zap.Field) error {
	w.logger.Error("action failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%w: %w", ErrActionFailed, err)
}
