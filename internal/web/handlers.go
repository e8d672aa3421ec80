package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nao1215/tablepad"
	"github.com/nao1215/tablepad/domain/model"
)

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Table   string `json:"table"`
	Format  string `json:"format"`
	Outcome string `json:"outcome"`
}

// QueryRequest is the body of POST /api/query and POST /api/export/{format}.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ExportResponse is returned by POST /api/export/{format}.
type ExportResponse struct {
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: file too large or invalid form: %w", errBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, tablepad.ErrNoFile)
		return
	}
	defer file.Close()

	result, err := s.workbench.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Table:   result.TableName,
		Format:  result.Format.String(),
		Outcome: result.Outcome.String(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQueryRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rs, err := s.workbench.RunQuery(r.Context(), req.SQL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Columns: rs.Columns, Rows: rs.Rows})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	target, err := model.ParseOutputFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	compression, err := model.ParseCompression(r.URL.Query().Get("compression"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	req, err := decodeQueryRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	artifact, err := s.workbench.Export(r.Context(), req.SQL, target, tablepad.NewExportOptions().WithCompression(compression))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{
		URL:         artifact.DownloadURL,
		FileName:    artifact.SuggestedFileName,
		ContentType: artifact.ContentType,
		Size:        artifact.Size,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	blob, err := s.workbench.Artifacts().Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": blob.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := s.workbench.Artifacts().Revoke(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearStorage(w http.ResponseWriter, r *http.Request) {
	if err := s.workbench.ClearStorage(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeQueryRequest reads an optional JSON body. An empty body means blank SQL.
func decodeQueryRequest(r *http.Request) (QueryRequest, error) {
	var req QueryRequest
	if r.Body == nil {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return req, nil
}
