package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/nao1215/tablepad"
)

// genericFailure is the only detail shown to clients for non-input failures.
const genericFailure = "the action failed; see the server log for details"

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError maps err to a status code and a client-safe message.
// Upload rejections carry their message; everything else is generic.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classifyError(err)
	s.logger.Warn("request error",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Int("status", status),
		zap.String("code", resp.Code),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, status, resp)
}

func classifyError(err error) (int, ErrorResponse) {
	switch {
	case tablepad.IsInputRejected(err):
		return http.StatusBadRequest, ErrorResponse{Error: userMessage(err), Code: "input_rejected"}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrorResponse{Error: userMessage(err), Code: "bad_request"}
	case errors.Is(err, tablepad.ErrArtifactNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "artifact not found", Code: "not_found"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: genericFailure, Code: "action_failed"}
	}
}

// userMessage strips the package prefix from an error message.
func userMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "tablepad: ")
}

// errBadRequest marks malformed requests that never reached the workbench.
var errBadRequest = errors.New("tablepad: bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
