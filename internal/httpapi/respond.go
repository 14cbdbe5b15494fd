package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avelichko/inkwell/internal/common"
)

// errBadRequest marks unparseable or incomplete request bodies.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates domain errors into distinct client-visible statuses.
// Everything in the taxonomy is a recoverable outcome; only unclassified
// errors surface as a generic 500, with the detail kept in the server log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrorUnauthorized):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrForbidden):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "you are not the author"})
	case errors.Is(err, common.ErrorNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrUsernameTaken):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "username already taken"})
	case errors.Is(err, errBadRequest):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
