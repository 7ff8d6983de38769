package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bookkeeper/internal/core"
)

// userID resolves the acting user from the X-User-ID header, falling
// back to the configured default. There is no authentication layer in
// front of this service yet.
func (s *Server) userID(r *http.Request) int64 {
	if v := strings.TrimSpace(r.Header.Get("X-User-ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return s.defaultUserID
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// dateParam parses the "date" query parameter. Missing and invalid are
// distinct: missing returns (nil, nil) so callers can apply a default.
func dateParam(r *http.Request) (*core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps domain errors to HTTP status codes. Anything
// unrecognized is a 500 with a generic body; the cause stays in the
// log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, core.ErrSnapshotNotFound),
		errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrDepositNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrSnapshotExists),
		errors.Is(err, core.ErrAccountNameTaken):
		status = http.StatusConflict
	case errors.Is(err, core.ErrAccountNotOwned):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName):
		status = http.StatusUnprocessableEntity
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	slog.WarnContext(r.Context(), "Request rejected",
		"error", err, "status", status, "method", r.Method, "path", r.URL.Path)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
