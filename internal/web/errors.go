package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"avatarstudio/internal/auth"
	"avatarstudio/internal/avatar"
	"avatarstudio/internal/blob"
	"avatarstudio/internal/export"
	"avatarstudio/internal/intake"
	"avatarstudio/internal/pipeline"
	"avatarstudio/internal/store"
)

// Error kinds reported in JSON error bodies.
const (
	KindValidation     = "validation"
	KindPersistence    = "persistence"
	KindAuthentication = "authentication"
	KindInternal       = "internal"
)

var (
	errBadRequest = errors.New("bad request")
	errNoPreset   = errors.New("no such preset")
	errNoJob      = errors.New("no job")
)

// classify maps an error to a status code and kind.
func classify(err error) (int, string) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, KindValidation
	case errors.Is(err, errBadRequest),
		errors.Is(err, avatar.ErrInvalid),
		errors.Is(err, intake.ErrRejected),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, pipeline.ErrUnknownKind):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, errNoPreset), errors.Is(err, errNoJob):
		return http.StatusNotFound, KindValidation
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, KindAuthentication
	case errors.Is(err, store.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound, KindPersistence
	case errors.Is(err, store.ErrStorage):
		return http.StatusInternalServerError, KindPersistence
	}
	return http.StatusInternalServerError, KindInternal
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err with its classified status. Internal details of
// 5xx errors are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		s.logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = http.StatusText(code)
	}
	writeJSON(w, code, map[string]string{"error": msg, "kind": kind})
}

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON value into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || errors.Is(err, avatar.ErrInvalid) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
