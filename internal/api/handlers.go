package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/verve/internal/errors"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/services"
	"github.com/vytor/verve/internal/session"
	"github.com/vytor/verve/internal/validator"
)

const maxJSONBytes = 1 << 20

type Server struct {
	Sets           services.SetService
	Cards          services.CardService
	Imports        services.ImportService
	Sessions       *session.Manager
	Health         Pinger
	MaxImportBytes int64
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Warn("failed to write response: %v", err)
	}
}

// decodeJSON reads a JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.NewTooLargeError(tooLarge.Limit)
		case stderrors.Is(err, io.EOF) && allowEmpty:
		default:
			return errors.NewBadRequestError("invalid JSON body: " + err.Error())
		}
	}
	return validator.ValidateStruct(dst)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewBadRequestError("invalid " + name + ": " + raw)
	}
	return id, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewBadRequestError("invalid " + name + ": " + raw)
	}
	return v, nil
}
