package api

import (
	stderrors "errors"
	"net/http"

	"github.com/vytor/verve/internal/errors"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/session"
)

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.As(err)
	if !ok {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.Is(err, session.ErrBusy),
			stderrors.Is(err, session.ErrExhausted),
			stderrors.Is(err, session.ErrNotLoaded):
			appErr = errors.NewConflictError(err.Error(), err)
		case stderrors.As(err, &tooLarge):
			appErr = errors.NewTooLargeError(tooLarge.Limit)
		default:
			appErr = errors.NewInternalError(err)
		}
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else {
		log.Warn("client error: %v", appErr)
	}

	writeJSON(w, r, appErr.Status, map[string]any{
		"error": map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
