package api

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nodepad/internal/apperr"
)

// statusFor maps an apperr kind onto an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindNeedsConfirmation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Internal errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr validation.Errors
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody(verr.Error(), apperr.KindInvalidInput))
		return
	}
	kind := apperr.Kind(err)
	if kind == apperr.KindInternal {
		slog.Error(op+" failed",
			slog.String("path", r.URL.Query().Get("path")),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error", kind))
		return
	}
	writeJSON(w, statusFor(kind), errorBody(err.Error(), kind))
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody(msg, apperr.KindInvalidInput))
}
