package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
)

// writeServiceError maps a service-layer error onto the wire. Upstream faults
// keep their category (401/502/503) but never their detail; anything
// unrecognized is a 500 with a constant body and the cause in the logs.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if r.Context().Err() != nil || errors.Is(err, context.Canceled) {
		// Client is gone; nothing useful can be written.
		return
	}

	switch {
	case apperrors.IsValidation(err):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
	case apperrors.IsNotFound(err):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
	case errors.Is(err, apperrors.ErrInvalidCredential):
		writeNotAuthenticated(w)
	case errors.Is(err, apperrors.ErrExchangeFailed):
		logger.ErrorContext(r.Context(), "credential exchange unavailable",
			"error", err,
			"request_id", GetRequestIDFromContext(r.Context()))
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "upstream_unavailable",
			Err:     errors.New("delegated credential exchange unavailable"),
		})
	case errors.Is(err, apperrors.ErrSourceUnavailable):
		logger.ErrorContext(r.Context(), "permission source unavailable",
			"error", err,
			"request_id", GetRequestIDFromContext(r.Context()))
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "source_unavailable",
			Err:     errors.New("permission source unavailable"),
		})
	default:
		logger.ErrorContext(r.Context(), "unhandled service error",
			"error", err,
			"request_id", GetRequestIDFromContext(r.Context()))
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("internal error"),
		})
	}
}
