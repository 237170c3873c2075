package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ivankudzin/dealboard/internal/domain/errs"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeServiceError maps the shared error kinds to status codes. Messages of
// invalid-argument errors are safe to echo; everything else gets a fixed text.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if rl, ok := errs.AsRateLimit(err); ok {
		httperrors.WriteRateLimited(w, rl.RetryAfterSec(), &httperrors.RateLimitError{
			Code:    "RATE_LIMITED",
			Message: "too many requests, slow down",
		})
		return
	}

	status, code, message := classify(err, fallback)
	httperrors.Write(w, status, httperrors.APIError{Code: code, Message: message})
}

func classify(err error, fallback string) (int, string, string) {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "not allowed"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "INVALID_TRANSITION", "status change is not allowed"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down"
	case errors.Is(err, errs.ErrUnavailable):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", fallback
	}
}
