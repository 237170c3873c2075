package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteRateLimited answers 429 with a Retry-After header. A nil payload
// leaves the body empty.
func WriteRateLimited(w http.ResponseWriter, retryAfterSec int64, payload *RateLimitError) {
	if retryAfterSec > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))
	}
	if payload == nil {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	payload.RetryAfterSec = retryAfterSec
	Write(w, http.StatusTooManyRequests, payload)
}
