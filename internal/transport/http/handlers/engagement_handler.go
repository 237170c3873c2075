package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/services/analytics"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	"github.com/ivankudzin/dealboard/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type EngagementRecorder interface {
	IngestBatch(ctx context.Context, events []analytics.Event) (int, error)
}

type EngagementHandler struct {
	recorder EngagementRecorder
	limiter  RateLimiter
}

func NewEngagementHandler(recorder EngagementRecorder, limiter RateLimiter) *EngagementHandler {
	return &EngagementHandler{recorder: recorder, limiter: limiter}
}

// Ingest counts one request against the engagement class, keyed by user when
// a token was presented and by client address otherwise.
func (h *EngagementHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeInternal(w, "ENGAGEMENT_SERVICE_UNAVAILABLE", "engagement service is unavailable")
		return
	}

	var req dto.EngagementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if h.limiter != nil {
		decision, err := h.limiter.Allow(r.Context(), engagementKey(r), enums.ActionClassEngagement)
		if err == nil && !decision.Allowed {
			httperrors.WriteRateLimited(w, decision.RetryAfterSec(), nil)
			return
		}
	}

	events := make([]analytics.Event, 0, len(req.Events))
	for _, event := range req.Events {
		events = append(events, analytics.Event{OfferID: event.OfferID, Kind: event.Kind})
	}

	touched, err := h.recorder.IngestBatch(r.Context(), events)
	if err != nil {
		writeServiceError(w, err, "failed to record engagement")
		return
	}

	httperrors.Write(w, http.StatusAccepted, dto.EngagementResponse{
		OK:       true,
		Accepted: len(events),
		Touched:  touched,
	})
}

func engagementKey(r *http.Request) string {
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok && identity.UserID != "" {
		return "user:" + identity.UserID
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil || host == "" {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
