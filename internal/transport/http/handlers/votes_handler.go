package handlers

import (
	"context"
	"net/http"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	"github.com/ivankudzin/dealboard/internal/services/rate"
	votesvc "github.com/ivankudzin/dealboard/internal/services/votes"
	"github.com/ivankudzin/dealboard/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type VoteCaster interface {
	CastVote(ctx context.Context, offerID, userID string, value int) (votesvc.Result, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, identifier string, class enums.ActionClass) (rate.Decision, error)
}

type VotesHandler struct {
	ledger  VoteCaster
	limiter RateLimiter
	silent  bool
}

// NewVotesHandler builds the vote endpoint. With silentUnauthenticated set,
// anonymous callers get {"ok":true} and nothing is recorded.
func NewVotesHandler(ledger VoteCaster, limiter RateLimiter, silentUnauthenticated bool) *VotesHandler {
	return &VotesHandler{ledger: ledger, limiter: limiter, silent: silentUnauthenticated}
}

func (h *VotesHandler) Cast(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		if h.silent {
			httperrors.Write(w, http.StatusOK, dto.VoteResponse{OK: true})
			return
		}
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "VOTES_SERVICE_UNAVAILABLE", "votes service is unavailable")
		return
	}

	var req dto.VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.Value != 1 && req.Value != -1 {
		writeBadRequest(w, "VALIDATION_ERROR", "value must be 1 or -1")
		return
	}

	if h.limiter != nil {
		decision, err := h.limiter.Allow(r.Context(), identity.UserID, enums.ActionClassVote)
		if err == nil && !decision.Allowed {
			httperrors.WriteRateLimited(w, decision.RetryAfterSec(), &httperrors.RateLimitError{
				Code:    "RATE_LIMITED",
				Message: "too many votes, slow down",
			})
			return
		}
	}

	result, err := h.ledger.CastVote(r.Context(), req.OfferID, identity.UserID, req.Value)
	if err != nil {
		writeServiceError(w, err, "failed to record vote")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.VoteResponse{
		OK:           true,
		AppliedValue: &result.AppliedValue,
		UpVotes:      &result.UpVotes,
		DownVotes:    &result.DownVotes,
	})
}
