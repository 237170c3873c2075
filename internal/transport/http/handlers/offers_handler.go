package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	feedsvc "github.com/ivankudzin/dealboard/internal/services/feed"
	offersvc "github.com/ivankudzin/dealboard/internal/services/offers"
	"github.com/ivankudzin/dealboard/internal/services/ranking"
	"github.com/ivankudzin/dealboard/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type OfferSubmitter interface {
	Submit(ctx context.Context, authorID string, draft offersvc.Draft) (model.Offer, error)
	Report(ctx context.Context, offerID, reporterID, reason, details string) (int64, error)
}

type FeedLister interface {
	List(ctx context.Context, q feedsvc.Query) (feedsvc.Result, error)
}

type OffersHandler struct {
	offers OfferSubmitter
	feed   FeedLister
}

func NewOffersHandler(offers OfferSubmitter, feed FeedLister) *OffersHandler {
	return &OffersHandler{offers: offers, feed: feed}
}

func (h *OffersHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.offers == nil {
		writeInternal(w, "OFFERS_SERVICE_UNAVAILABLE", "offers service is unavailable")
		return
	}

	var draft offersvc.Draft
	if err := decodeJSON(r, &draft); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	offer, err := h.offers.Submit(r.Context(), identity.UserID, draft)
	if err != nil {
		writeServiceError(w, err, "failed to submit offer")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.CreateOfferResponse{
		ID:        offer.ID,
		Status:    string(offer.Status),
		ExpiresAt: offer.ExpiresAt,
	})
}

func (h *OffersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	query := r.URL.Query()
	sort, ok := feedsvc.ParseSort(query.Get("sort"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "sort must be recommended, top or latest")
		return
	}
	period, ok := ranking.ParsePeriod(query.Get("period"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "period must be day, week or month")
		return
	}

	result, err := h.feed.List(r.Context(), feedsvc.Query{
		Sort:   sort,
		Period: period,
		Cursor: query.Get("cursor"),
		Limit:  parseIntOrDefault(query.Get("limit"), 0),
	})
	if err != nil {
		writeServiceError(w, err, "failed to load offers")
		return
	}

	items := make([]dto.OfferItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, mapOfferItem(item))
	}

	var next *string
	if result.NextCursor != "" {
		next = &result.NextCursor
	}

	httperrors.Write(w, http.StatusOK, dto.OfferListResponse{
		Items:      items,
		NextCursor: next,
	})
}

// Report answers a rate-limited attempt with a bare 429.
func (h *OffersHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.offers == nil {
		writeInternal(w, "OFFERS_SERVICE_UNAVAILABLE", "offers service is unavailable")
		return
	}

	var req dto.ReportOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	id, err := h.offers.Report(r.Context(), chi.URLParam(r, "id"), identity.UserID, req.Reason, req.Details)
	if err != nil {
		if rl, ok := errs.AsRateLimit(err); ok {
			httperrors.WriteRateLimited(w, rl.RetryAfterSec(), nil)
			return
		}
		writeServiceError(w, err, "failed to report offer")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ReportOfferResponse{OK: true, ReportID: id})
}

func mapOfferItem(item feedsvc.Item) dto.OfferItem {
	o := item.Offer
	return dto.OfferItem{
		ID:            o.ID,
		Title:         o.Title,
		Description:   o.Description,
		URL:           o.URL,
		Store:         o.Store,
		Category:      o.Category,
		Price:         o.Price,
		OriginalPrice: o.OriginalPrice,
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.ExpiresAt,
		UpVotes:       o.UpVotes,
		DownVotes:     o.DownVotes,
		Score:         item.Score,
		ScoreFinal:    item.ScoreFinal,
		RankingBlend:  item.RankingBlend,
	}
}

func parseIntOrDefault(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
