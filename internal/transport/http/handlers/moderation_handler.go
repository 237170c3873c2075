package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	modsvc "github.com/ivankudzin/dealboard/internal/services/moderation"
	"github.com/ivankudzin/dealboard/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type ModerationGate interface {
	Decide(ctx context.Context, offerID, moderatorID string, decision enums.OfferStatus, reason string) (modsvc.Transition, error)
	BatchApprove(ctx context.Context, offerIDs []string, moderatorID string) (modsvc.BatchResult, error)
	BatchReject(ctx context.Context, offerIDs []string, moderatorID, reason string) (modsvc.BatchResult, error)
	BatchExpire(ctx context.Context, offerIDs []string, actorID *string) (modsvc.BatchResult, error)
	DecideComment(ctx context.Context, commentID, moderatorID string, decision enums.ModerationStatus, reason string) (model.Comment, error)
}

type ModerationLogReader interface {
	ListByOffer(ctx context.Context, offerID string) ([]model.ModerationLogEntry, error)
}

type ModerationHandler struct {
	gate ModerationGate
	logs ModerationLogReader
}

func NewModerationHandler(gate ModerationGate, logs ModerationLogReader) *ModerationHandler {
	return &ModerationHandler{gate: gate, logs: logs}
}

func (h *ModerationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.moderator(w, r)
	if !ok {
		return
	}

	var req dto.ModerationDecideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	transition, err := h.gate.Decide(
		r.Context(),
		req.ID,
		identity.UserID,
		enums.OfferStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		req.Reason,
	)
	if err != nil {
		writeServiceError(w, err, "failed to apply moderation decision")
		return
	}

	httperrors.Write(w, http.StatusOK, mapTransition(transition))
}

func (h *ModerationHandler) BatchApprove(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, func(ctx context.Context, moderatorID string, req dto.ModerationBatchRequest) (modsvc.BatchResult, error) {
		return h.gate.BatchApprove(ctx, req.IDs, moderatorID)
	})
}

func (h *ModerationHandler) BatchReject(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, func(ctx context.Context, moderatorID string, req dto.ModerationBatchRequest) (modsvc.BatchResult, error) {
		return h.gate.BatchReject(ctx, req.IDs, moderatorID, req.Reason)
	})
}

func (h *ModerationHandler) BatchExpire(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, func(ctx context.Context, moderatorID string, req dto.ModerationBatchRequest) (modsvc.BatchResult, error) {
		return h.gate.BatchExpire(ctx, req.IDs, &moderatorID)
	})
}

func (h *ModerationHandler) batch(
	w http.ResponseWriter,
	r *http.Request,
	run func(context.Context, string, dto.ModerationBatchRequest) (modsvc.BatchResult, error),
) {
	identity, ok := h.moderator(w, r)
	if !ok {
		return
	}

	var req dto.ModerationBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := run(r.Context(), identity.UserID, req)
	if err != nil {
		writeServiceError(w, err, "failed to apply batch")
		return
	}

	items := make([]dto.ModerationBatchItem, 0, len(result.Items))
	for _, item := range result.Items {
		row := dto.ModerationBatchItem{ID: item.OfferID, OK: item.Err == nil}
		if item.Err != nil {
			_, code, message := classify(item.Err, "failed to apply decision")
			row.Error = &dto.APIErrorItem{Code: code, Message: message}
		} else {
			row.Status = string(item.Transition.Status)
		}
		items = append(items, row)
	}

	httperrors.Write(w, http.StatusOK, dto.ModerationBatchResponse{
		Items:     items,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
}

func (h *ModerationHandler) DecideComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.moderator(w, r)
	if !ok {
		return
	}

	var req dto.ModerationCommentDecideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	comment, err := h.gate.DecideComment(
		r.Context(),
		req.ID,
		identity.UserID,
		enums.ModerationStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		req.Reason,
	)
	if err != nil {
		writeServiceError(w, err, "failed to moderate comment")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CommentResponse{
		ID:        comment.ID,
		OfferID:   comment.OfferID,
		Body:      comment.Body,
		Status:    string(comment.Status),
		CreatedAt: comment.CreatedAt,
	})
}

func (h *ModerationHandler) RejectReasons(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	reasons := modsvc.ListRejectReasons()
	items := make([]dto.ModerationRejectReasonItem, 0, len(reasons))
	for _, reason := range reasons {
		items = append(items, dto.ModerationRejectReasonItem(reason))
	}

	httperrors.Write(w, http.StatusOK, dto.ModerationRejectReasonsResponse{Items: items})
}

func (h *ModerationHandler) OfferLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.logs == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation log is unavailable")
		return
	}

	offerID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(offerID); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "malformed offer id")
		return
	}

	entries, err := h.logs.ListByOffer(r.Context(), offerID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load moderation log")
		return
	}

	items := make([]dto.ModerationLogItem, 0, len(entries))
	for _, entry := range entries {
		item := dto.ModerationLogItem{
			ID:          entry.ID,
			ModeratorID: entry.ModeratorID,
			Action:      string(entry.Action),
			NewStatus:   string(entry.NewStatus),
			Reason:      entry.Reason,
			CreatedAt:   entry.CreatedAt,
		}
		if entry.PreviousStatus != nil {
			prev := string(*entry.PreviousStatus)
			item.PreviousStatus = &prev
		}
		items = append(items, item)
	}

	httperrors.Write(w, http.StatusOK, dto.ModerationLogResponse{Items: items})
}

func (h *ModerationHandler) moderator(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if h.gate == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func mapTransition(t modsvc.Transition) dto.ModerationTransitionResponse {
	return dto.ModerationTransitionResponse{
		ID:             t.OfferID,
		PreviousStatus: string(t.PreviousStatus),
		Status:         string(t.Status),
		ExpiresAt:      t.ExpiresAt,
	}
}
