package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/dealboard/internal/domain/model"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	commentsvc "github.com/ivankudzin/dealboard/internal/services/comments"
	"github.com/ivankudzin/dealboard/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type CommentService interface {
	Create(ctx context.Context, authorID, offerID, body string) (model.Comment, error)
	ToggleLike(ctx context.Context, commentID, userID string) (commentsvc.LikeResult, error)
}

type CommentsHandler struct {
	service CommentService
}

func NewCommentsHandler(service CommentService) *CommentsHandler {
	return &CommentsHandler{service: service}
}

func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "COMMENTS_SERVICE_UNAVAILABLE", "comments service is unavailable")
		return
	}

	var req dto.CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	comment, err := h.service.Create(r.Context(), identity.UserID, req.OfferID, req.Body)
	if err != nil {
		writeServiceError(w, err, "failed to create comment")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.CommentResponse{
		ID:        comment.ID,
		OfferID:   comment.OfferID,
		Body:      comment.Body,
		Status:    string(comment.Status),
		CreatedAt: comment.CreatedAt,
	})
}

func (h *CommentsHandler) Like(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "COMMENTS_SERVICE_UNAVAILABLE", "comments service is unavailable")
		return
	}

	result, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "failed to like comment")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CommentLikeResponse{OK: true, Liked: result.Liked})
}
