package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/ivankudzin/dealboard/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type ReputationReader interface {
	Current(ctx context.Context, userID string) (model.ReputationProfile, error)
}

type ReputationHandler struct {
	reader ReputationReader
}

func NewReputationHandler(reader ReputationReader) *ReputationHandler {
	return &ReputationHandler{reader: reader}
}

func (h *ReputationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeInternal(w, "REPUTATION_SERVICE_UNAVAILABLE", "reputation service is unavailable")
		return
	}

	profile, err := h.reader.Current(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to load reputation")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReputationResponse{
		UserID:    profile.UserID,
		Score:     profile.Score,
		Level:     profile.Level,
		UpdatedAt: profile.UpdatedAt,
	})
}
