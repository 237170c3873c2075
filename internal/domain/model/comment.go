package model

import (
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
)

type Comment struct {
	ID        string                 `json:"id"`
	OfferID   string                 `json:"offer_id"`
	CreatedBy string                 `json:"created_by"`
	Body      string                 `json:"body"`
	Status    enums.ModerationStatus `json:"status"`
	Reason    string                 `json:"reason,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
