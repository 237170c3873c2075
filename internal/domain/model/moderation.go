package model

import (
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
)

// ModerationLogEntry is one row of the append-only offer audit trail.
// A nil ModeratorID marks a system transition.
type ModerationLogEntry struct {
	ID             int64                  `json:"id"`
	OfferID        string                 `json:"offer_id"`
	ModeratorID    *string                `json:"moderator_id,omitempty"`
	Action         enums.ModerationAction `json:"action"`
	PreviousStatus *enums.OfferStatus     `json:"previous_status,omitempty"`
	NewStatus      enums.OfferStatus      `json:"new_status"`
	Reason         string                 `json:"reason,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
