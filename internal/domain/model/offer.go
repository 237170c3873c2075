package model

import (
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
)

type Offer struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	URL           string            `json:"url,omitempty"`
	Store         string            `json:"store"`
	Category      string            `json:"category,omitempty"`
	Price         float64           `json:"price"`
	OriginalPrice *float64          `json:"original_price,omitempty"`
	Status        enums.OfferStatus `json:"status"`
	CreatedBy     string            `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	UpVotes       int               `json:"up_votes"`
	DownVotes     int               `json:"down_votes"`
	WeightedScore float64           `json:"-"`
	ViewCount     int64             `json:"view_count"`
	ClickCount    int64             `json:"click_count"`
}

func (o Offer) Score() int {
	return o.UpVotes - o.DownVotes
}

// VoteTally is the denormalized aggregate state of an offer's votes.
type VoteTally struct {
	UpVotes       int
	DownVotes     int
	WeightedScore float64
}

type OfferReport struct {
	ID         int64              `json:"id"`
	OfferID    string             `json:"offer_id"`
	ReporterID string             `json:"reporter_id"`
	Reason     enums.ReportReason `json:"reason"`
	Details    string             `json:"details,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
