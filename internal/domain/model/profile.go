package model

import (
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
)

type ReputationProfile struct {
	UserID    string     `json:"user_id"`
	Role      enums.Role `json:"-"`
	Score     int        `json:"score"`
	Level     int        `json:"level"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ReputationHistory holds the counts a reputation score is reduced from.
type ReputationHistory struct {
	ApprovedOffers   int
	RejectedOffers   int
	ApprovedComments int
	RejectedComments int
	LikesReceived    int
}
