package dto

import "time"

type CreateOfferResponse struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type OfferItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	URL           string     `json:"url,omitempty"`
	Store         string     `json:"store"`
	Category      string     `json:"category,omitempty"`
	Price         float64    `json:"price"`
	OriginalPrice *float64   `json:"original_price,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	UpVotes       int        `json:"up_votes"`
	DownVotes     int        `json:"down_votes"`
	Score         int        `json:"score"`
	ScoreFinal    float64    `json:"score_final"`
	RankingBlend  float64    `json:"ranking_blend"`
}

type OfferListResponse struct {
	Items      []OfferItem `json:"items"`
	NextCursor *string     `json:"next_cursor"`
}

type ReportOfferRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

type ReportOfferResponse struct {
	OK       bool  `json:"ok"`
	ReportID int64 `json:"report_id"`
}

type EngagementEvent struct {
	OfferID string `json:"offerId"`
	Kind    string `json:"kind"`
}

type EngagementRequest struct {
	Events []EngagementEvent `json:"events"`
}

type EngagementResponse struct {
	OK       bool `json:"ok"`
	Accepted int  `json:"accepted"`
	Touched  int  `json:"touched"`
}
