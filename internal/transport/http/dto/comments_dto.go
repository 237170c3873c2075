package dto

import "time"

type CreateCommentRequest struct {
	OfferID string `json:"offerId"`
	Body    string `json:"body"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offer_id"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentLikeResponse struct {
	OK    bool `json:"ok"`
	Liked bool `json:"liked"`
}
