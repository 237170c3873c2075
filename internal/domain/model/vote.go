package model

import "time"

type Vote struct {
	OfferID   string    `json:"offer_id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	Weight    float64   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
