package dto

import "time"

type ReputationResponse struct {
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Level     int       `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}
