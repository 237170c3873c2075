package dto

import "time"

type ModerationDecideRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type ModerationBatchRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason"`
}

type ModerationTransitionResponse struct {
	ID             string     `json:"id"`
	PreviousStatus string     `json:"previous_status"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type ModerationBatchItem struct {
	ID     string        `json:"id"`
	OK     bool          `json:"ok"`
	Status string        `json:"status,omitempty"`
	Error  *APIErrorItem `json:"error,omitempty"`
}

type APIErrorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ModerationBatchResponse struct {
	Items     []ModerationBatchItem `json:"items"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}

type ModerationRejectReasonItem struct {
	ReasonCode string `json:"reason_code"`
	Label      string `json:"label"`
	ReasonText string `json:"reason_text"`
}

type ModerationRejectReasonsResponse struct {
	Items []ModerationRejectReasonItem `json:"items"`
}

type ModerationLogItem struct {
	ID             int64     `json:"id"`
	ModeratorID    *string   `json:"moderator_id"`
	Action         string    `json:"action"`
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ModerationLogResponse struct {
	Items []ModerationLogItem `json:"items"`
}

type ModerationCommentDecideRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}
