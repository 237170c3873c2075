package dto

type VoteRequest struct {
	OfferID string `json:"offerId"`
	Value   int    `json:"value"`
}

type VoteResponse struct {
	OK           bool `json:"ok"`
	AppliedValue *int `json:"applied_value,omitempty"`
	UpVotes      *int `json:"up_votes,omitempty"`
	DownVotes    *int `json:"down_votes,omitempty"`
}
