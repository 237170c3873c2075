package enums

// ModerationStatus is the review state of user content that has no expiry
// (comments). Offers use OfferStatus.
type ModerationStatus string

const (
	ModerationStatusPending  ModerationStatus = "pending"
	ModerationStatusApproved ModerationStatus = "approved"
	ModerationStatusRejected ModerationStatus = "rejected"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusApproved OfferStatus = "approved"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

func (s OfferStatus) Terminal() bool {
	return s == OfferStatusRejected || s == OfferStatusExpired
}

// ModerationAction is the action recorded in moderation_logs.
type ModerationAction string

const (
	ModerationActionAutoApprove ModerationAction = "auto_approve"
	ModerationActionApprove     ModerationAction = "approve"
	ModerationActionReject      ModerationAction = "reject"
	ModerationActionExpire      ModerationAction = "expire"
)
