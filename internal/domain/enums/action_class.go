package enums

// ActionClass selects the rate limit bucket a write is counted against.
type ActionClass string

const (
	ActionClassWrite      ActionClass = "write"
	ActionClassVote       ActionClass = "vote"
	ActionClassOffers     ActionClass = "offers"
	ActionClassReport     ActionClass = "report"
	ActionClassComment    ActionClass = "comment"
	ActionClassEngagement ActionClass = "engagement"
)
