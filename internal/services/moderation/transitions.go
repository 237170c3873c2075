package moderation

import (
	"fmt"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
)

// allowedFrom lists the statuses each action may start from. rejected and
// expired never appear: offers are not resurrected.
var allowedFrom = map[enums.ModerationAction][]enums.OfferStatus{
	enums.ModerationActionApprove: {enums.OfferStatusPending, enums.OfferStatusApproved},
	enums.ModerationActionReject:  {enums.OfferStatusPending, enums.OfferStatusApproved},
	enums.ModerationActionExpire:  {enums.OfferStatusApproved},
}

var actionTarget = map[enums.ModerationAction]enums.OfferStatus{
	enums.ModerationActionApprove: enums.OfferStatusApproved,
	enums.ModerationActionReject:  enums.OfferStatusRejected,
	enums.ModerationActionExpire:  enums.OfferStatusExpired,
}

func nextStatus(current enums.OfferStatus, action enums.ModerationAction) (enums.OfferStatus, error) {
	target, ok := actionTarget[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown moderation action %q", errs.ErrInvalidArgument, action)
	}
	for _, from := range allowedFrom[action] {
		if from == current {
			return target, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s an offer in status %s", errs.ErrConflict, action, current)
}

func decisionAction(decision enums.OfferStatus, reason string) (enums.ModerationAction, error) {
	switch decision {
	case enums.OfferStatusApproved:
		return enums.ModerationActionApprove, nil
	case enums.OfferStatusRejected:
		if reason == "" {
			return "", fmt.Errorf("%w: reason is required when rejecting", errs.ErrInvalidArgument)
		}
		return enums.ModerationActionReject, nil
	default:
		return "", fmt.Errorf("%w: decision must be approved or rejected", errs.ErrInvalidArgument)
	}
}
