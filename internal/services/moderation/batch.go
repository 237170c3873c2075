package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
)

// ItemResult is the per-offer outcome of a batch. Err is nil on success.
type ItemResult struct {
	OfferID    string
	Transition Transition
	Err        error
}

// BatchResult keeps per-item outcomes in request order. Items are applied
// one by one: a failure never undoes earlier successes.
type BatchResult struct {
	Items     []ItemResult
	Succeeded int
	Failed    int
}

func (g *Gate) BatchApprove(ctx context.Context, offerIDs []string, moderatorID string) (BatchResult, error) {
	if err := validateBatch(offerIDs); err != nil {
		return BatchResult{}, err
	}
	return g.runBatch(ctx, offerIDs, func(ctx context.Context, id string) (Transition, error) {
		return g.Decide(ctx, id, moderatorID, enums.OfferStatusApproved, "")
	}), nil
}

func (g *Gate) BatchReject(ctx context.Context, offerIDs []string, moderatorID, reason string) (BatchResult, error) {
	if err := validateBatch(offerIDs); err != nil {
		return BatchResult{}, err
	}
	if ResolveRejectReason(reason) == "" {
		return BatchResult{}, fmt.Errorf("%w: reason is required when rejecting", errs.ErrInvalidArgument)
	}
	return g.runBatch(ctx, offerIDs, func(ctx context.Context, id string) (Transition, error) {
		return g.Decide(ctx, id, moderatorID, enums.OfferStatusRejected, reason)
	}), nil
}

// BatchExpire expires each offer. A nil actor marks the system.
func (g *Gate) BatchExpire(ctx context.Context, offerIDs []string, actorID *string) (BatchResult, error) {
	if err := validateBatch(offerIDs); err != nil {
		return BatchResult{}, err
	}
	return g.runBatch(ctx, offerIDs, func(ctx context.Context, id string) (Transition, error) {
		return g.Expire(ctx, id, actorID)
	}), nil
}

func (g *Gate) runBatch(ctx context.Context, offerIDs []string, apply func(context.Context, string) (Transition, error)) BatchResult {
	result := BatchResult{Items: make([]ItemResult, 0, len(offerIDs))}
	for _, raw := range offerIDs {
		id := strings.TrimSpace(raw)
		item := ItemResult{OfferID: id}
		if err := ctx.Err(); err != nil {
			item.Err = err
		} else {
			item.Transition, item.Err = apply(ctx, id)
		}

		if item.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func validateBatch(offerIDs []string) error {
	if len(offerIDs) == 0 {
		return fmt.Errorf("%w: ids are required", errs.ErrInvalidArgument)
	}
	if len(offerIDs) > maxBatchSize {
		return fmt.Errorf("%w: at most %d ids per batch", errs.ErrInvalidArgument, maxBatchSize)
	}
	return nil
}
