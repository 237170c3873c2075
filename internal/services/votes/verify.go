package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
)

type OfferReader interface {
	Get(ctx context.Context, offerID string) (model.Offer, error)
}

type VoteCounter interface {
	CountByValue(ctx context.Context, offerID string) (up, down int, err error)
}

// Mismatch is an offer whose denormalized counters disagree with its vote rows.
type Mismatch struct {
	OfferID       string
	CachedUp      int
	CachedDown    int
	LedgerUp      int
	LedgerDown    int
	OfferNotFound bool
}

// VerifyCounters recounts the vote rows of each offer and reports every offer
// whose up_votes/down_votes differ from the recount.
func VerifyCounters(ctx context.Context, offers OfferReader, votes VoteCounter, offerIDs []string) ([]Mismatch, error) {
	if offers == nil || votes == nil {
		return nil, errors.New("verify dependencies are not configured")
	}

	mismatches := make([]Mismatch, 0)
	for _, raw := range offerIDs {
		offerID := strings.TrimSpace(raw)

		offer, err := offers.Get(ctx, offerID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrOfferNotFound) {
				mismatches = append(mismatches, Mismatch{OfferID: offerID, OfferNotFound: true})
				continue
			}
			return nil, fmt.Errorf("load offer %s: %w", offerID, err)
		}

		up, down, err := votes.CountByValue(ctx, offerID)
		if err != nil {
			return nil, fmt.Errorf("recount offer %s: %w", offerID, err)
		}

		if up != offer.UpVotes || down != offer.DownVotes {
			mismatches = append(mismatches, Mismatch{
				OfferID:    offerID,
				CachedUp:   offer.UpVotes,
				CachedDown: offer.DownVotes,
				LedgerUp:   up,
				LedgerDown: down,
			})
		}
	}

	return mismatches, nil
}
