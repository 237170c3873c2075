package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EngagementRepo struct {
	pool *pgxpool.Pool
}

// EngagementDelta is the aggregated view/click increment for one offer.
type EngagementDelta struct {
	OfferID string
	Views   int
	Clicks  int
}

func NewEngagementRepo(pool *pgxpool.Pool) *EngagementRepo {
	return &EngagementRepo{pool: pool}
}

// Increment applies the deltas to approved offers and returns how many rows
// were touched. Unknown or unlisted offers are skipped.
func (r *EngagementRepo) Increment(ctx context.Context, deltas []EngagementDelta) (int, error) {
	if len(deltas) == 0 {
		return 0, nil
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	const query = `
UPDATE offers
SET view_count = view_count + $2,
	click_count = click_count + $3
WHERE id = $1
  AND status = 'approved'
`

	batch := &pgx.Batch{}
	for _, delta := range deltas {
		batch.Queue(query, delta.OfferID, delta.Views, delta.Clicks)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	touched := 0
	for i := 0; i < len(deltas); i++ {
		tag, err := results.Exec()
		if err != nil {
			return touched, fmt.Errorf("increment engagement batch item #%d: %w", i, err)
		}
		touched += int(tag.RowsAffected())
	}

	return touched, nil
}
