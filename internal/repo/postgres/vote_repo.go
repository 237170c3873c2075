package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// GetForUpdate returns the caller's vote on the offer, if any, locking it.
func (r *VoteRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, offerID, userID string) (model.Vote, bool, error) {
	if tx == nil {
		return model.Vote{}, false, fmt.Errorf("transaction is required")
	}

	vote := model.Vote{}
	err := tx.QueryRow(ctx, `
SELECT offer_id::text, user_id::text, value, weight, created_at, updated_at
FROM offer_votes
WHERE offer_id = $1 AND user_id = $2
FOR UPDATE
`, offerID, userID).Scan(
		&vote.OfferID,
		&vote.UserID,
		&vote.Value,
		&vote.Weight,
		&vote.CreatedAt,
		&vote.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vote{}, false, nil
		}
		return model.Vote{}, false, fmt.Errorf("lookup vote: %w", err)
	}

	return vote, true, nil
}

func (r *VoteRepo) Insert(ctx context.Context, tx pgx.Tx, vote model.Vote) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if vote.Value != 1 && vote.Value != -1 {
		return fmt.Errorf("invalid vote value %d", vote.Value)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO offer_votes (
	offer_id,
	user_id,
	value,
	weight,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $5)
`, vote.OfferID, vote.UserID, vote.Value, vote.Weight, vote.CreatedAt); err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}

	return nil
}

func (r *VoteRepo) UpdateValue(ctx context.Context, tx pgx.Tx, offerID, userID string, value int, weight float64, now time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE offer_votes
SET value = $3,
	weight = $4,
	updated_at = $5
WHERE offer_id = $1 AND user_id = $2
`, offerID, userID, value, weight, now)
	if err != nil {
		return fmt.Errorf("update vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update vote: no row for offer %s", offerID)
	}

	return nil
}

func (r *VoteRepo) Delete(ctx context.Context, tx pgx.Tx, offerID, userID string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM offer_votes
WHERE offer_id = $1 AND user_id = $2
`, offerID, userID); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}

	return nil
}

// CountByValue recounts the vote rows of one offer.
func (r *VoteRepo) CountByValue(ctx context.Context, offerID string) (up, down int, err error) {
	if r.pool == nil {
		return 0, 0, fmt.Errorf("postgres pool is nil")
	}

	err = r.pool.QueryRow(ctx, `
SELECT
	COUNT(*) FILTER (WHERE value = 1)::INT,
	COUNT(*) FILTER (WHERE value = -1)::INT
FROM offer_votes
WHERE offer_id = $1
`, offerID).Scan(&up, &down)
	if err != nil {
		return 0, 0, fmt.Errorf("count votes: %w", err)
	}

	return up, down, nil
}
