package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ModerationRepo writes the offer audit trail. Rows are only ever inserted.
type ModerationRepo struct {
	pool *pgxpool.Pool
}

func NewModerationRepo(pool *pgxpool.Pool) *ModerationRepo {
	return &ModerationRepo{pool: pool}
}

func (r *ModerationRepo) Append(ctx context.Context, tx pgx.Tx, entry model.ModerationLogEntry) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(entry.OfferID) == "" || entry.Action == "" || entry.NewStatus == "" {
		return fmt.Errorf("invalid moderation log payload")
	}

	var previous *string
	if entry.PreviousStatus != nil {
		v := string(*entry.PreviousStatus)
		previous = &v
	}
	var reason *string
	if trimmed := strings.TrimSpace(entry.Reason); trimmed != "" {
		reason = &trimmed
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO moderation_logs (
	offer_id,
	moderator_id,
	action,
	previous_status,
	new_status,
	reason,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`, entry.OfferID, entry.ModeratorID, string(entry.Action), previous, string(entry.NewStatus), reason, entry.CreatedAt); err != nil {
		return fmt.Errorf("append moderation log: %w", err)
	}

	return nil
}

func (r *ModerationRepo) ListByOffer(ctx context.Context, offerID string) ([]model.ModerationLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, offer_id::text, moderator_id::text, action, previous_status, new_status, COALESCE(reason, ''), created_at
FROM moderation_logs
WHERE offer_id = $1
ORDER BY id ASC
`, offerID)
	if err != nil {
		return nil, fmt.Errorf("list moderation logs: %w", err)
	}
	defer rows.Close()

	items := make([]model.ModerationLogEntry, 0)
	for rows.Next() {
		var (
			entry     model.ModerationLogEntry
			action    string
			previous  *string
			newStatus string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.OfferID,
			&entry.ModeratorID,
			&action,
			&previous,
			&newStatus,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan moderation log: %w", err)
		}
		entry.Action = enums.ModerationAction(action)
		entry.NewStatus = enums.OfferStatus(newStatus)
		if previous != nil {
			status := enums.OfferStatus(*previous)
			entry.PreviousStatus = &status
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation logs: %w", err)
	}

	return items, nil
}
