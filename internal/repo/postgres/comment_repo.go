package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

// Create inserts the comment if its offer is approved and unexpired.
func (r *CommentRepo) Create(ctx context.Context, comment model.Comment) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(comment.ID) == "" || strings.TrimSpace(comment.Body) == "" {
		return fmt.Errorf("invalid comment payload")
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO comments (
	id,
	offer_id,
	created_by,
	body,
	status,
	created_at,
	updated_at
)
SELECT $1, o.id, $3, $4, $5, $6, $6
FROM offers o
WHERE o.id = $2
  AND o.status = 'approved'
  AND (o.expires_at IS NULL OR o.expires_at > $6)
`, comment.ID, comment.OfferID, comment.CreatedBy, comment.Body, string(comment.Status), comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}

	return nil
}

func (r *CommentRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, commentID string) (model.Comment, error) {
	if tx == nil {
		return model.Comment{}, fmt.Errorf("transaction is required")
	}

	var (
		comment model.Comment
		status  string
	)
	err := tx.QueryRow(ctx, `
SELECT id::text, offer_id::text, created_by::text, body, status, COALESCE(reason, ''), created_at, updated_at
FROM comments
WHERE id = $1
FOR UPDATE
`, commentID).Scan(
		&comment.ID,
		&comment.OfferID,
		&comment.CreatedBy,
		&comment.Body,
		&status,
		&comment.Reason,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Comment{}, ErrCommentNotFound
		}
		return model.Comment{}, fmt.Errorf("lock comment: %w", err)
	}
	comment.Status = enums.ModerationStatus(status)

	return comment, nil
}

func (r *CommentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, commentID string, status enums.ModerationStatus, reason string, now time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	var reasonArg *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonArg = &trimmed
	}

	tag, err := tx.Exec(ctx, `
UPDATE comments
SET status = $2,
	reason = $3,
	updated_at = $4
WHERE id = $1
`, commentID, string(status), reasonArg, now)
	if err != nil {
		return fmt.Errorf("update comment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}

	return nil
}

// ToggleLike adds the like when absent and removes it otherwise. It returns
// whether the like exists afterwards and the comment's author.
func (r *CommentRepo) ToggleLike(ctx context.Context, tx pgx.Tx, commentID, userID string, now time.Time) (bool, string, error) {
	if tx == nil {
		return false, "", fmt.Errorf("transaction is required")
	}

	var authorID string
	err := tx.QueryRow(ctx, `
SELECT created_by::text
FROM comments
WHERE id = $1 AND status = 'approved'
FOR SHARE
`, commentID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, "", ErrCommentNotFound
		}
		return false, "", fmt.Errorf("lookup comment author: %w", err)
	}

	tag, err := tx.Exec(ctx, `
DELETE FROM comment_likes
WHERE comment_id = $1 AND user_id = $2
`, commentID, userID)
	if err != nil {
		return false, "", fmt.Errorf("delete comment like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, authorID, nil
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO comment_likes (comment_id, user_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (comment_id, user_id) DO NOTHING
`, commentID, userID, now); err != nil {
		return false, "", fmt.Errorf("insert comment like: %w", err)
	}

	return true, authorID, nil
}
