package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Get returns the stored profile. Users without a row get the level 1
// defaults rather than an error.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (model.ReputationProfile, error) {
	if r.pool == nil {
		return model.ReputationProfile{}, fmt.Errorf("postgres pool is nil")
	}

	profile := model.ReputationProfile{UserID: userID}
	var role string
	err := r.pool.QueryRow(ctx, `
SELECT role, reputation_score, reputation_level, updated_at
FROM profiles
WHERE user_id = $1
`, userID).Scan(&role, &profile.Score, &profile.Level, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ReputationProfile{
				UserID: userID,
				Role:   enums.RoleUser,
				Score:  0,
				Level:  1,
			}, nil
		}
		return model.ReputationProfile{}, fmt.Errorf("get profile: %w", err)
	}
	profile.Role = enums.Role(role)

	return profile, nil
}

func (r *ProfileRepo) GetLevel(ctx context.Context, userID string) (int, error) {
	profile, err := r.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return profile.Level, nil
}

func (r *ProfileRepo) GetRole(ctx context.Context, userID string) (enums.Role, error) {
	profile, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}

// LoadHistory reduces everything the reputation score depends on in a single
// statement so the counts come from one snapshot.
func (r *ProfileRepo) LoadHistory(ctx context.Context, userID string) (model.ReputationHistory, error) {
	if r.pool == nil {
		return model.ReputationHistory{}, fmt.Errorf("postgres pool is nil")
	}

	h := model.ReputationHistory{}
	err := r.pool.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*)::INT FROM offers WHERE created_by = $1 AND status IN ('approved', 'expired')),
	(SELECT COUNT(*)::INT FROM offers WHERE created_by = $1 AND status = 'rejected'),
	(SELECT COUNT(*)::INT FROM comments WHERE created_by = $1 AND status = 'approved'),
	(SELECT COUNT(*)::INT FROM comments WHERE created_by = $1 AND status = 'rejected'),
	(SELECT COUNT(*)::INT
		FROM comment_likes cl
		JOIN comments c ON c.id = cl.comment_id
		WHERE c.created_by = $1 AND cl.user_id <> $1)
`, userID).Scan(
		&h.ApprovedOffers,
		&h.RejectedOffers,
		&h.ApprovedComments,
		&h.RejectedComments,
		&h.LikesReceived,
	)
	if err != nil {
		return model.ReputationHistory{}, fmt.Errorf("load reputation history: %w", err)
	}

	return h, nil
}

func (r *ProfileRepo) UpsertReputation(ctx context.Context, userID string, score, level int, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profiles (
	user_id,
	reputation_score,
	reputation_level,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (user_id) DO UPDATE SET
	reputation_score = EXCLUDED.reputation_score,
	reputation_level = EXCLUDED.reputation_level,
	updated_at = EXCLUDED.updated_at
`, userID, score, level, now); err != nil {
		return fmt.Errorf("upsert reputation: %w", err)
	}

	return nil
}

func (r *ProfileRepo) SetRole(ctx context.Context, userID string, role enums.Role) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profiles (user_id, role, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	role = EXCLUDED.role,
	updated_at = NOW()
`, userID, string(role)); err != nil {
		return fmt.Errorf("set profile role: %w", err)
	}

	return nil
}
