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

var ErrOfferNotFound = errors.New("offer not found")

type OfferRepo struct {
	pool *pgxpool.Pool
}

func NewOfferRepo(pool *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{pool: pool}
}

// RankingCacheRow is one refreshed cache entry for the derived ranking columns.
type RankingCacheRow struct {
	OfferID      string
	ScoreFinal   float64
	RankingBlend float64
}

// LatestCursor is the keyset position of the latest-first listing.
type LatestCursor struct {
	CreatedAt time.Time
	OfferID   string
}

const offerColumns = `
	id::text,
	title,
	description,
	url,
	store,
	category,
	price::float8,
	original_price::float8,
	status,
	created_by::text,
	created_at,
	updated_at,
	expires_at,
	up_votes,
	down_votes,
	weighted_score,
	view_count,
	click_count
`

func (r *OfferRepo) Create(ctx context.Context, tx pgx.Tx, offer model.Offer) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(offer.ID) == "" || strings.TrimSpace(offer.CreatedBy) == "" {
		return fmt.Errorf("invalid offer payload")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO offers (
	id,
	title,
	description,
	url,
	store,
	category,
	price,
	original_price,
	status,
	created_by,
	created_at,
	updated_at,
	expires_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $12)
`,
		offer.ID,
		offer.Title,
		offer.Description,
		offer.URL,
		offer.Store,
		offer.Category,
		offer.Price,
		offer.OriginalPrice,
		string(offer.Status),
		offer.CreatedBy,
		offer.CreatedAt,
		offer.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}

	return nil
}

// GetForUpdate locks the offer row for the rest of the transaction.
func (r *OfferRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, offerID string) (model.Offer, error) {
	if tx == nil {
		return model.Offer{}, fmt.Errorf("transaction is required")
	}

	offer, err := scanOffer(tx.QueryRow(ctx, `
SELECT `+offerColumns+`
FROM offers
WHERE id = $1
FOR UPDATE
`, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Offer{}, ErrOfferNotFound
		}
		return model.Offer{}, fmt.Errorf("lock offer: %w", err)
	}

	return offer, nil
}

func (r *OfferRepo) Get(ctx context.Context, offerID string) (model.Offer, error) {
	if r.pool == nil {
		return model.Offer{}, fmt.Errorf("postgres pool is nil")
	}

	offer, err := scanOffer(r.pool.QueryRow(ctx, `
SELECT `+offerColumns+`
FROM offers
WHERE id = $1
`, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Offer{}, ErrOfferNotFound
		}
		return model.Offer{}, fmt.Errorf("get offer: %w", err)
	}

	return offer, nil
}

func (r *OfferRepo) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	offerID string,
	status enums.OfferStatus,
	expiresAt *time.Time,
	now time.Time,
) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE offers
SET status = $2,
	expires_at = $3,
	updated_at = $4
WHERE id = $1
`, offerID, string(status), expiresAt, now)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}

	return nil
}

// ApplyVoteDelta shifts the denormalized counters and returns the new tally.
func (r *OfferRepo) ApplyVoteDelta(
	ctx context.Context,
	tx pgx.Tx,
	offerID string,
	upDelta, downDelta int,
	weightedDelta float64,
) (model.VoteTally, error) {
	if tx == nil {
		return model.VoteTally{}, fmt.Errorf("transaction is required")
	}

	tally := model.VoteTally{}
	err := tx.QueryRow(ctx, `
UPDATE offers
SET up_votes = up_votes + $2,
	down_votes = down_votes + $3,
	weighted_score = weighted_score + $4
WHERE id = $1
RETURNING up_votes, down_votes, weighted_score
`, offerID, upDelta, downDelta, weightedDelta).Scan(&tally.UpVotes, &tally.DownVotes, &tally.WeightedScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VoteTally{}, ErrOfferNotFound
		}
		return model.VoteTally{}, fmt.Errorf("apply vote delta: %w", err)
	}

	return tally, nil
}

// ListLatest returns approved, unexpired offers newest first, strictly after
// the cursor position when one is given.
func (r *OfferRepo) ListLatest(ctx context.Context, now time.Time, cursor *LatestCursor, limit int) ([]model.Offer, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit")
	}

	var (
		rows pgx.Rows
		err  error
	)
	if cursor == nil {
		rows, err = r.pool.Query(ctx, `
SELECT `+offerColumns+`
FROM offers
WHERE status = 'approved'
  AND (expires_at IS NULL OR expires_at > $1)
ORDER BY created_at DESC, id DESC
LIMIT $2
`, now, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
SELECT `+offerColumns+`
FROM offers
WHERE status = 'approved'
  AND (expires_at IS NULL OR expires_at > $1)
  AND (created_at, id) < ($2, $3::uuid)
ORDER BY created_at DESC, id DESC
LIMIT $4
`, now, cursor.CreatedAt, cursor.OfferID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list latest offers: %w", err)
	}

	return collectOffers(rows)
}

// CandidateOrder picks the ranking key candidates are selected by.
type CandidateOrder int

const (
	CandidatesByBlend CandidateOrder = iota
	CandidatesByScoreFinal
)

// RankingWeights has the field layout of ranking.Params.
type RankingWeights struct {
	Gravity          float64
	AgeOffsetHours   float64
	AgeFloorHours    float64
	ScoreWeight      float64
	EngagementWeight float64
	ClickWeight      float64
}

type CandidateQuery struct {
	Since        time.Time
	Now          time.Time
	PositiveOnly bool
	Order        CandidateOrder
	Weights      RankingWeights
	Limit        int
}

// ListCandidates returns approved, unexpired offers created since q.Since,
// keeping the q.Limit best by the decayed score or blend computed in SQL.
// The expressions mirror the ranking package; exp is clamped because
// Postgres raises on float underflow.
func (r *OfferRepo) ListCandidates(ctx context.Context, q CandidateQuery) ([]model.Offer, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("invalid limit")
	}

	rows, err := r.pool.Query(ctx, `
WITH scored AS (
	SELECT offers.*,
		power(
			greatest(greatest(extract(epoch FROM ($2::timestamptz - created_at))::float8 / 3600.0, 0) + $5::float8, $6::float8),
			$7::float8
		) AS decay,
		$8::float8 * weighted_score
			+ $9::float8 * ln(1 + greatest(view_count, 0) + $10::float8 * greatest(click_count, 0)) AS blend_input
	FROM offers
	WHERE status = 'approved'
	  AND created_at >= $1
	  AND (expires_at IS NULL OR expires_at > $2)
	  AND (NOT $3 OR up_votes - down_votes > 0)
)
SELECT `+offerColumns+`
FROM scored
ORDER BY
	CASE WHEN $4
		THEN (up_votes - down_votes)::float8 / decay
		ELSE (greatest(blend_input, 0) + ln(1 + exp(-least(abs(blend_input), 700)))) / decay
	END DESC,
	created_at DESC,
	id DESC
LIMIT $11
`,
		q.Since,
		q.Now,
		q.PositiveOnly,
		q.Order == CandidatesByScoreFinal,
		q.Weights.AgeOffsetHours,
		q.Weights.AgeFloorHours,
		q.Weights.Gravity,
		q.Weights.ScoreWeight,
		q.Weights.EngagementWeight,
		q.Weights.ClickWeight,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidate offers: %w", err)
	}

	return collectOffers(rows)
}

func (r *OfferRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text
FROM offers
WHERE status = 'approved'
  AND expires_at IS NOT NULL
  AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired offers: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired offer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired offers: %w", err)
	}

	return ids, nil
}

func (r *OfferRepo) UpdateRankingCache(ctx context.Context, rows []RankingCacheRow, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
UPDATE offers
SET score_final = $2,
	ranking_blend = $3,
	ranking_refreshed_at = $4
WHERE id = $1
`, row.OfferID, row.ScoreFinal, row.RankingBlend, now)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("update ranking cache: %w", err)
		}
	}

	return nil
}

func collectOffers(rows pgx.Rows) ([]model.Offer, error) {
	defer rows.Close()

	items := make([]model.Offer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		items = append(items, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	return items, nil
}

func scanOffer(row pgx.Row) (model.Offer, error) {
	var (
		offer  model.Offer
		status string
	)
	if err := row.Scan(
		&offer.ID,
		&offer.Title,
		&offer.Description,
		&offer.URL,
		&offer.Store,
		&offer.Category,
		&offer.Price,
		&offer.OriginalPrice,
		&status,
		&offer.CreatedBy,
		&offer.CreatedAt,
		&offer.UpdatedAt,
		&offer.ExpiresAt,
		&offer.UpVotes,
		&offer.DownVotes,
		&offer.WeightedScore,
		&offer.ViewCount,
		&offer.ClickCount,
	); err != nil {
		return model.Offer{}, err
	}
	offer.Status = enums.OfferStatus(status)

	return offer, nil
}
