package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, report model.OfferReport) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(report.OfferID) == "" || strings.TrimSpace(report.ReporterID) == "" {
		return 0, fmt.Errorf("invalid report payload")
	}
	if strings.TrimSpace(string(report.Reason)) == "" {
		return 0, fmt.Errorf("report reason is required")
	}

	rows, err := r.pool.Query(ctx, `
INSERT INTO offer_reports (
	offer_id,
	reporter_id,
	reason,
	details,
	created_at
)
SELECT o.id, $2, $3, $4, $5
FROM offers o
WHERE o.id = $1
RETURNING id
`, report.OfferID, report.ReporterID, string(report.Reason), strings.TrimSpace(report.Details), report.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create offer report: %w", err)
	}
	defer rows.Close()

	var id int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("create offer report: %w", err)
		}
		return 0, ErrOfferNotFound
	}
	if err := rows.Scan(&id); err != nil {
		return 0, fmt.Errorf("scan report id: %w", err)
	}

	return id, nil
}
