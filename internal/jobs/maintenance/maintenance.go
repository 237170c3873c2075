package maintenance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	modsvc "github.com/ivankudzin/dealboard/internal/services/moderation"
	"github.com/ivankudzin/dealboard/internal/services/ranking"
)

// maxExpireRounds bounds one run so a large backlog cannot pin the job.
const maxExpireRounds = 20

type OfferSource interface {
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]model.Offer, error)
	UpdateRankingCache(ctx context.Context, rows []pgrepo.RankingCacheRow, now time.Time) error
}

type Expirer interface {
	BatchExpire(ctx context.Context, offerIDs []string, actorID *string) (modsvc.BatchResult, error)
}

type Config struct {
	Interval      time.Duration
	BatchSize     int
	RankingWindow time.Duration
	MaxCandidates int
}

type Report struct {
	Expired       int
	ExpireFailed  int
	RankingCached int
}

// Job expires approved offers past their visibility window and refreshes the
// cached ranking columns. Reads never depend on the cache.
type Job struct {
	offers  OfferSource
	expirer Expirer
	params  ranking.Params
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

func New(offers OfferSource, expirer Expirer, params ranking.Params, cfg Config, logger *zap.Logger) *Job {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.RankingWindow <= 0 {
		cfg.RankingWindow = 14 * 24 * time.Hour
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		offers:  offers,
		expirer: expirer,
		params:  params,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

func (j *Job) Run(ctx context.Context) (Report, error) {
	var report Report
	if j.offers == nil {
		return report, nil
	}

	if j.expirer != nil {
		if err := j.expire(ctx, &report); err != nil {
			return report, err
		}
	}

	if err := j.refreshRanking(ctx, &report); err != nil {
		return report, err
	}

	j.logger.Info("maintenance run completed",
		zap.Int("expired", report.Expired),
		zap.Int("expire_failed", report.ExpireFailed),
		zap.Int("ranking_cached", report.RankingCached),
	)
	return report, nil
}

func (j *Job) expire(ctx context.Context, report *Report) error {
	for round := 0; round < maxExpireRounds; round++ {
		ids, err := j.offers.ListExpiredIDs(ctx, j.now().UTC(), j.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("list expired offers: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		result, err := j.expirer.BatchExpire(ctx, ids, nil)
		if err != nil {
			return fmt.Errorf("expire offers: %w", err)
		}
		report.Expired += result.Succeeded
		report.ExpireFailed += result.Failed
		for _, item := range result.Items {
			if item.Err != nil {
				j.logger.Warn("offer expiry failed", zap.String("offer_id", item.OfferID), zap.Error(item.Err))
			}
		}

		if len(ids) < j.cfg.BatchSize || result.Succeeded == 0 {
			return nil
		}
	}
	return nil
}

func (j *Job) refreshRanking(ctx context.Context, report *Report) error {
	now := j.now().UTC()
	offers, err := j.offers.ListCandidates(ctx, pgrepo.CandidateQuery{
		Since:   now.Add(-j.cfg.RankingWindow),
		Now:     now,
		Order:   pgrepo.CandidatesByBlend,
		Weights: pgrepo.RankingWeights(j.params),
		Limit:   j.cfg.MaxCandidates,
	})
	if err != nil {
		return fmt.Errorf("list ranking candidates: %w", err)
	}
	if len(offers) == 0 {
		return nil
	}

	rows := make([]pgrepo.RankingCacheRow, 0, len(offers))
	for _, offer := range offers {
		r := j.params.Rank(offer, now)
		rows = append(rows, pgrepo.RankingCacheRow{
			OfferID:      offer.ID,
			ScoreFinal:   r.ScoreFinal,
			RankingBlend: r.RankingBlend,
		})
	}

	if err := j.offers.UpdateRankingCache(ctx, rows, now); err != nil {
		return fmt.Errorf("refresh ranking cache: %w", err)
	}
	report.RankingCached = len(rows)
	return nil
}

// Loop runs the job every interval until ctx is done. Failed runs are logged
// and retried on the next tick.
func (j *Job) Loop(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Error("maintenance run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
