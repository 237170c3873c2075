package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/errs"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
)

const defaultMaxBatchSize = 100

const (
	KindView  = "view"
	KindClick = "click"
)

type Store interface {
	Increment(ctx context.Context, deltas []pgrepo.EngagementDelta) (int, error)
}

type Config struct {
	MaxBatchSize int
}

// Service ingests offer view and click events and folds them into the
// engagement counters read by the ranking blend.
type Service struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

type Event struct {
	OfferID string
	Kind    string
}

func NewService(store Store, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// IngestBatch validates the whole batch before writing anything and returns
// the number of offers whose counters moved.
func (s *Service) IngestBatch(ctx context.Context, events []Event) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("analytics store is nil")
	}
	if len(events) == 0 || len(events) > s.cfg.MaxBatchSize {
		return 0, fmt.Errorf("%w: batch must hold 1..%d events", errs.ErrInvalidArgument, s.cfg.MaxBatchSize)
	}

	byOffer := make(map[string]*pgrepo.EngagementDelta, len(events))
	for i, event := range events {
		offerID := strings.TrimSpace(event.OfferID)
		if _, err := uuid.Parse(offerID); err != nil {
			return 0, fmt.Errorf("%w: event #%d has a malformed offer id", errs.ErrInvalidArgument, i)
		}

		delta, ok := byOffer[offerID]
		if !ok {
			delta = &pgrepo.EngagementDelta{OfferID: offerID}
			byOffer[offerID] = delta
		}

		switch strings.ToLower(strings.TrimSpace(event.Kind)) {
		case KindView:
			delta.Views++
		case KindClick:
			delta.Clicks++
		default:
			return 0, fmt.Errorf("%w: event #%d has unknown kind %q", errs.ErrInvalidArgument, i, event.Kind)
		}
	}

	deltas := make([]pgrepo.EngagementDelta, 0, len(byOffer))
	for _, delta := range byOffer {
		deltas = append(deltas, *delta)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].OfferID < deltas[j].OfferID })

	touched, err := s.store.Increment(ctx, deltas)
	if err != nil {
		return 0, fmt.Errorf("%w: record engagement: %w", errs.ErrUnavailable, err)
	}

	s.logger.Debug("engagement recorded",
		zap.Int("events", len(events)),
		zap.Int("offers", len(deltas)),
		zap.Int("touched", touched),
	)

	return touched, nil
}
