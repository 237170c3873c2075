package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/ivankudzin/dealboard/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	"github.com/ivankudzin/dealboard/internal/services/rate"
)

type RateLimiter interface {
	Allow(ctx context.Context, identifier string, class enums.ActionClass) (rate.Decision, error)
}

type LevelReader interface {
	GetLevel(ctx context.Context, userID string) (int, error)
}

type Submitter interface {
	Submit(ctx context.Context, offer model.Offer, authorLevel int) (model.Offer, error)
}

type ReportStore interface {
	Create(ctx context.Context, report model.OfferReport) (int64, error)
}

type Dependencies struct {
	Limiter RateLimiter
	Levels  LevelReader
	Gate    Submitter
	Reports ReportStore
	Logger  *zap.Logger
}

// Draft is a user submission before moderation.
type Draft struct {
	Title         string   `json:"title" validate:"notblank,max=200"`
	Description   string   `json:"description" validate:"max=5000"`
	URL           string   `json:"url" validate:"omitempty,url,max=2048"`
	Store         string   `json:"store" validate:"notblank,max=120"`
	Category      string   `json:"category" validate:"max=80"`
	Price         *float64 `json:"price" validate:"required,gte=0"`
	OriginalPrice *float64 `json:"original_price" validate:"omitempty,gte=0"`
}

type Service struct {
	deps      Dependencies
	validator *validate.Validator
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		deps:      deps,
		validator: validate.New(),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Submit(ctx context.Context, authorID string, draft Draft) (model.Offer, error) {
	authorID = strings.TrimSpace(authorID)
	if _, err := uuid.Parse(authorID); err != nil {
		return model.Offer{}, fmt.Errorf("%w: malformed author id", errs.ErrInvalidArgument)
	}
	if err := s.validateDraft(draft); err != nil {
		return model.Offer{}, err
	}
	if s.deps.Gate == nil || s.deps.Levels == nil {
		return model.Offer{}, errors.New("offer dependencies are not configured")
	}

	if err := s.allow(ctx, authorID, enums.ActionClassOffers); err != nil {
		return model.Offer{}, err
	}

	level, err := s.deps.Levels.GetLevel(ctx, authorID)
	if err != nil {
		return model.Offer{}, fmt.Errorf("%w: read author level: %w", errs.ErrUnavailable, err)
	}

	offer, err := s.deps.Gate.Submit(ctx, model.Offer{
		Title:         strings.TrimSpace(draft.Title),
		Description:   strings.TrimSpace(draft.Description),
		URL:           strings.TrimSpace(draft.URL),
		Store:         strings.TrimSpace(draft.Store),
		Category:      strings.ToLower(strings.TrimSpace(draft.Category)),
		Price:         *draft.Price,
		OriginalPrice: draft.OriginalPrice,
		CreatedBy:     authorID,
	}, level)
	if err != nil {
		return model.Offer{}, err
	}

	s.logger.Info("offer submitted",
		zap.String("offer_id", offer.ID),
		zap.String("author_id", authorID),
		zap.Int("author_level", level),
		zap.String("status", string(offer.Status)),
	)

	return offer, nil
}

func (s *Service) Report(ctx context.Context, offerID, reporterID, reason, details string) (int64, error) {
	offerID = strings.TrimSpace(offerID)
	reporterID = strings.TrimSpace(reporterID)
	if _, err := uuid.Parse(offerID); err != nil {
		return 0, fmt.Errorf("%w: malformed offer id", errs.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(reporterID); err != nil {
		return 0, fmt.Errorf("%w: malformed reporter id", errs.ErrInvalidArgument)
	}
	parsed, ok := enums.ParseReportReason(reason)
	if !ok {
		return 0, fmt.Errorf("%w: unknown report reason", errs.ErrInvalidArgument)
	}
	if len(details) > 1000 {
		return 0, fmt.Errorf("%w: details are too long", errs.ErrInvalidArgument)
	}
	if s.deps.Reports == nil {
		return 0, errors.New("offer dependencies are not configured")
	}

	if err := s.allow(ctx, reporterID, enums.ActionClassReport); err != nil {
		return 0, err
	}

	id, err := s.deps.Reports.Create(ctx, model.OfferReport{
		OfferID:    offerID,
		ReporterID: reporterID,
		Reason:     parsed,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrOfferNotFound) {
			return 0, fmt.Errorf("%w: offer %s", errs.ErrNotFound, offerID)
		}
		return 0, fmt.Errorf("%w: create report: %w", errs.ErrUnavailable, err)
	}

	return id, nil
}

func (s *Service) validateDraft(draft Draft) error {
	if err := s.validator.Struct(draft); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidArgument, err.Error())
	}
	if draft.OriginalPrice != nil && *draft.OriginalPrice < *draft.Price {
		return fmt.Errorf("%w: original_price must not be lower than price", errs.ErrInvalidArgument)
	}
	return nil
}

func (s *Service) allow(ctx context.Context, identifier string, class enums.ActionClass) error {
	if s.deps.Limiter == nil {
		return nil
	}
	decision, err := s.deps.Limiter.Allow(ctx, identifier, class)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidArgument, err)
	}
	if !decision.Allowed {
		return &errs.RateLimitError{Class: string(class), RetryAfter: decision.RetryAfter}
	}
	return nil
}
