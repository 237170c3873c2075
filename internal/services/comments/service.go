package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	"github.com/ivankudzin/dealboard/internal/services/moderation"
	"github.com/ivankudzin/dealboard/internal/services/rate"
)

const maxBodyRunes = 4000

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type CommentStore interface {
	Create(ctx context.Context, comment model.Comment) error
	ToggleLike(ctx context.Context, tx pgx.Tx, commentID, userID string, now time.Time) (bool, string, error)
}

type OfferReader interface {
	Get(ctx context.Context, offerID string) (model.Offer, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, identifier string, class enums.ActionClass) (rate.Decision, error)
}

type LevelReader interface {
	GetLevel(ctx context.Context, userID string) (int, error)
}

type ReputationScheduler interface {
	Schedule(userID string)
}

type Dependencies struct {
	Tx         TxRunner
	Comments   CommentStore
	Offers     OfferReader
	Limiter    RateLimiter
	Levels     LevelReader
	Reputation ReputationScheduler
	Logger     *zap.Logger
}

type LikeResult struct {
	Liked bool `json:"liked"`
}

type Service struct {
	deps   Dependencies
	logger *zap.Logger
	now    func() time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, logger: logger, now: time.Now}
}

// Create stores a comment. Authors from level 2 skip the review queue.
func (s *Service) Create(ctx context.Context, authorID, offerID, body string) (model.Comment, error) {
	authorID = strings.TrimSpace(authorID)
	offerID = strings.TrimSpace(offerID)
	body = strings.TrimSpace(body)
	if _, err := uuid.Parse(authorID); err != nil {
		return model.Comment{}, fmt.Errorf("%w: malformed author id", errs.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(offerID); err != nil {
		return model.Comment{}, fmt.Errorf("%w: malformed offer id", errs.ErrInvalidArgument)
	}
	if body == "" {
		return model.Comment{}, fmt.Errorf("%w: body is required", errs.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(body) > maxBodyRunes {
		return model.Comment{}, fmt.Errorf("%w: body is too long", errs.ErrInvalidArgument)
	}
	if s.deps.Comments == nil || s.deps.Levels == nil {
		return model.Comment{}, errors.New("comment dependencies are not configured")
	}

	if s.deps.Limiter != nil {
		decision, err := s.deps.Limiter.Allow(ctx, authorID, enums.ActionClassComment)
		if err != nil {
			return model.Comment{}, fmt.Errorf("%w: %w", errs.ErrInvalidArgument, err)
		}
		if !decision.Allowed {
			return model.Comment{}, &errs.RateLimitError{Class: string(enums.ActionClassComment), RetryAfter: decision.RetryAfter}
		}
	}

	level, err := s.deps.Levels.GetLevel(ctx, authorID)
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: read author level: %w", errs.ErrUnavailable, err)
	}

	now := s.now().UTC()
	if err := s.checkOpen(ctx, offerID, now); err != nil {
		return model.Comment{}, err
	}

	comment := model.Comment{
		ID:        uuid.NewString(),
		OfferID:   offerID,
		CreatedBy: authorID,
		Body:      body,
		Status:    moderation.CommentStatus(level),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, pgrepo.ErrOfferNotFound) {
			return model.Comment{}, fmt.Errorf("%w: offer %s", errs.ErrNotFound, offerID)
		}
		return model.Comment{}, fmt.Errorf("%w: create comment: %w", errs.ErrUnavailable, err)
	}

	if comment.Status == enums.ModerationStatusApproved && s.deps.Reputation != nil {
		s.deps.Reputation.Schedule(authorID)
	}

	return comment, nil
}

// checkOpen rejects offers that are not approved or have expired.
func (s *Service) checkOpen(ctx context.Context, offerID string, now time.Time) error {
	if s.deps.Offers == nil {
		return nil
	}
	offer, err := s.deps.Offers.Get(ctx, offerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrOfferNotFound) {
			return fmt.Errorf("%w: offer %s", errs.ErrNotFound, offerID)
		}
		return fmt.Errorf("%w: read offer: %w", errs.ErrUnavailable, err)
	}
	if offer.Status != enums.OfferStatusApproved {
		return fmt.Errorf("%w: offer %s is not open for comments", errs.ErrNotFound, offerID)
	}
	if offer.ExpiresAt != nil && !offer.ExpiresAt.After(now) {
		return fmt.Errorf("%w: offer %s has expired", errs.ErrNotFound, offerID)
	}
	return nil
}

// ToggleLike likes an approved comment, or removes the caller's like.
func (s *Service) ToggleLike(ctx context.Context, commentID, userID string) (LikeResult, error) {
	commentID = strings.TrimSpace(commentID)
	userID = strings.TrimSpace(userID)
	if _, err := uuid.Parse(commentID); err != nil {
		return LikeResult{}, fmt.Errorf("%w: malformed comment id", errs.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return LikeResult{}, fmt.Errorf("%w: malformed user id", errs.ErrInvalidArgument)
	}
	if s.deps.Tx == nil || s.deps.Comments == nil {
		return LikeResult{}, errors.New("comment dependencies are not configured")
	}

	if s.deps.Limiter != nil {
		decision, err := s.deps.Limiter.Allow(ctx, userID, enums.ActionClassWrite)
		if err != nil {
			return LikeResult{}, fmt.Errorf("%w: %w", errs.ErrInvalidArgument, err)
		}
		if !decision.Allowed {
			return LikeResult{}, &errs.RateLimitError{Class: string(enums.ActionClassWrite), RetryAfter: decision.RetryAfter}
		}
	}

	var (
		liked    bool
		authorID string
	)
	err := s.deps.Tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		liked, authorID, err = s.deps.Comments.ToggleLike(ctx, tx, commentID, userID, s.now().UTC())
		return err
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrCommentNotFound) {
			return LikeResult{}, fmt.Errorf("%w: comment %s", errs.ErrNotFound, commentID)
		}
		return LikeResult{}, fmt.Errorf("%w: toggle like: %w", errs.ErrUnavailable, err)
	}

	if authorID != "" && authorID != userID && s.deps.Reputation != nil {
		s.deps.Reputation.Schedule(authorID)
	}

	return LikeResult{Liked: liked}, nil
}
