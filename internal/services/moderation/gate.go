package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/ivankudzin/dealboard/internal/domain/rules"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
)

const (
	defaultVisibility = 7 * 24 * time.Hour
	maxBatchSize      = 200
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type OfferStore interface {
	Create(ctx context.Context, tx pgx.Tx, offer model.Offer) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, offerID string) (model.Offer, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, offerID string, status enums.OfferStatus, expiresAt *time.Time, now time.Time) error
}

type LogStore interface {
	Append(ctx context.Context, tx pgx.Tx, entry model.ModerationLogEntry) error
}

type CommentStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, commentID string) (model.Comment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, commentID string, status enums.ModerationStatus, reason string, now time.Time) error
}

type ReputationScheduler interface {
	Schedule(userID string)
}

type Recorder interface {
	ModerationAction(action string)
}

type Dependencies struct {
	Tx         TxRunner
	Offers     OfferStore
	Logs       LogStore
	Comments   CommentStore
	Reputation ReputationScheduler
	Recorder   Recorder
	Logger     *zap.Logger
}

type Config struct {
	OfferVisibility time.Duration
}

// Transition is the outcome of one applied status change.
type Transition struct {
	OfferID        string                 `json:"id"`
	PreviousStatus enums.OfferStatus      `json:"previous_status"`
	Status         enums.OfferStatus      `json:"status"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	Action         enums.ModerationAction `json:"-"`
}

// Gate owns offer publication status. Every applied transition writes one
// moderation log row in the same transaction as the status change.
type Gate struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewGate(deps Dependencies, cfg Config) *Gate {
	if cfg.OfferVisibility <= 0 {
		cfg.OfferVisibility = defaultVisibility
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gate{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// InitialStatus picks the status of a new submission from the author's level.
func (g *Gate) InitialStatus(authorLevel int, now time.Time) (enums.OfferStatus, *time.Time) {
	if rules.CanAutoApproveOffer(authorLevel) {
		expiresAt := now.Add(g.cfg.OfferVisibility)
		return enums.OfferStatusApproved, &expiresAt
	}
	return enums.OfferStatusPending, nil
}

// Submit persists a new offer with the status its author's level allows.
func (g *Gate) Submit(ctx context.Context, offer model.Offer, authorLevel int) (model.Offer, error) {
	if g.deps.Tx == nil || g.deps.Offers == nil || g.deps.Logs == nil {
		return model.Offer{}, errors.New("moderation dependencies are not configured")
	}
	if strings.TrimSpace(offer.ID) == "" {
		offer.ID = uuid.NewString()
	}

	now := g.now().UTC()
	offer.CreatedAt = now
	offer.UpdatedAt = now
	offer.UpVotes, offer.DownVotes, offer.WeightedScore = 0, 0, 0
	offer.Status, offer.ExpiresAt = g.InitialStatus(authorLevel, now)

	err := g.deps.Tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := g.deps.Offers.Create(ctx, tx, offer); err != nil {
			return err
		}
		if offer.Status != enums.OfferStatusApproved {
			return nil
		}
		return g.deps.Logs.Append(ctx, tx, model.ModerationLogEntry{
			OfferID:   offer.ID,
			Action:    enums.ModerationActionAutoApprove,
			NewStatus: enums.OfferStatusApproved,
			CreatedAt: now,
		})
	})
	if err != nil {
		return model.Offer{}, fmt.Errorf("%w: submit offer: %w", errs.ErrUnavailable, err)
	}

	if offer.Status == enums.OfferStatusApproved {
		g.record(enums.ModerationActionAutoApprove)
		g.schedule(offer.CreatedBy)
	}

	return offer, nil
}

// Decide applies a moderator decision. Rejections require a reason.
func (g *Gate) Decide(ctx context.Context, offerID, moderatorID string, decision enums.OfferStatus, reason string) (Transition, error) {
	reason = ResolveRejectReason(reason)
	action, err := decisionAction(decision, reason)
	if err != nil {
		return Transition{}, err
	}
	if err := requireUUID(moderatorID, "moderator id"); err != nil {
		return Transition{}, err
	}

	moderator := moderatorID
	return g.apply(ctx, offerID, &moderator, action, reason)
}

// Expire moves an approved offer to expired. A nil actor marks the system.
func (g *Gate) Expire(ctx context.Context, offerID string, actorID *string) (Transition, error) {
	if actorID != nil {
		if err := requireUUID(*actorID, "moderator id"); err != nil {
			return Transition{}, err
		}
	}
	return g.apply(ctx, offerID, actorID, enums.ModerationActionExpire, "")
}

func (g *Gate) apply(ctx context.Context, offerID string, actorID *string, action enums.ModerationAction, reason string) (Transition, error) {
	offerID = strings.TrimSpace(offerID)
	if err := requireUUID(offerID, "offer id"); err != nil {
		return Transition{}, err
	}
	if g.deps.Tx == nil || g.deps.Offers == nil || g.deps.Logs == nil {
		return Transition{}, errors.New("moderation dependencies are not configured")
	}

	now := g.now().UTC()
	var (
		result   Transition
		authorID string
	)
	err := g.deps.Tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		offer, err := g.deps.Offers.GetForUpdate(ctx, tx, offerID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrOfferNotFound) {
				return fmt.Errorf("%w: offer %s", errs.ErrNotFound, offerID)
			}
			return err
		}
		authorID = offer.CreatedBy

		next, err := nextStatus(offer.Status, action)
		if err != nil {
			return err
		}

		expiresAt := offer.ExpiresAt
		if next == enums.OfferStatusApproved && expiresAt == nil {
			stamped := now.Add(g.cfg.OfferVisibility)
			expiresAt = &stamped
		}

		if err := g.deps.Offers.UpdateStatus(ctx, tx, offerID, next, expiresAt, now); err != nil {
			return err
		}

		previous := offer.Status
		if err := g.deps.Logs.Append(ctx, tx, model.ModerationLogEntry{
			OfferID:        offerID,
			ModeratorID:    actorID,
			Action:         action,
			PreviousStatus: &previous,
			NewStatus:      next,
			Reason:         reason,
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		result = Transition{
			OfferID:        offerID,
			PreviousStatus: previous,
			Status:         next,
			ExpiresAt:      expiresAt,
			Action:         action,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrConflict) {
			return Transition{}, err
		}
		return Transition{}, fmt.Errorf("%w: moderate offer: %w", errs.ErrUnavailable, err)
	}

	g.record(action)
	g.schedule(authorID)
	g.logger.Info("offer moderated",
		zap.String("offer_id", offerID),
		zap.String("action", string(action)),
		zap.String("from", string(result.PreviousStatus)),
		zap.String("to", string(result.Status)),
	)

	return result, nil
}

// DecideComment approves or rejects a comment. Comments have no expiry and
// no offer audit row; the decision still feeds the author's reputation.
func (g *Gate) DecideComment(ctx context.Context, commentID, moderatorID string, decision enums.ModerationStatus, reason string) (model.Comment, error) {
	commentID = strings.TrimSpace(commentID)
	reason = strings.TrimSpace(reason)
	switch decision {
	case enums.ModerationStatusApproved:
	case enums.ModerationStatusRejected:
		if reason == "" {
			return model.Comment{}, fmt.Errorf("%w: reason is required when rejecting", errs.ErrInvalidArgument)
		}
	default:
		return model.Comment{}, fmt.Errorf("%w: decision must be approved or rejected", errs.ErrInvalidArgument)
	}
	if err := requireUUID(commentID, "comment id"); err != nil {
		return model.Comment{}, err
	}
	if err := requireUUID(moderatorID, "moderator id"); err != nil {
		return model.Comment{}, err
	}
	if g.deps.Tx == nil || g.deps.Comments == nil {
		return model.Comment{}, errors.New("moderation dependencies are not configured")
	}

	now := g.now().UTC()
	var comment model.Comment
	err := g.deps.Tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := g.deps.Comments.GetForUpdate(ctx, tx, commentID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrCommentNotFound) {
				return fmt.Errorf("%w: comment %s", errs.ErrNotFound, commentID)
			}
			return err
		}
		if current.Status == enums.ModerationStatusRejected {
			return fmt.Errorf("%w: comment %s is rejected", errs.ErrConflict, commentID)
		}
		if err := g.deps.Comments.UpdateStatus(ctx, tx, commentID, decision, reason, now); err != nil {
			return err
		}

		comment = current
		comment.Status = decision
		comment.Reason = reason
		comment.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrConflict) {
			return model.Comment{}, err
		}
		return model.Comment{}, fmt.Errorf("%w: moderate comment: %w", errs.ErrUnavailable, err)
	}

	g.schedule(comment.CreatedBy)
	g.logger.Info("comment moderated",
		zap.String("comment_id", commentID),
		zap.String("moderator_id", moderatorID),
		zap.String("status", string(decision)),
	)

	return comment, nil
}

// CommentStatus is the initial status of a new comment.
func CommentStatus(authorLevel int) enums.ModerationStatus {
	if rules.CanAutoApproveComment(authorLevel) {
		return enums.ModerationStatusApproved
	}
	return enums.ModerationStatusPending
}

func (g *Gate) record(action enums.ModerationAction) {
	if g.deps.Recorder == nil {
		return
	}
	g.deps.Recorder.ModerationAction(string(action))
}

func (g *Gate) schedule(userID string) {
	if g.deps.Reputation == nil || userID == "" {
		return
	}
	g.deps.Reputation.Schedule(userID)
}

func requireUUID(value, field string) error {
	if _, err := uuid.Parse(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%w: malformed %s", errs.ErrInvalidArgument, field)
	}
	return nil
}
