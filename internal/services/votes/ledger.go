package votes

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

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type OfferStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, offerID string) (model.Offer, error)
	ApplyVoteDelta(ctx context.Context, tx pgx.Tx, offerID string, upDelta, downDelta int, weightedDelta float64) (model.VoteTally, error)
}

type VoteStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, offerID, userID string) (model.Vote, bool, error)
	Insert(ctx context.Context, tx pgx.Tx, vote model.Vote) error
	UpdateValue(ctx context.Context, tx pgx.Tx, offerID, userID string, value int, weight float64, now time.Time) error
	Delete(ctx context.Context, tx pgx.Tx, offerID, userID string) error
}

type LevelReader interface {
	GetLevel(ctx context.Context, userID string) (int, error)
}

type ReputationScheduler interface {
	Schedule(userID string)
}

type Recorder interface {
	VoteCast(applied int)
}

type Dependencies struct {
	Tx         TxRunner
	Offers     OfferStore
	Votes      VoteStore
	Levels     LevelReader
	Reputation ReputationScheduler
	Recorder   Recorder
	Logger     *zap.Logger
}

type Config struct {
	TrustedWeight float64
}

type Result struct {
	AppliedValue int `json:"applied_value"`
	UpVotes      int `json:"up_votes"`
	DownVotes    int `json:"down_votes"`
}

type Ledger struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(deps Dependencies, cfg Config) *Ledger {
	if cfg.TrustedWeight <= 0 {
		cfg.TrustedWeight = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ledger{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CastVote records value for (offerID, userID). Casting the value already on
// record removes the vote; casting the opposite value flips it. The vote row
// and the offer counters change in one transaction under the offer row lock.
func (l *Ledger) CastVote(ctx context.Context, offerID, userID string, value int) (Result, error) {
	offerID = strings.TrimSpace(offerID)
	userID = strings.TrimSpace(userID)
	if value != 1 && value != -1 {
		return Result{}, fmt.Errorf("%w: vote value must be 1 or -1", errs.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(offerID); err != nil {
		return Result{}, fmt.Errorf("%w: malformed offer id", errs.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return Result{}, fmt.Errorf("%w: malformed user id", errs.ErrInvalidArgument)
	}
	if l.deps.Tx == nil || l.deps.Offers == nil || l.deps.Votes == nil {
		return Result{}, errors.New("vote dependencies are not configured")
	}

	weight := 1.0
	if l.deps.Levels != nil {
		level, err := l.deps.Levels.GetLevel(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: read voter level: %w", errs.ErrUnavailable, err)
		}
		weight = rules.VoteWeight(level, l.cfg.TrustedWeight)
	}

	now := l.now().UTC()
	var (
		result   Result
		authorID string
	)
	err := l.deps.Tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		offer, err := l.deps.Offers.GetForUpdate(ctx, tx, offerID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrOfferNotFound) {
				return fmt.Errorf("%w: offer %s", errs.ErrNotFound, offerID)
			}
			return err
		}
		if offer.Status != enums.OfferStatusApproved {
			return fmt.Errorf("%w: offer %s", errs.ErrNotFound, offerID)
		}
		if offer.ExpiresAt != nil && !offer.ExpiresAt.After(now) {
			return fmt.Errorf("%w: offer %s has expired", errs.ErrNotFound, offerID)
		}
		authorID = offer.CreatedBy

		existing, found, err := l.deps.Votes.GetForUpdate(ctx, tx, offerID, userID)
		if err != nil {
			return err
		}

		var prev *model.Vote
		if found {
			prev = &existing
		}
		plan := planVote(prev, value, weight)

		switch plan.op {
		case opInsert:
			err = l.deps.Votes.Insert(ctx, tx, model.Vote{
				OfferID:   offerID,
				UserID:    userID,
				Value:     value,
				Weight:    weight,
				CreatedAt: now,
				UpdatedAt: now,
			})
		case opDelete:
			err = l.deps.Votes.Delete(ctx, tx, offerID, userID)
		case opUpdate:
			err = l.deps.Votes.UpdateValue(ctx, tx, offerID, userID, value, weight, now)
		}
		if err != nil {
			return err
		}

		tally, err := l.deps.Offers.ApplyVoteDelta(ctx, tx, offerID, plan.upDelta, plan.downDelta, plan.weightedDelta)
		if err != nil {
			return err
		}

		result = Result{
			AppliedValue: plan.applied,
			UpVotes:      tally.UpVotes,
			DownVotes:    tally.DownVotes,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: cast vote: %w", errs.ErrUnavailable, err)
	}

	if l.deps.Recorder != nil {
		l.deps.Recorder.VoteCast(result.AppliedValue)
	}
	if l.deps.Reputation != nil && authorID != "" {
		l.deps.Reputation.Schedule(authorID)
	}

	l.logger.Debug("vote cast",
		zap.String("offer_id", offerID),
		zap.String("user_id", userID),
		zap.Int("applied", result.AppliedValue),
	)

	return result, nil
}
