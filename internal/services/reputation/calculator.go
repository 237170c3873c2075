package reputation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	"github.com/ivankudzin/dealboard/internal/domain/rules"
)

type HistoryStore interface {
	LoadHistory(ctx context.Context, userID string) (model.ReputationHistory, error)
	UpsertReputation(ctx context.Context, userID string, score, level int, now time.Time) error
}

type ProfileReader interface {
	Get(ctx context.Context, userID string) (model.ReputationProfile, error)
}

type Profile struct {
	Score int `json:"score"`
	Level int `json:"level"`
}

type Calculator struct {
	history  HistoryStore
	profiles ProfileReader
	now      func() time.Time
}

func NewCalculator(history HistoryStore, profiles ProfileReader) *Calculator {
	return &Calculator{
		history:  history,
		profiles: profiles,
		now:      time.Now,
	}
}

// Recalculate reduces the user's whole history and stores the result in a
// single write. On error the stored profile is left untouched.
func (c *Calculator) Recalculate(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if _, err := uuid.Parse(userID); err != nil {
		return Profile{}, fmt.Errorf("%w: malformed user id", errs.ErrInvalidArgument)
	}
	if c.history == nil {
		return Profile{}, errors.New("reputation dependencies are not configured")
	}

	history, err := c.history.LoadHistory(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	score := rules.ReputationScore(history)
	level := rules.ReputationLevel(score)

	if err := c.history.UpsertReputation(ctx, userID, score, level, c.now().UTC()); err != nil {
		return Profile{}, err
	}

	return Profile{Score: score, Level: level}, nil
}

// Current returns the stored profile without recomputing it.
func (c *Calculator) Current(ctx context.Context, userID string) (model.ReputationProfile, error) {
	userID = strings.TrimSpace(userID)
	if _, err := uuid.Parse(userID); err != nil {
		return model.ReputationProfile{}, fmt.Errorf("%w: malformed user id", errs.ErrInvalidArgument)
	}
	if c.profiles == nil {
		return model.ReputationProfile{}, errors.New("reputation dependencies are not configured")
	}

	profile, err := c.profiles.Get(ctx, userID)
	if err != nil {
		return model.ReputationProfile{}, fmt.Errorf("%w: load profile: %w", errs.ErrUnavailable, err)
	}
	return profile, nil
}
