package reputation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
)

const userA = "3f1b7c1e-6a0b-4d4c-9a57-0c1d2b3e4f50"

type historyStoreStub struct {
	history  model.ReputationHistory
	loadErr  error
	writeErr error

	writes []model.ReputationProfile
}

func (s *historyStoreStub) LoadHistory(context.Context, string) (model.ReputationHistory, error) {
	return s.history, s.loadErr
}

func (s *historyStoreStub) UpsertReputation(_ context.Context, userID string, score, level int, now time.Time) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, model.ReputationProfile{UserID: userID, Score: score, Level: level, UpdatedAt: now})
	return nil
}

func TestRecalculateWritesScoreAndLevel(t *testing.T) {
	store := &historyStoreStub{history: model.ReputationHistory{ApprovedOffers: 20}}
	calc := NewCalculator(store, nil)

	profile, err := calc.Recalculate(context.Background(), userA)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if profile.Score != 200 || profile.Level != 3 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(store.writes) != 1 || store.writes[0].Level != 3 {
		t.Fatalf("expected exactly one profile write, got %+v", store.writes)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	store := &historyStoreStub{history: model.ReputationHistory{ApprovedOffers: 5, LikesReceived: 3}}
	calc := NewCalculator(store, nil)

	first, err := calc.Recalculate(context.Background(), userA)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := calc.Recalculate(context.Background(), userA)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Fatalf("recompute drifted: %+v vs %+v", first, second)
	}
}

func TestRecalculateFloorsAtZero(t *testing.T) {
	store := &historyStoreStub{history: model.ReputationHistory{RejectedOffers: 40, RejectedComments: 10}}
	calc := NewCalculator(store, nil)

	profile, err := calc.Recalculate(context.Background(), userA)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if profile.Score != 0 || profile.Level != 1 {
		t.Fatalf("expected floored profile, got %+v", profile)
	}
}

func TestRecalculateDoesNotWriteWhenHistoryFails(t *testing.T) {
	store := &historyStoreStub{loadErr: errors.New("connection reset")}
	calc := NewCalculator(store, nil)

	if _, err := calc.Recalculate(context.Background(), userA); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.writes) != 0 {
		t.Fatalf("no partial write allowed, got %+v", store.writes)
	}
}

func TestRecalculateRejectsMalformedID(t *testing.T) {
	calc := NewCalculator(&historyStoreStub{}, nil)
	_, err := calc.Recalculate(context.Background(), "not-a-uuid")
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
