package comments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	"github.com/ivankudzin/dealboard/internal/services/rate"
)

const (
	authorID  = "0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d"
	likerID   = "11111111-2222-4333-8444-555555555555"
	offerID   = "9b2f0d3c-1a4e-4f6b-8c7d-2e3f4a5b6c7d"
	commentID = "c0c0c0c0-1111-4222-8333-444444444444"
)

type txStub struct{}

func (txStub) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

type storeStub struct {
	created []model.Comment
	likes   map[string]bool
	missing bool
}

func (s *storeStub) Create(_ context.Context, c model.Comment) error {
	if s.missing {
		return pgrepo.ErrOfferNotFound
	}
	s.created = append(s.created, c)
	return nil
}

func (s *storeStub) ToggleLike(_ context.Context, _ pgx.Tx, _ string, userID string, _ time.Time) (bool, string, error) {
	if s.missing {
		return false, "", pgrepo.ErrCommentNotFound
	}
	if s.likes == nil {
		s.likes = map[string]bool{}
	}
	s.likes[userID] = !s.likes[userID]
	return s.likes[userID], authorID, nil
}

type levelStub int

func (l levelStub) GetLevel(context.Context, string) (int, error) { return int(l), nil }

type allowAll struct{}

func (allowAll) Allow(context.Context, string, enums.ActionClass) (rate.Decision, error) {
	return rate.Decision{Allowed: true}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, enums.ActionClass) (rate.Decision, error) {
	return rate.Decision{Allowed: false, RetryAfter: time.Second}, nil
}

type offerStub map[string]model.Offer

func (o offerStub) Get(_ context.Context, id string) (model.Offer, error) {
	offer, ok := o[id]
	if !ok {
		return model.Offer{}, pgrepo.ErrOfferNotFound
	}
	return offer, nil
}

type schedulerStub struct{ users []string }

func (s *schedulerStub) Schedule(userID string) { s.users = append(s.users, userID) }

func TestCreateStatusFollowsLevel(t *testing.T) {
	for _, tc := range []struct {
		level int
		want  enums.ModerationStatus
	}{
		{1, enums.ModerationStatusPending},
		{2, enums.ModerationStatusApproved},
		{4, enums.ModerationStatusApproved},
	} {
		store := &storeStub{}
		sched := &schedulerStub{}
		svc := NewService(Dependencies{Tx: txStub{}, Comments: store, Limiter: allowAll{}, Levels: levelStub(tc.level), Reputation: sched})

		c, err := svc.Create(context.Background(), authorID, offerID, "  great price  ")
		if err != nil {
			t.Fatalf("level %d: create: %v", tc.level, err)
		}
		if c.Status != tc.want || c.Body != "great price" {
			t.Fatalf("level %d: unexpected comment %+v", tc.level, c)
		}
		if approved := tc.want == enums.ModerationStatusApproved; approved != (len(sched.users) == 1) {
			t.Fatalf("level %d: recompute only for auto-approved comments, got %v", tc.level, sched.users)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(Dependencies{Comments: &storeStub{}, Limiter: allowAll{}, Levels: levelStub(1)})

	for _, body := range []string{"", "   ", strings.Repeat("x", maxBodyRunes+1)} {
		if _, err := svc.Create(context.Background(), authorID, offerID, body); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	}
}

func TestCreateRateLimitedAndMissingOffer(t *testing.T) {
	svc := NewService(Dependencies{Comments: &storeStub{}, Limiter: denyAll{}, Levels: levelStub(1)})
	if _, err := svc.Create(context.Background(), authorID, offerID, "hi"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}

	svc = NewService(Dependencies{Comments: &storeStub{missing: true}, Limiter: allowAll{}, Levels: levelStub(1)})
	if _, err := svc.Create(context.Background(), authorID, offerID, "hi"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleLikeSchedulesAuthor(t *testing.T) {
	store := &storeStub{}
	sched := &schedulerStub{}
	svc := NewService(Dependencies{Tx: txStub{}, Comments: store, Limiter: allowAll{}, Reputation: sched})

	first, err := svc.ToggleLike(context.Background(), commentID, likerID)
	if err != nil || !first.Liked {
		t.Fatalf("first toggle: %+v %v", first, err)
	}
	second, err := svc.ToggleLike(context.Background(), commentID, likerID)
	if err != nil || second.Liked {
		t.Fatalf("second toggle: %+v %v", second, err)
	}
	if len(sched.users) != 2 || sched.users[0] != authorID {
		t.Fatalf("expected author recompute on every toggle, got %v", sched.users)
	}
}

func TestToggleLikeUnknownComment(t *testing.T) {
	svc := NewService(Dependencies{Tx: txStub{}, Comments: &storeStub{missing: true}})
	if _, err := svc.ToggleLike(context.Background(), commentID, likerID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateRejectsClosedOffers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	for _, tc := range []struct {
		name  string
		offer model.Offer
		want  error
	}{
		{"pending", model.Offer{ID: offerID, Status: enums.OfferStatusPending}, errs.ErrNotFound},
		{"rejected", model.Offer{ID: offerID, Status: enums.OfferStatusRejected}, errs.ErrNotFound},
		{"expired", model.Offer{ID: offerID, Status: enums.OfferStatusApproved, ExpiresAt: &past}, errs.ErrNotFound},
		{"open", model.Offer{ID: offerID, Status: enums.OfferStatusApproved, ExpiresAt: &future}, nil},
	} {
		store := &storeStub{}
		svc := NewService(Dependencies{
			Comments: store,
			Offers:   offerStub{offerID: tc.offer},
			Limiter:  allowAll{},
			Levels:   levelStub(1),
		})
		svc.now = func() time.Time { return now }

		_, err := svc.Create(context.Background(), authorID, offerID, "still valid?")
		if tc.want == nil {
			if err != nil || len(store.created) != 1 {
				t.Fatalf("%s: expected comment stored, got %v (%d rows)", tc.name, err, len(store.created))
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if len(store.created) != 0 {
			t.Fatalf("%s: comment stored for closed offer", tc.name)
		}
	}

	svc := NewService(Dependencies{Comments: &storeStub{}, Offers: offerStub{}, Limiter: allowAll{}, Levels: levelStub(1)})
	if _, err := svc.Create(context.Background(), authorID, offerID, "hi"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for unknown offer, got %v", err)
	}
}
