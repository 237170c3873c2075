package offers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	"github.com/ivankudzin/dealboard/internal/services/rate"
)

const (
	authorID = "0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d"
	offerID  = "9b2f0d3c-1a4e-4f6b-8c7d-2e3f4a5b6c7d"
)

type limiterStub struct {
	deny    map[enums.ActionClass]bool
	classes []enums.ActionClass
}

func (l *limiterStub) Allow(_ context.Context, _ string, class enums.ActionClass) (rate.Decision, error) {
	l.classes = append(l.classes, class)
	if l.deny[class] {
		return rate.Decision{Allowed: false, RetryAfter: 12 * time.Second}, nil
	}
	return rate.Decision{Allowed: true}, nil
}

type levelStub int

func (l levelStub) GetLevel(context.Context, string) (int, error) { return int(l), nil }

type gateStub struct {
	submitted []model.Offer
	levels    []int
}

func (g *gateStub) Submit(_ context.Context, offer model.Offer, level int) (model.Offer, error) {
	g.submitted = append(g.submitted, offer)
	g.levels = append(g.levels, level)
	offer.ID = offerID
	offer.Status = enums.OfferStatusPending
	return offer, nil
}

type reportStub struct {
	err     error
	reports []model.OfferReport
}

func (r *reportStub) Create(_ context.Context, report model.OfferReport) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.reports = append(r.reports, report)
	return int64(len(r.reports)), nil
}

func price(v float64) *float64 { return &v }

func TestSubmitValidatesDraft(t *testing.T) {
	gate := &gateStub{}
	limiter := &limiterStub{}
	svc := NewService(Dependencies{Limiter: limiter, Levels: levelStub(1), Gate: gate})

	cases := []Draft{
		{Store: "shop", Price: price(10)},
		{Title: "TV", Price: price(10)},
		{Title: "TV", Store: "shop"},
		{Title: "TV", Store: "shop", Price: price(-1)},
		{Title: "TV", Store: "shop", Price: price(10), OriginalPrice: price(5)},
		{Title: "TV", Store: "shop", Price: price(10), URL: "not a url"},
	}
	for i, draft := range cases {
		if _, err := svc.Submit(context.Background(), authorID, draft); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("case %d: expected invalid argument, got %v", i, err)
		}
	}
	if len(gate.submitted) != 0 || len(limiter.classes) != 0 {
		t.Fatalf("invalid drafts must not reach the limiter or the gate")
	}
}

func TestSubmitPassesLevelToGate(t *testing.T) {
	gate := &gateStub{}
	limiter := &limiterStub{}
	svc := NewService(Dependencies{Limiter: limiter, Levels: levelStub(3), Gate: gate})

	offer, err := svc.Submit(context.Background(), authorID, Draft{
		Title:         "  Headphones ",
		Store:         "Shop",
		Category:      "Audio",
		Price:         price(49.9),
		OriginalPrice: price(99),
		URL:           "https://shop.example/p/1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if offer.ID != offerID || gate.levels[0] != 3 {
		t.Fatalf("unexpected submission: %+v levels=%v", offer, gate.levels)
	}
	if gate.submitted[0].Title != "Headphones" || gate.submitted[0].Category != "audio" || gate.submitted[0].CreatedBy != authorID {
		t.Fatalf("draft not normalized: %+v", gate.submitted[0])
	}
	if len(limiter.classes) != 1 || limiter.classes[0] != enums.ActionClassOffers {
		t.Fatalf("expected offers rate class, got %v", limiter.classes)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	gate := &gateStub{}
	svc := NewService(Dependencies{
		Limiter: &limiterStub{deny: map[enums.ActionClass]bool{enums.ActionClassOffers: true}},
		Levels:  levelStub(1),
		Gate:    gate,
	})

	_, err := svc.Submit(context.Background(), authorID, Draft{Title: "TV", Store: "shop", Price: price(1)})
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	rl, ok := errs.AsRateLimit(err)
	if !ok || rl.RetryAfterSec() != 12 {
		t.Fatalf("expected retry hint of 12s, got %+v", rl)
	}
	if len(gate.submitted) != 0 {
		t.Fatalf("rate limited submission must not be persisted")
	}
}

func TestReport(t *testing.T) {
	reports := &reportStub{}
	limiter := &limiterStub{}
	svc := NewService(Dependencies{Limiter: limiter, Reports: reports})

	if _, err := svc.Report(context.Background(), offerID, authorID, "lottery", ""); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown reason, got %v", err)
	}

	id, err := svc.Report(context.Background(), offerID, authorID, "SPAM", "same link posted five times")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if id != 1 || reports.reports[0].Reason != enums.ReportReasonSpam {
		t.Fatalf("unexpected report: id=%d %+v", id, reports.reports)
	}
	if limiter.classes[0] != enums.ActionClassReport {
		t.Fatalf("expected report rate class, got %v", limiter.classes)
	}

	reports.err = pgrepo.ErrOfferNotFound
	if _, err := svc.Report(context.Background(), offerID, authorID, "spam", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
