package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/ivankudzin/dealboard/internal/domain/model"
)

func TestScoreFinalStrictlyDecreasesWithAge(t *testing.T) {
	p := DefaultParams()

	prev := p.ScoreFinal(10, 0)
	for _, age := range []float64{0.5, 1, 2, 5, 24, 72, 500} {
		cur := p.ScoreFinal(10, age)
		if cur >= prev {
			t.Fatalf("age %v: expected %v < %v", age, cur, prev)
		}
		prev = cur
	}
}

func TestScoreFinalUsesFloor(t *testing.T) {
	p := DefaultParams()
	// age 0 -> max(0+2, 2)^1.5
	want := 8 / (2 * math.Sqrt2)
	if got := p.ScoreFinal(8, 0); math.Abs(got-want) > 1e-9 {
		t.Fatalf("unexpected score_final: got %v want %v", got, want)
	}
}

func TestFreshOfferCanOutrankOlderOne(t *testing.T) {
	p := DefaultParams()
	fresh := p.ScoreFinal(5, 1)
	old := p.ScoreFinal(40, 48)
	if fresh <= old {
		t.Fatalf("expected fresh %v > old %v", fresh, old)
	}
}

func TestBlendMonotonicity(t *testing.T) {
	p := DefaultParams()

	base := BlendInput{WeightedScore: 3, Views: 100, Clicks: 4, AgeHours: 6}
	more := base
	more.WeightedScore = 4
	if p.Blend(more) <= p.Blend(base) {
		t.Fatalf("more votes at equal age must rank higher")
	}

	older := base
	older.AgeHours = 30
	if p.Blend(older) >= p.Blend(base) {
		t.Fatalf("older offer at equal votes must rank lower")
	}

	negative := BlendInput{WeightedScore: -50, AgeHours: 1}
	negativeOlder := negative
	negativeOlder.AgeHours = 10
	if p.Blend(negative) <= 0 {
		t.Fatalf("blend must stay positive, got %v", p.Blend(negative))
	}
	if p.Blend(negativeOlder) >= p.Blend(negative) {
		t.Fatalf("age must still lower a negative offer")
	}
}

func TestTopOfPeriodFiltersAndSorts(t *testing.T) {
	p := DefaultParams()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	offers := []model.Offer{
		{ID: "a", CreatedAt: now.Add(-2 * time.Hour), UpVotes: 5},
		{ID: "b", CreatedAt: now.Add(-30 * time.Hour), UpVotes: 50, DownVotes: 2},
		{ID: "c", CreatedAt: now.Add(-3 * time.Hour), UpVotes: 1, DownVotes: 1},
		{ID: "d", CreatedAt: now.Add(-10 * 24 * time.Hour), UpVotes: 900},
	}

	day := p.TopOfPeriod(offers, PeriodDay, now)
	if len(day) != 1 || day[0].Offer.ID != "a" {
		t.Fatalf("unexpected day ranking: %+v", day)
	}

	week := p.TopOfPeriod(offers, PeriodWeek, now)
	if len(week) != 2 {
		t.Fatalf("expected 2 offers in the week, got %d", len(week))
	}
	for i := 1; i < len(week); i++ {
		if week[i-1].ScoreFinal < week[i].ScoreFinal {
			t.Fatalf("expected descending score_final at %d", i)
		}
	}

	if month := p.TopOfPeriod(offers, PeriodMonth, now); len(month) != 3 {
		t.Fatalf("expected 3 offers in the month, got %d", len(month))
	}
}

func TestRecommendedOrdersByBlend(t *testing.T) {
	p := DefaultParams()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	offers := []model.Offer{
		{ID: "old", CreatedAt: now.Add(-72 * time.Hour), WeightedScore: 3},
		{ID: "new", CreatedAt: now.Add(-1 * time.Hour), WeightedScore: 3},
	}

	ranked := p.Recommended(offers, now)
	if len(ranked) != 2 || ranked[0].Offer.ID != "new" {
		t.Fatalf("unexpected recommended order: %+v", ranked)
	}
}

func TestParsePeriod(t *testing.T) {
	got, ok := ParsePeriod("")
	if !ok || got != PeriodWeek {
		t.Fatalf("empty period must default to week, got %q %v", got, ok)
	}

	if _, ok := ParsePeriod("year"); ok {
		t.Fatalf("unknown period must be rejected")
	}
}
