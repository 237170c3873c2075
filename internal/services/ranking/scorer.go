// Package ranking turns vote aggregates and offer age into feed ordering keys.
// Everything here is pure; callers pass the clock.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ivankudzin/dealboard/internal/config"
	"github.com/ivankudzin/dealboard/internal/domain/model"
)

type Params struct {
	Gravity          float64
	AgeOffsetHours   float64
	AgeFloorHours    float64
	ScoreWeight      float64
	EngagementWeight float64
	ClickWeight      float64
}

func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Ranking)
}

func ParamsFromConfig(cfg config.RankingConfig) Params {
	p := Params(cfg)
	if p.Gravity <= 0 {
		p.Gravity = 1.5
	}
	if p.AgeFloorHours <= 0 {
		p.AgeFloorHours = 2
	}
	if p.AgeOffsetHours < 0 {
		p.AgeOffsetHours = 0
	}
	if p.ScoreWeight <= 0 {
		p.ScoreWeight = 1
	}
	if p.EngagementWeight < 0 {
		p.EngagementWeight = 0
	}
	if p.ClickWeight < 0 {
		p.ClickWeight = 0
	}
	return p
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(raw string) (Period, bool) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, true
	case "":
		return PeriodWeek, true
	default:
		return "", false
	}
}

func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.Add(-24 * time.Hour)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	default:
		return now.Add(-7 * 24 * time.Hour)
	}
}

func Score(upVotes, downVotes int) int {
	return upVotes - downVotes
}

func AgeHours(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		return 0
	}
	return age
}

func (p Params) decay(ageHours float64) float64 {
	return math.Pow(math.Max(ageHours+p.AgeOffsetHours, p.AgeFloorHours), p.Gravity)
}

// ScoreFinal is score / max(ageHours + offset, floor) ^ gravity.
func (p Params) ScoreFinal(score float64, ageHours float64) float64 {
	return score / p.decay(ageHours)
}

type BlendInput struct {
	WeightedScore float64
	Views         int64
	Clicks        int64
	AgeHours      float64
}

// Blend mixes the vote signal with engagement and divides by the same age
// decay as ScoreFinal. softplus keeps the numerator positive so older offers
// always rank lower at equal votes, and it is strictly increasing so more
// votes always rank higher at equal age.
func (p Params) Blend(in BlendInput) float64 {
	views := math.Max(float64(in.Views), 0)
	clicks := math.Max(float64(in.Clicks), 0)
	engagement := math.Log1p(views + p.ClickWeight*clicks)
	q := p.ScoreWeight*in.WeightedScore + p.EngagementWeight*engagement
	return softplus(q) / p.decay(in.AgeHours)
}

func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	if x < -30 {
		return math.Exp(x)
	}
	return math.Log1p(math.Exp(x))
}

type Ranked struct {
	Offer        model.Offer
	Score        int
	ScoreFinal   float64
	RankingBlend float64
}

func (p Params) Rank(offer model.Offer, now time.Time) Ranked {
	age := AgeHours(offer.CreatedAt, now)
	score := Score(offer.UpVotes, offer.DownVotes)
	return Ranked{
		Offer:      offer,
		Score:      score,
		ScoreFinal: p.ScoreFinal(float64(score), age),
		RankingBlend: p.Blend(BlendInput{
			WeightedScore: offer.WeightedScore,
			Views:         offer.ViewCount,
			Clicks:        offer.ClickCount,
			AgeHours:      age,
		}),
	}
}

// TopOfPeriod keeps offers created within the period with a positive raw
// score, ordered by ScoreFinal descending.
func (p Params) TopOfPeriod(offers []model.Offer, period Period, now time.Time) []Ranked {
	since := period.Since(now)
	out := make([]Ranked, 0, len(offers))
	for _, offer := range offers {
		if offer.CreatedAt.Before(since) {
			continue
		}
		r := p.Rank(offer, now)
		if r.Score <= 0 {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].ScoreFinal, out[j].ScoreFinal, out[i].Offer, out[j].Offer)
	})
	return out
}

func (p Params) Recommended(offers []model.Offer, now time.Time) []Ranked {
	out := make([]Ranked, 0, len(offers))
	for _, offer := range offers {
		out = append(out, p.Rank(offer, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].RankingBlend, out[j].RankingBlend, out[i].Offer, out[j].Offer)
	})
	return out
}

// less orders by key descending, then newest first, then id, so pages stay
// stable between requests.
func less(a, b float64, oa, ob model.Offer) bool {
	if a != b {
		return a > b
	}
	if !oa.CreatedAt.Equal(ob.CreatedAt) {
		return oa.CreatedAt.After(ob.CreatedAt)
	}
	return oa.ID > ob.ID
}
