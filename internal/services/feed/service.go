package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/dealboard/internal/config"
	"github.com/ivankudzin/dealboard/internal/domain/errs"
	"github.com/ivankudzin/dealboard/internal/domain/model"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	"github.com/ivankudzin/dealboard/internal/services/ranking"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

var ErrInvalidCursor = fmt.Errorf("%w: invalid cursor", errs.ErrInvalidArgument)

type Sort string

const (
	SortRecommended Sort = "recommended"
	SortTop         Sort = "top"
	SortLatest      Sort = "latest"
)

func ParseSort(raw string) (Sort, bool) {
	switch s := Sort(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortRecommended, SortTop, SortLatest:
		return s, true
	case "":
		return SortRecommended, true
	default:
		return "", false
	}
}

type Repository interface {
	ListLatest(ctx context.Context, now time.Time, cursor *pgrepo.LatestCursor, limit int) ([]model.Offer, error)
	ListCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]model.Offer, error)
}

type Config struct {
	DefaultLimit      int
	MaxLimit          int
	MaxCandidates     int
	RecommendedWindow time.Duration
}

func ConfigFromSettings(cfg config.FeedConfig) Config {
	return Config(cfg)
}

type Query struct {
	Sort   Sort
	Period ranking.Period
	Cursor string
	Limit  int
}

type Item struct {
	Offer        model.Offer
	Score        int
	ScoreFinal   float64
	RankingBlend float64
}

type Result struct {
	Items      []Item
	NextCursor string
}

type Service struct {
	repo   Repository
	cfg    Config
	params ranking.Params
	now    func() time.Time
}

type pageCursor struct {
	CreatedAt int64  `json:"t,omitempty"`
	OfferID   string `json:"i,omitempty"`
	Offset    int    `json:"o,omitempty"`
}

func NewService(repo Repository, cfg Config, params ranking.Params) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultPageSize
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxPageSize
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 500
	}
	if cfg.RecommendedWindow <= 0 {
		cfg.RecommendedWindow = 14 * 24 * time.Hour
	}

	return &Service{
		repo:   repo,
		cfg:    cfg,
		params: params,
		now:    time.Now,
	}
}

func (s *Service) List(ctx context.Context, q Query) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("feed repository is nil")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if q.Sort == "" {
		q.Sort = SortRecommended
	}

	decoded, hasCursor, err := decodeCursor(q.Cursor)
	if err != nil {
		return Result{}, err
	}

	now := s.now().UTC()
	switch q.Sort {
	case SortLatest:
		return s.latest(ctx, now, decoded, hasCursor, limit)
	case SortTop:
		period := q.Period
		if period == "" {
			period = ranking.PeriodWeek
		}
		return s.scored(ctx, now, decoded.Offset, limit, period.Since(now), true, pgrepo.CandidatesByScoreFinal, func(offers []model.Offer) []ranking.Ranked {
			return s.params.TopOfPeriod(offers, period, now)
		})
	case SortRecommended:
		return s.scored(ctx, now, decoded.Offset, limit, now.Add(-s.cfg.RecommendedWindow), false, pgrepo.CandidatesByBlend, func(offers []model.Offer) []ranking.Ranked {
			return s.params.Recommended(offers, now)
		})
	default:
		return Result{}, fmt.Errorf("%w: unknown sort %q", errs.ErrInvalidArgument, q.Sort)
	}
}

func (s *Service) latest(ctx context.Context, now time.Time, decoded pageCursor, hasCursor bool, limit int) (Result, error) {
	var cursor *pgrepo.LatestCursor
	if hasCursor {
		if decoded.CreatedAt <= 0 || decoded.OfferID == "" {
			return Result{}, ErrInvalidCursor
		}
		cursor = &pgrepo.LatestCursor{
			CreatedAt: time.UnixMicro(decoded.CreatedAt).UTC(),
			OfferID:   decoded.OfferID,
		}
	}

	offers, err := s.repo.ListLatest(ctx, now, cursor, limit+1)
	if err != nil {
		return Result{}, fmt.Errorf("%w: list latest: %w", errs.ErrUnavailable, err)
	}

	hasMore := len(offers) > limit
	if hasMore {
		offers = offers[:limit]
	}

	result := Result{Items: make([]Item, 0, len(offers))}
	for _, offer := range offers {
		result.Items = append(result.Items, toItem(s.params.Rank(offer, now)))
	}

	if hasMore && len(offers) > 0 {
		last := offers[len(offers)-1]
		next, err := encodeCursor(pageCursor{CreatedAt: last.CreatedAt.UnixMicro(), OfferID: last.ID})
		if err != nil {
			return Result{}, err
		}
		result.NextCursor = next
	}

	return result, nil
}

func (s *Service) scored(
	ctx context.Context,
	now time.Time,
	offset, limit int,
	since time.Time,
	positiveOnly bool,
	by pgrepo.CandidateOrder,
	order func([]model.Offer) []ranking.Ranked,
) (Result, error) {
	candidates, err := s.repo.ListCandidates(ctx, pgrepo.CandidateQuery{
		Since:        since,
		Now:          now,
		PositiveOnly: positiveOnly,
		Order:        by,
		Weights:      pgrepo.RankingWeights(s.params),
		Limit:        s.cfg.MaxCandidates,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: list candidates: %w", errs.ErrUnavailable, err)
	}

	ranked := order(candidates)
	if offset >= len(ranked) {
		return Result{Items: []Item{}}, nil
	}

	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}

	result := Result{Items: make([]Item, 0, end-offset)}
	for _, r := range ranked[offset:end] {
		result.Items = append(result.Items, toItem(r))
	}

	if end < len(ranked) {
		next, err := encodeCursor(pageCursor{Offset: end})
		if err != nil {
			return Result{}, err
		}
		result.NextCursor = next
	}

	return result, nil
}

func toItem(r ranking.Ranked) Item {
	return Item{
		Offer:        r.Offer,
		Score:        r.Score,
		ScoreFinal:   r.ScoreFinal,
		RankingBlend: r.RankingBlend,
	}
}

func decodeCursor(raw string) (pageCursor, bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return pageCursor{}, false, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return pageCursor{}, false, ErrInvalidCursor
	}

	var cursor pageCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return pageCursor{}, false, ErrInvalidCursor
	}
	if cursor.Offset < 0 {
		return pageCursor{}, false, ErrInvalidCursor
	}
	if cursor.OfferID != "" {
		if _, err := uuid.Parse(cursor.OfferID); err != nil {
			return pageCursor{}, false, ErrInvalidCursor
		}
	}

	return cursor, true, nil
}

func encodeCursor(cursor pageCursor) (string, error) {
	payload, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("marshal feed cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}
