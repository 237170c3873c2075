package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/config"
	"github.com/ivankudzin/dealboard/internal/domain/enums"
	redrepo "github.com/ivankudzin/dealboard/internal/repo/redis"
)

type WindowStore interface {
	AdmitSlidingWindow(ctx context.Context, key, member string, now time.Time, window time.Duration, capacity int) (redrepo.WindowResult, error)
}

type Recorder interface {
	RateLimitDecision(class, result string)
}

type Rule struct {
	Capacity int
	Window   time.Duration
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSec rounds RetryAfter up to whole seconds for the Retry-After header.
func (d Decision) RetryAfterSec() int64 {
	return ceilSeconds(d.RetryAfter)
}

type Limiter struct {
	store    WindowStore
	rules    map[enums.ActionClass]Rule
	fallback Rule
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func RulesFromConfig(cfg config.RateLimitsConfig) map[enums.ActionClass]Rule {
	return map[enums.ActionClass]Rule{
		enums.ActionClassWrite:      Rule(cfg.Write),
		enums.ActionClassVote:       Rule(cfg.Vote),
		enums.ActionClassOffers:     Rule(cfg.Offers),
		enums.ActionClassReport:     Rule(cfg.Report),
		enums.ActionClassComment:    Rule(cfg.Comment),
		enums.ActionClassEngagement: Rule(cfg.Engagement),
	}
}

func NewLimiter(store WindowStore, rules map[enums.ActionClass]Rule, recorder Recorder, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	cleaned := make(map[enums.ActionClass]Rule, len(rules))
	for class, rule := range rules {
		if rule.Capacity <= 0 || rule.Window <= 0 {
			continue
		}
		cleaned[class] = rule
	}

	fallback, ok := cleaned[enums.ActionClassWrite]
	if !ok {
		fallback = Rule{Capacity: 30, Window: time.Minute}
	}

	return &Limiter{
		store:    store,
		rules:    cleaned,
		fallback: fallback,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Allow counts one attempt of identifier against class. Store failures are
// logged and admitted.
func (l *Limiter) Allow(ctx context.Context, identifier string, class enums.ActionClass) (Decision, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Decision{}, fmt.Errorf("rate limit identifier is required")
	}

	rule := l.ruleFor(class)
	if l.store == nil {
		l.record(class, "fail_open")
		return Decision{Allowed: true, Remaining: rule.Capacity}, nil
	}

	res, err := l.store.AdmitSlidingWindow(ctx, key(class, identifier), uuid.NewString(), l.now(), rule.Window, rule.Capacity)
	if err != nil {
		l.logger.Warn("rate limiter store unavailable, allowing request",
			zap.String("class", string(class)),
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		l.record(class, "fail_open")
		return Decision{Allowed: true, Remaining: rule.Capacity}, nil
	}

	if !res.Allowed {
		l.record(class, "denied")
		retryAfter := res.RetryAfter
		if retryAfter <= 0 {
			retryAfter = rule.Window
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	l.record(class, "allowed")
	remaining := rule.Capacity - int(res.Count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

func (l *Limiter) ruleFor(class enums.ActionClass) Rule {
	if rule, ok := l.rules[class]; ok {
		return rule
	}
	return l.fallback
}

func (l *Limiter) record(class enums.ActionClass, result string) {
	if l.recorder == nil {
		return
	}
	l.recorder.RateLimitDecision(string(class), result)
}

func key(class enums.ActionClass, identifier string) string {
	return "rate:" + string(class) + ":" + identifier
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
