package reputation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/errs"
)

type Recalculator interface {
	Recalculate(ctx context.Context, userID string) (Profile, error)
}

type Recorder interface {
	ReputationRecompute(result string)
	ReputationDropped()
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	MaxRetries  int
}

// Dispatcher runs recomputations off the request path. Schedule never blocks:
// when the queue is full the request is dropped, since the next trigger
// recomputes from scratch anyway.
type Dispatcher struct {
	calc     Recalculator
	cfg      DispatcherConfig
	logger   *zap.Logger
	recorder Recorder

	queue     chan string
	workers   *pool.Pool
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewDispatcher(calc Recalculator, cfg DispatcherConfig, recorder Recorder, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		calc:     calc,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		queue:    make(chan string, cfg.QueueSize),
		workers:  pool.New().WithMaxGoroutines(cfg.Workers),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.workers.Go(d.drain)
	}

	return d
}

func (d *Dispatcher) Schedule(userID string) {
	if d == nil || userID == "" {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- userID:
	default:
		d.logger.Warn("reputation queue full, dropping recompute", zap.String("user_id", userID))
		if d.recorder != nil {
			d.recorder.ReputationDropped()
		}
	}
}

// Close stops accepting work and waits until queued tasks finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.workers.Wait()
	})
}

func (d *Dispatcher) drain() {
	for userID := range d.queue {
		d.run(userID)
	}
}

func (d *Dispatcher) run(userID string) {
	var catcher panics.Catcher
	var err error
	catcher.Try(func() {
		err = d.recalculate(userID)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
	}

	if err != nil {
		d.logger.Error("reputation recompute failed", zap.String("user_id", userID), zap.Error(err))
		d.record("error")
		return
	}
	d.record("ok")
}

func (d *Dispatcher) recalculate(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.TaskTimeout)
	defer cancel()

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(500*time.Millisecond),
		backoff.WithMaxElapsedTime(d.cfg.TaskTimeout),
	), uint64(d.cfg.MaxRetries))

	return backoff.Retry(func() error {
		profile, err := d.calc.Recalculate(ctx, userID)
		if err != nil {
			if errors.Is(err, errs.ErrInvalidArgument) {
				return backoff.Permanent(err)
			}
			return err
		}
		d.logger.Debug("reputation recomputed",
			zap.String("user_id", userID),
			zap.Int("score", profile.Score),
			zap.Int("level", profile.Level),
		)
		return nil
	}, backoff.WithContext(b, ctx))
}

func (d *Dispatcher) record(result string) {
	if d.recorder == nil {
		return
	}
	d.recorder.ReputationRecompute(result)
}
