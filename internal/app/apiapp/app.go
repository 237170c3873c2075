package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/config"
	"github.com/ivankudzin/dealboard/internal/infra/metrics"
	"github.com/ivankudzin/dealboard/internal/jobs/maintenance"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	redrepo "github.com/ivankudzin/dealboard/internal/repo/redis"
	"github.com/ivankudzin/dealboard/internal/services/analytics"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	commentsvc "github.com/ivankudzin/dealboard/internal/services/comments"
	feedsvc "github.com/ivankudzin/dealboard/internal/services/feed"
	modsvc "github.com/ivankudzin/dealboard/internal/services/moderation"
	offersvc "github.com/ivankudzin/dealboard/internal/services/offers"
	"github.com/ivankudzin/dealboard/internal/services/ranking"
	ratesvc "github.com/ivankudzin/dealboard/internal/services/rate"
	repsvc "github.com/ivankudzin/dealboard/internal/services/reputation"
	votesvc "github.com/ivankudzin/dealboard/internal/services/votes"
	"github.com/ivankudzin/dealboard/internal/transport/http/handlers"
)

type App struct {
	cfg         config.Config
	logger      *zap.Logger
	server      *http.Server
	postgres    *pgxpool.Pool
	redis       *goredis.Client
	dispatcher  *repsvc.Dispatcher
	maintenance *maintenance.Job
	httpRouter  http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	m := metrics.New()
	r := chi.NewRouter()
	ApplyMiddlewares(r, log, m)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if cfg.Postgres.MigrateOnBoot {
			n, err := pgrepo.Migrate(pool, migrate.Up, 0)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate on boot: %w", err)
			}
			log.Info("migrations applied", zap.Int("count", n))
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable at boot, rate limiting fails open until it recovers", zap.Error(err))
	}
	cancelPing()

	txRunner := pgrepo.NewTxRunner(pool)
	offerRepo := pgrepo.NewOfferRepo(pool)
	voteRepo := pgrepo.NewVoteRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	moderationRepo := pgrepo.NewModerationRepo(pool)
	commentRepo := pgrepo.NewCommentRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	engagementRepo := pgrepo.NewEngagementRepo(pool)
	rateRepo := redrepo.NewRateRepo(redisClient)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	rateLimiter := ratesvc.NewLimiter(rateRepo, ratesvc.RulesFromConfig(cfg.RateLimits), m, log)

	calculator := repsvc.NewCalculator(profileRepo, profileRepo)
	dispatcher := repsvc.NewDispatcher(calculator, repsvc.DispatcherConfig{
		Workers:     cfg.Reputation.Workers,
		QueueSize:   cfg.Reputation.QueueSize,
		TaskTimeout: cfg.Reputation.TaskTimeout,
		MaxRetries:  cfg.Reputation.MaxRetries,
	}, m, log)

	gate := modsvc.NewGate(modsvc.Dependencies{
		Tx:         txRunner,
		Offers:     offerRepo,
		Logs:       moderationRepo,
		Comments:   commentRepo,
		Reputation: dispatcher,
		Recorder:   m,
		Logger:     log,
	}, modsvc.Config{OfferVisibility: cfg.Reputation.OfferVisibility})

	ledger := votesvc.NewLedger(votesvc.Dependencies{
		Tx:         txRunner,
		Offers:     offerRepo,
		Votes:      voteRepo,
		Levels:     profileRepo,
		Reputation: dispatcher,
		Recorder:   m,
		Logger:     log,
	}, votesvc.Config{TrustedWeight: cfg.Votes.TrustedWeight})

	offerService := offersvc.NewService(offersvc.Dependencies{
		Limiter: rateLimiter,
		Levels:  profileRepo,
		Gate:    gate,
		Reports: reportRepo,
		Logger:  log,
	})
	commentService := commentsvc.NewService(commentsvc.Dependencies{
		Tx:         txRunner,
		Comments:   commentRepo,
		Offers:     offerRepo,
		Limiter:    rateLimiter,
		Levels:     profileRepo,
		Reputation: dispatcher,
		Logger:     log,
	})

	engagementService := analytics.NewService(engagementRepo, analytics.Config{}, log)

	rankingParams := ranking.ParamsFromConfig(cfg.Ranking)
	feedService := feedsvc.NewService(offerRepo, feedsvc.ConfigFromSettings(cfg.Feed), rankingParams)
	maintenanceJob := maintenance.New(offerRepo, gate, rankingParams, maintenance.Config{
		Interval:      cfg.Jobs.MaintenanceInterval,
		BatchSize:     cfg.Jobs.ExpireBatchSize,
		RankingWindow: cfg.Feed.RecommendedWindow,
		MaxCandidates: cfg.Feed.MaxCandidates,
	}, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		Tokens:        jwtManager,
		Roles:         profileRepo,
		VoteLedger:    ledger,
		RateLimiter:   rateLimiter,
		Offers:        offerService,
		Feed:          feedService,
		Comments:      commentService,
		Moderation:    gate,
		ModerationLog: moderationRepo,
		Reputation:    calculator,
		Engagement:    engagementService,
		HealthChecks:  healthChecks(pool, redisClient),
		Metrics:       m.Handler(),
		Logger:        log,
		Config:        cfg,
	})

	return &App{
		cfg:         cfg,
		logger:      log,
		server:      server,
		postgres:    pool,
		redis:       redisClient,
		dispatcher:  dispatcher,
		maintenance: maintenanceJob,
		httpRouter:  r,
	}, nil
}

func healthChecks(pool *pgxpool.Pool, client *goredis.Client) map[string]handlers.HealthCheck {
	return map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error {
			if pool == nil {
				return errors.New("postgres is not configured")
			}
			return pool.Ping(ctx)
		},
		"redis": func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RunJobs blocks running background maintenance until ctx is done.
func (a *App) RunJobs(ctx context.Context) error {
	if a.postgres == nil {
		a.logger.Warn("maintenance job disabled, postgres is unavailable")
		<-ctx.Done()
		return nil
	}
	return a.maintenance.Loop(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
