package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/config"
	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/infra/logger"
	"github.com/ivankudzin/dealboard/internal/jobs/maintenance"
	pgrepo "github.com/ivankudzin/dealboard/internal/repo/postgres"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	modsvc "github.com/ivankudzin/dealboard/internal/services/moderation"
	"github.com/ivankudzin/dealboard/internal/services/ranking"
	repsvc "github.com/ivankudzin/dealboard/internal/services/reputation"
	votesvc "github.com/ivankudzin/dealboard/internal/services/votes"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "dealctl",
		Usage: "Deal board maintenance tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath(),
				Usage:   "Path to the YAML config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply or roll back database migrations",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply pending migrations",
						Action: handleMigrate(migrate.Up),
					},
					{
						Name:  "down",
						Usage: "Roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "steps",
								Value: 1,
								Usage: "Number of migrations to roll back",
							},
						},
						Action: handleMigrate(migrate.Down),
					},
				},
			},
			{
				Name:  "reputation",
				Usage: "Reputation maintenance",
				Commands: []*cli.Command{
					{
						Name:      "recalc",
						Usage:     "Recompute reputation for the given users",
						ArgsUsage: "USER_ID...",
						Action:    handleRecalc,
					},
				},
			},
			{
				Name:  "role",
				Usage: "Manage moderation roles",
				Commands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "Assign a role (user, moderator, admin) to a user",
						ArgsUsage: "USER_ID ROLE",
						Action:    handleRoleSet,
					},
				},
			},
			{
				Name:  "votes",
				Usage: "Vote ledger checks",
				Commands: []*cli.Command{
					{
						Name:      "verify",
						Usage:     "Compare offer vote counters with a recount of the vote rows",
						ArgsUsage: "OFFER_ID...",
						Action:    handleVotesVerify,
					},
				},
			},
			{
				Name:  "maintenance",
				Usage: "Offer maintenance",
				Commands: []*cli.Command{
					{
						Name:   "run",
						Usage:  "Expire due offers and refresh the ranking cache once",
						Action: handleMaintenance,
					},
				},
			},
			{
				Name:      "token",
				Usage:     "Issue a development access token",
				ArgsUsage: "USER_ID",
				Action:    handleToken,
			},
		},
	}

	return app.Run(ctx, os.Args)
}

func defaultConfigPath() string {
	if v := os.Getenv("APP_CONFIG"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

type env struct {
	cfg    config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context, c *cli.Command, needDB bool) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	lg, err := logger.New(cfg.Log.Level, "dealctl")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	e := &env{cfg: cfg, logger: lg}
	if !needDB {
		return e, nil
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return e, nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
	_ = e.logger.Sync()
}

func handleMigrate(direction migrate.MigrationDirection) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		e, err := setup(ctx, c, true)
		if err != nil {
			return err
		}
		defer e.close()

		limit := 0
		if direction == migrate.Down {
			limit = int(c.Int("steps"))
		}

		n, err := pgrepo.Migrate(e.pool, direction, limit)
		if err != nil {
			return err
		}

		e.logger.Info("migrations applied", zap.Int("count", n), zap.Bool("down", direction == migrate.Down))
		return nil
	}
}

func handleRecalc(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("at least one USER_ID is required")
	}

	e, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.close()

	profiles := pgrepo.NewProfileRepo(e.pool)
	calc := repsvc.NewCalculator(profiles, profiles)
	for _, userID := range c.Args().Slice() {
		profile, err := calc.Recalculate(ctx, userID)
		if err != nil {
			return fmt.Errorf("recalculate %s: %w", userID, err)
		}
		e.logger.Info("reputation recalculated",
			zap.String("user_id", userID),
			zap.Int("score", profile.Score),
			zap.Int("level", profile.Level),
		)
	}
	return nil
}

func handleRoleSet(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("USER_ID and ROLE are required")
	}
	userID := c.Args().Get(0)
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("malformed user id %q", userID)
	}
	role, ok := enums.ParseRole(c.Args().Get(1))
	if !ok {
		return fmt.Errorf("unknown role %q", c.Args().Get(1))
	}

	e, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.close()

	if err := pgrepo.NewProfileRepo(e.pool).SetRole(ctx, userID, role); err != nil {
		return err
	}

	e.logger.Info("role assigned", zap.String("user_id", userID), zap.String("role", string(role)))
	return nil
}

func handleVotesVerify(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("at least one OFFER_ID is required")
	}

	e, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.close()

	mismatches, err := votesvc.VerifyCounters(ctx, pgrepo.NewOfferRepo(e.pool), pgrepo.NewVoteRepo(e.pool), c.Args().Slice())
	if err != nil {
		return err
	}
	for _, m := range mismatches {
		if m.OfferNotFound {
			e.logger.Warn("offer not found", zap.String("offer_id", m.OfferID))
			continue
		}
		e.logger.Warn("vote counters drifted",
			zap.String("offer_id", m.OfferID),
			zap.Int("cached_up", m.CachedUp),
			zap.Int("cached_down", m.CachedDown),
			zap.Int("ledger_up", m.LedgerUp),
			zap.Int("ledger_down", m.LedgerDown),
		)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d of %d offers failed verification", len(mismatches), c.Args().Len())
	}

	e.logger.Info("vote counters verified", zap.Int("offers", c.Args().Len()))
	return nil
}

func handleMaintenance(ctx context.Context, c *cli.Command) error {
	e, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.close()

	offers := pgrepo.NewOfferRepo(e.pool)
	profiles := pgrepo.NewProfileRepo(e.pool)
	calc := repsvc.NewCalculator(profiles, profiles)
	dispatcher := repsvc.NewDispatcher(calc, repsvc.DispatcherConfig{
		Workers:     e.cfg.Reputation.Workers,
		QueueSize:   e.cfg.Reputation.QueueSize,
		TaskTimeout: e.cfg.Reputation.TaskTimeout,
		MaxRetries:  e.cfg.Reputation.MaxRetries,
	}, nil, e.logger)
	defer dispatcher.Close()

	gate := modsvc.NewGate(modsvc.Dependencies{
		Tx:         pgrepo.NewTxRunner(e.pool),
		Offers:     offers,
		Logs:       pgrepo.NewModerationRepo(e.pool),
		Comments:   pgrepo.NewCommentRepo(e.pool),
		Reputation: dispatcher,
		Logger:     e.logger,
	}, modsvc.Config{OfferVisibility: e.cfg.Reputation.OfferVisibility})

	job := maintenance.New(offers, gate, ranking.ParamsFromConfig(e.cfg.Ranking), maintenance.Config{
		BatchSize:     e.cfg.Jobs.ExpireBatchSize,
		RankingWindow: e.cfg.Feed.RecommendedWindow,
		MaxCandidates: e.cfg.Feed.MaxCandidates,
	}, e.logger)

	_, err = job.Run(ctx)
	return err
}

func handleToken(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("exactly one USER_ID is required")
	}

	e, err := setup(ctx, c, false)
	if err != nil {
		return err
	}
	defer e.close()

	token, expiresAt, err := authsvc.NewJWTManager(e.cfg.Auth.JWTSecret, e.cfg.Auth.JWTAccessTTL).GenerateAccessToken(c.Args().First())
	if err != nil {
		return err
	}

	fmt.Println(token)
	e.logger.Info("token issued", zap.Time("expires_at", expiresAt.Truncate(time.Second)))
	return nil
}
