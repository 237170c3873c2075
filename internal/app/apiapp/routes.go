package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/config"
	"github.com/ivankudzin/dealboard/internal/domain/enums"
	"github.com/ivankudzin/dealboard/internal/transport/http/handlers"
)

type Dependencies struct {
	Tokens        TokenParser
	Roles         RoleLookup
	VoteLedger    handlers.VoteCaster
	RateLimiter   handlers.RateLimiter
	Offers        handlers.OfferSubmitter
	Feed          handlers.FeedLister
	Comments      handlers.CommentService
	Moderation    handlers.ModerationGate
	ModerationLog handlers.ModerationLogReader
	Reputation    handlers.ReputationReader
	Engagement    handlers.EngagementRecorder
	HealthChecks  map[string]handlers.HealthCheck
	Metrics       http.Handler
	Logger        *zap.Logger
	Config        config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	votesHandler := handlers.NewVotesHandler(deps.VoteLedger, deps.RateLimiter, deps.Config.Votes.SilentUnauthenticated)
	offersHandler := handlers.NewOffersHandler(deps.Offers, deps.Feed)
	commentsHandler := handlers.NewCommentsHandler(deps.Comments)
	moderationHandler := handlers.NewModerationHandler(deps.Moderation, deps.ModerationLog)
	reputationHandler := handlers.NewReputationHandler(deps.Reputation)
	engagementHandler := handlers.NewEngagementHandler(deps.Engagement, deps.RateLimiter)
	authMW := AuthMiddleware(deps.Tokens, deps.Logger)
	optionalAuthMW := OptionalAuth(deps.Tokens, deps.Logger)
	moderatorMW := RequireRole(deps.Roles, deps.Logger, enums.RoleModerator, enums.RoleAdmin)

	r.Get("/healthz", healthHandler.Get)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.With(optionalAuthMW).Post("/votes", votesHandler.Cast)

	r.Route("/offers", func(r chi.Router) {
		r.Get("/", offersHandler.List)
		r.With(authMW).Post("/", offersHandler.Create)
		r.With(authMW).Post("/{id}/report", offersHandler.Report)
		r.With(optionalAuthMW).Post("/events", engagementHandler.Ingest)
	})

	r.With(authMW).Post("/comments", commentsHandler.Create)
	r.With(authMW).Post("/comments/{id}/like", commentsHandler.Like)

	r.Get("/users/{id}/reputation", reputationHandler.Get)

	r.Route("/moderation", func(r chi.Router) {
		r.Use(authMW, moderatorMW)
		r.Post("/decide", moderationHandler.Decide)
		r.Post("/batch-approve", moderationHandler.BatchApprove)
		r.Post("/batch-reject", moderationHandler.BatchReject)
		r.Post("/batch-expire", moderationHandler.BatchExpire)
		r.Post("/comments/decide", moderationHandler.DecideComment)
		r.Get("/reject-reasons", moderationHandler.RejectReasons)
		r.Get("/offers/{id}/log", moderationHandler.OfferLog)
	})
}
