package apiapp

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ivankudzin/dealboard/internal/domain/enums"
	authsvc "github.com/ivankudzin/dealboard/internal/services/auth"
	httperrors "github.com/ivankudzin/dealboard/internal/transport/http/errors"
)

type TokenParser interface {
	ParseAccessToken(raw string) (authsvc.AccessClaims, error)
}

// RoleLookup resolves the stored role of a user. Roles never come from tokens.
type RoleLookup interface {
	GetRole(ctx context.Context, userID string) (enums.Role, error)
}

type HTTPObserver interface {
	ObserveHTTP(method string, status int, elapsed time.Duration)
}

func ApplyMiddlewares(r chiRouter, log *zap.Logger, observer HTTPObserver) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log, observer))
}

func AuthMiddleware(tokens TokenParser, log *zap.Logger) func(http.Handler) http.Handler {
	return authMiddleware(tokens, log, true)
}

// OptionalAuth attaches the identity when a valid bearer token is present and
// lets anonymous requests through otherwise.
func OptionalAuth(tokens TokenParser, log *zap.Logger) func(http.Handler) http.Handler {
	return authMiddleware(tokens, log, false)
}

func authMiddleware(tokens TokenParser, log *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "missing bearer token",
				})
				return
			}

			claims, err := tokens.ParseAccessToken(accessToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware validation failed", zap.Error(err))
				}
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid access token",
				})
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				UserID:  claims.UserID,
				TokenID: claims.TokenID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after AuthMiddleware. The caller's role is looked up on
// every request so demotions take effect immediately.
func RequireRole(lookup RoleLookup, log *zap.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	allowed := make(map[enums.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[enums.Role(strings.ToLower(strings.TrimSpace(string(role))))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}
			if lookup == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "ROLE_LOOKUP_UNAVAILABLE",
					Message: "role lookup is unavailable",
				})
				return
			}

			role, err := lookup.GetRole(r.Context(), identity.UserID)
			if err != nil {
				if log != nil {
					log.Warn("role lookup failed", zap.String("user_id", identity.UserID), zap.Error(err))
				}
				httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
					Code:    "UNAVAILABLE",
					Message: "service temporarily unavailable",
				})
				return
			}

			if _, ok := allowed[enums.Role(strings.ToLower(string(role)))]; !ok {
				httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
					Code:    "FORBIDDEN",
					Message: "insufficient role",
				})
				return
			}

			identity.Role = string(role)
			next.ServeHTTP(w, r.WithContext(authsvc.WithIdentity(r.Context(), identity)))
		})
	}
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if observer != nil {
				observer.ObserveHTTP(r.Method, status, elapsed)
			}
			if log != nil {
				log.Info("http_request",
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Duration("duration", elapsed),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
