// Package middleware provides HTTP middleware for the lab manager API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	traceIDKey
	actorHolderKey
)

// TokenVerifier turns a bearer token into an actor.
type TokenVerifier interface {
	VerifyToken(token string) (identity.Actor, error)
}

// AuthMiddleware authenticates requests with bearer tokens.
type AuthMiddleware struct {
	verifier     TokenVerifier
	log          *logger.Logger
	skipPaths    map[string]bool
	skipPrefixes []string
}

// NewAuthMiddleware creates the authentication middleware. Requests to
// skipPaths (exact) and skipPrefixes pass through unauthenticated.
func NewAuthMiddleware(verifier TokenVerifier, log *logger.Logger, skipPaths, skipPrefixes []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &AuthMiddleware{verifier: verifier, log: log, skipPaths: skip, skipPrefixes: skipPrefixes}
}

func (m *AuthMiddleware) skipped(path string) bool {
	if m.skipPaths[path] {
		return true
	}
	for _, p := range m.skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, errors.Unauthorized("missing Authorization header"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondError(w, errors.Unauthorized("Authorization header must be a bearer token"))
			return
		}

		actor, err := m.verifier.VerifyToken(parts[1])
		if err != nil {
			m.log.WithError(err).WithField("path", r.URL.Path).Warn("token rejected")
			respondError(w, errors.From(err))
			return
		}

		if impersonate := r.Header.Get("X-Acting-As"); impersonate != "" {
			if actor.Role != identity.RoleSuperAdministrator {
				respondError(w, errors.Forbidden("only super administrators may act on behalf of other users"))
				return
			}
			target, err := strconv.ParseInt(impersonate, 10, 64)
			if err != nil {
				respondError(w, errors.BadRequest("X-Acting-As must be a user id"))
				return
			}
			actor.ActingAs = &target
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor stores the actor on the context and flags the request's
// access record with the user id when a request logger is upstream.
func WithActor(ctx context.Context, actor identity.Actor) context.Context {
	if holder, ok := ctx.Value(actorHolderKey).(*actorHolder); ok {
		holder.set(actor.UserID)
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (identity.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(identity.Actor)
	return actor, ok
}

// RequireRole rejects requests whose actor lacks one of the given
// roles. It runs after AuthMiddleware.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	allowed := make(map[identity.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				respondError(w, errors.Unauthorized("authentication required"))
				return
			}
			if !allowed[actor.Role] {
				respondError(w, errors.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondError(w http.ResponseWriter, err *errors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": err})
}
