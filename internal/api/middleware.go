// internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/api/auth"
	"github.com/wcshoops/courtside/internal/api/authz"
)

type Middleware func(http.Handler) http.Handler

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response wrapper to capture status code
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Str("request_id", requestIDFromContext(r.Context())).
			Msg("Request completed")
	})
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				apiutil.InternalError(w, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		// Create a logger with the request ID
		logger := log.With().Str("request_id", requestID).Logger()

		// Add both the request ID and logger to context
		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithAuth resolves the session cookie to a user and stores it in the
// request context. Requests without a valid session pass through
// unauthenticated; individual handlers decide what they require.
func WithAuth(sessions *auth.SessionManager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.UserFromRequest(r)
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load auth session")
				next.ServeHTTP(w, r)
				return
			}

			if user != nil {
				ctx := authz.ContextWithUser(r.Context(), user)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a handler behind one of the given roles.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.Ctx(r.Context())
			user := authz.UserFromContext(r.Context())
			if err := authz.RequireRole(r.Context(), roles...); err != nil {
				switch {
				case errors.Is(err, authz.ErrUnauthenticated):
					logger.Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
					apiutil.Unauthorized(w, "Unauthorized")
				case errors.Is(err, authz.ErrForbidden):
					logEvent := logger.Warn().Str("path", r.URL.Path)
					if user != nil {
						logEvent = logEvent.Int64("user_id", user.ID)
					}
					logEvent.Msg("Access denied: forbidden")
					apiutil.Forbidden(w, "Forbidden")
				default:
					logger.Error().Err(err).Msg("Access denied: error")
					apiutil.InternalError(w, "Failed to authorize request")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
