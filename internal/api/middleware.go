package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sokha/lunchpool/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userIDKey is the context key for the authenticated user ID.
	userIDKey contextKey = "user_id"
	// usernameKey is the context key for the authenticated username.
	usernameKey contextKey = "username"
)

// userID extracts the authenticated user ID from the context, empty if the
// request was not authenticated.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// username extracts the authenticated username from the context.
func username(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

// requireAuth validates the bearer token and stores the session identity in
// the request context.
func requireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, auth.ErrMissingToken)
				return
			}

			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
				return
			}

			recordUserID(w, claims.UserID)
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the response status for logging and metrics. The
// auth middleware fills in userID once the bearer token is validated, since
// the request context it builds is not visible to outer middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
	userID string
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// recordUserID stamps the authenticated user ID on every recorder in the
// middleware chain, so logging sees it no matter how deeply the writer is
// wrapped.
func recordUserID(w http.ResponseWriter, id string) {
	for {
		rec, ok := w.(*statusRecorder)
		if !ok {
			return
		}
		rec.userID = id
		w = rec.ResponseWriter
	}
}

// requestLogger logs every request with its outcome and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"user_id", rec.userID,
		}
		if rec.status >= http.StatusInternalServerError {
			slog.Error("Request failed", attrs...)
		} else if rec.status >= http.StatusBadRequest {
			slog.Warn("Request rejected", attrs...)
		} else {
			slog.Info("Request completed", attrs...)
		}
	})
}
