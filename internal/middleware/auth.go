package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/request"
	"github.com/benvon/todo-assistant/internal/services/session"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer session token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, session.Claims, error)
}

// Auth requires a valid session token and attaches the user and the
// session id to the request context.
func Auth(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header", log)
				return
			}

			user, claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrInvalidToken) {
					respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid session token", log)
					return
				}
				log.Error("session_lookup_failed",
					zap.String("error", logger.SanitizeError(err)),
					zap.String("request_id", request.RequestID(r.Context())),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load session", log)
				return
			}

			ctx := request.WithUser(r.Context(), user)
			ctx = request.WithSessionID(ctx, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
