package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/request"
	"github.com/benvon/todo-assistant/internal/services/session"
	"go.uber.org/zap"
)

type fakeAuthenticator struct {
	token string
	err   error
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*models.User, session.Claims, error) {
	if f.err != nil {
		return nil, session.Claims{}, f.err
	}
	if token != f.token {
		return nil, session.Claims{}, session.ErrInvalidToken
	}
	return &models.User{ID: 7, Username: "alice"}, session.Claims{UserID: 7, Username: "alice", SessionID: "sid-1"}, nil
}

func TestAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		authErr    error
		wantStatus int
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "store failure", header: "Bearer good", authErr: errors.New("connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var user *models.User
			var sid string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user = request.UserFromContext(r)
				sid = request.SessionIDFromContext(r)
			})

			auth := &fakeAuthenticator{token: "good", err: tt.authErr}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Auth(auth, zap.NewNop())(handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				if user != nil {
					t.Error("Expected handler not to run")
				}
				return
			}
			if user == nil || user.Username != "alice" {
				t.Errorf("Expected alice in context, got %+v", user)
			}
			if sid != "sid-1" {
				t.Errorf("Expected session id 'sid-1', got '%s'", sid)
			}
		})
	}
}
