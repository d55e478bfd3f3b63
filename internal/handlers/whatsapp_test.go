package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/todo-assistant/internal/database/dbtest"
	"github.com/benvon/todo-assistant/internal/services/messaging"
	"github.com/benvon/todo-assistant/internal/services/session"
	"github.com/benvon/todo-assistant/internal/services/todo"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const testVerifyToken = "your_verify_token"

type whatsappFixture struct {
	router *mux.Router
	users  *dbtest.UserStore
	todos  *dbtest.TodoStore
}

func newWhatsAppFixture(t *testing.T) *whatsappFixture {
	t.Helper()
	users := dbtest.NewUserStore()
	todos := dbtest.NewTodoStore()
	tokens, err := session.NewTokenIssuer("handler-test-secret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	log := zap.NewNop()
	assistant := messaging.NewAssistant(
		session.NewManager(users, tokens, log),
		todo.NewService(todos, log),
		messaging.NewLogSender(log),
		log,
	)

	r := mux.NewRouter()
	NewWhatsAppHandler(assistant, testVerifyToken, log).RegisterRoutes(r.PathPrefix("/api/whatsapp").Subrouter())
	return &whatsappFixture{router: r, users: users, todos: todos}
}

func TestWhatsAppHandler_Verify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{name: "matching token", query: "hub.mode=subscribe&hub.verify_token=your_verify_token&hub.challenge=abc123", wantStatus: http.StatusOK, wantBody: "abc123"},
		{name: "mismatched token", query: "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=abc123", wantStatus: http.StatusForbidden, wantBody: "Forbidden\n"},
		{name: "wrong mode", query: "hub.mode=unsubscribe&hub.verify_token=your_verify_token&hub.challenge=abc123", wantStatus: http.StatusForbidden, wantBody: "Forbidden\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newWhatsAppFixture(t)

			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/whatsapp?"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestWhatsAppHandler_CreateFromUnseenPhone(t *testing.T) {
	t.Parallel()
	f := newWhatsAppFixture(t)

	payload := map[string]any{
		"messages": []map[string]string{{"from": "+15551234567", "body": "todo: buy milk", "timestamp": "1700000000"}},
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, newTestRequest(http.MethodPost, "/api/whatsapp", payload))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if status := decodeBody(t, w)["status"]; status != "success" {
		t.Errorf("Expected status 'success', got %v", status)
	}
	if f.users.Count() != 1 {
		t.Errorf("Expected exactly one user, got %d", f.users.Count())
	}
	all := f.todos.All()
	if len(all) != 1 {
		t.Fatalf("Expected exactly one todo, got %d", len(all))
	}
	if all[0].Text != "buy milk" {
		t.Errorf("Expected text 'buy milk', got '%s'", all[0].Text)
	}

	user, err := f.users.GetByPhone(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.Username != "whatsapp_5551234567" {
		t.Errorf("Expected username 'whatsapp_5551234567', got '%s'", user.Username)
	}
}

func TestWhatsAppHandler_NoMessages(t *testing.T) {
	t.Parallel()
	f := newWhatsAppFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, newTestRequest(http.MethodPost, "/api/whatsapp", map[string]any{"messages": []any{}}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if status := decodeBody(t, w)["status"]; status != "no_messages" {
		t.Errorf("Expected status 'no_messages', got %v", status)
	}
}

func TestWhatsAppHandler_Failures(t *testing.T) {
	t.Parallel()

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		f := newWhatsAppFixture(t)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newTestRequest(http.MethodPost, "/api/whatsapp", `{"messages":`))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
		if msg := decodeBody(t, w)["error"]; msg != "Internal server error" {
			t.Errorf("Expected error 'Internal server error', got %v", msg)
		}
	})

	t.Run("suggestion store failure", func(t *testing.T) {
		t.Parallel()
		f := newWhatsAppFixture(t)
		f.todos.FailWith = errors.New("connection refused")

		payload := map[string]any{
			"messages": []map[string]string{{"from": "+15550000001", "body": "go to the gym", "timestamp": "1700000000"}},
		}
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newTestRequest(http.MethodPost, "/api/whatsapp", payload))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
	})
}
