package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benvon/todo-assistant/internal/database/dbtest"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/conversation"
	"github.com/benvon/todo-assistant/internal/services/session"
	"github.com/benvon/todo-assistant/internal/services/todo"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type stubEnhancer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stubEnhancer) Enhance(_ context.Context, input string) models.Enhancement {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
		<-s.release
	}
	return models.Enhancement{
		Title:       "Fitness: " + input,
		Description: "1. Set up a workout schedule\n2. Track your progress",
		Priority:    true,
		Source:      models.EnhancementSourceFallback,
	}
}

type chatFixture struct {
	router   *mux.Router
	todos    *dbtest.TodoStore
	enhancer *stubEnhancer
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	todos := dbtest.NewTodoStore()
	enhancer := &stubEnhancer{}
	flow := conversation.NewFlow(session.NewMemoryStateStore(), enhancer, todo.NewService(todos, zap.NewNop()), zap.NewNop())

	r := mux.NewRouter()
	NewChatHandler(flow, zap.NewNop()).RegisterRoutes(r.PathPrefix("/api/v1/chat").Subrouter())
	return &chatFixture{router: r, todos: todos, enhancer: enhancer}
}

func (f *chatFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, withSession(newTestRequest(method, path, body), alice, "sid-chat"))
	return w
}

func TestChatHandler_WelcomeTranscript(t *testing.T) {
	t.Parallel()
	f := newChatFixture(t)

	w := f.do(http.MethodGet, "/api/v1/chat", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	messages := decodeBody(t, w)["data"].(map[string]any)["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("Expected only the welcome message, got %d", len(messages))
	}
	if messages[0].(map[string]any)["text"] != conversation.WelcomeText {
		t.Error("Expected the welcome text")
	}
}

func TestChatHandler_SendThenConfirm(t *testing.T) {
	t.Parallel()
	f := newChatFixture(t)

	sent := f.do(http.MethodPost, "/api/v1/chat/messages", map[string]any{"text": "go running"})
	if sent.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", sent.Code, sent.Body.String())
	}
	messages := decodeBody(t, sent)["data"].(map[string]any)["transcript"].(map[string]any)["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("Expected welcome, user and bot messages, got %d", len(messages))
	}

	confirmed := f.do(http.MethodPost, "/api/v1/chat/actions", map[string]any{"action": "Create all these todos"})
	if confirmed.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", confirmed.Code, confirmed.Body.String())
	}
	data := decodeBody(t, confirmed)["data"].(map[string]any)
	if data["action"] != string(conversation.ActionConfirmCreate) {
		t.Errorf("Expected confirm action, got %v", data["action"])
	}
	if data["close_panel"] != true {
		t.Error("Expected close_panel after confirmation")
	}

	stored := f.todos.All()
	if len(stored) != 2 {
		t.Fatalf("Expected one todo per step, got %d", len(stored))
	}
	priorities := 0
	for _, item := range stored {
		if !item.HasDescription() {
			t.Errorf("Expected todo %q to have a description", item.Text)
		}
		if item.UserID != alice.ID {
			t.Errorf("Expected todo owned by %d, got %d", alice.ID, item.UserID)
		}
		if item.Priority {
			priorities++
		}
	}
	if priorities != 1 {
		t.Errorf("Expected priority on exactly the first step, got %d", priorities)
	}
}

func TestChatHandler_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body any
	}{
		{name: "blank message", path: "/api/v1/chat/messages", body: map[string]any{"text": "  "}},
		{name: "missing action", path: "/api/v1/chat/actions", body: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newChatFixture(t)

			if w := f.do(http.MethodPost, tt.path, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestChatHandler_ReplyPending(t *testing.T) {
	t.Parallel()
	f := newChatFixture(t)
	f.enhancer.started = make(chan struct{})
	f.enhancer.release = make(chan struct{})

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- f.do(http.MethodPost, "/api/v1/chat/messages", map[string]any{"text": "study go"})
	}()

	select {
	case <-f.enhancer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the first reply to start")
	}

	second := f.do(http.MethodPost, "/api/v1/chat/messages", map[string]any{"text": "again"})
	if second.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", second.Code)
	}

	close(f.enhancer.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("Expected first reply to succeed, got %d", first.Code)
	}
}

func TestChatHandler_Clear(t *testing.T) {
	t.Parallel()
	f := newChatFixture(t)

	f.do(http.MethodPost, "/api/v1/chat/messages", map[string]any{"text": "go running"})

	w := f.do(http.MethodDelete, "/api/v1/chat", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	messages := decodeBody(t, w)["data"].(map[string]any)["messages"].([]any)
	if len(messages) != 1 {
		t.Errorf("Expected transcript reset to the welcome message, got %d messages", len(messages))
	}
}

func TestChatHandler_MissingSession(t *testing.T) {
	t.Parallel()
	f := newChatFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, newTestRequest(http.MethodGet, "/api/v1/chat", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}
