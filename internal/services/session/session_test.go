package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benvon/todo-assistant/internal/database/dbtest"
	"github.com/benvon/todo-assistant/internal/models"
)

func newTestManager(t *testing.T) (*Manager, *dbtest.UserStore) {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret-test-secret-test-secret")
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}
	users := dbtest.NewUserStore()
	return NewManager(users, tokens, nil), users
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer("a-very-long-shared-secret-for-tests")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	token, issued, err := issuer.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Errorf("Expected user 42/alice, got %+v", claims)
	}
	if claims.SessionID == "" || claims.SessionID != issued.SessionID {
		t.Errorf("Expected session id %q, got %q", issued.SessionID, claims.SessionID)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	t.Parallel()
	issuer, _ := NewTokenIssuer("secret-one-secret-one-secret-one")
	other, _ := NewTokenIssuer("secret-two-secret-two-secret-two")

	token, _, err := issuer.Issue(1, "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("Expected compact JWS, got %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{name: "wrong key", issuer: other, token: token},
		{name: "garbage", issuer: issuer, token: "not-a-token"},
		{name: "tampered", issuer: issuer, token: tampered},
		{name: "empty", issuer: issuer, token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := tt.issuer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenIssuer_RandomKeyWhenSecretEmpty(t *testing.T) {
	t.Parallel()
	a, err := NewTokenIssuer("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, _ := NewTokenIssuer("")

	token, _, err := a.Issue(1, "carol")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := b.Verify(token); err == nil {
		t.Error("Expected tokens from different random keys to be rejected")
	}
}

func TestManager_LoginByUsername_NoDuplicates(t *testing.T) {
	t.Parallel()
	m, users := newTestManager(t)
	ctx := context.Background()

	first, err := m.LoginByUsername(ctx, "  alice ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := m.LoginByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first.User.ID != second.User.ID {
		t.Errorf("Expected same user id, got %d and %d", first.User.ID, second.User.ID)
	}
	if first.User.Username != "alice" {
		t.Errorf("Expected trimmed username, got %q", first.User.Username)
	}
	if users.Count() != 1 {
		t.Errorf("Expected 1 user, got %d", users.Count())
	}
	if first.Token == "" || first.Token == second.Token {
		t.Error("Expected a fresh token per login")
	}
}

func TestManager_LoginByUsername_Empty(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	if _, err := m.LoginByUsername(context.Background(), "   "); !errors.Is(err, ErrEmptyUsername) {
		t.Errorf("Expected ErrEmptyUsername, got %v", err)
	}
}

func TestManager_LoginByUsername_LostRace(t *testing.T) {
	t.Parallel()
	m, users := newTestManager(t)
	ctx := context.Background()

	var winnerID int64
	users.CreateHook = func(u *models.User) {
		users.CreateHook = nil
		winner := &models.User{Username: u.Username}
		if err := users.Create(ctx, winner); err != nil {
			t.Errorf("failed to insert racing user: %v", err)
		}
		winnerID = winner.ID
	}

	login, err := m.LoginByUsername(ctx, "dave")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if login.User.ID != winnerID {
		t.Errorf("Expected winner id %d, got %d", winnerID, login.User.ID)
	}
	if users.Count() != 1 {
		t.Errorf("Expected 1 user, got %d", users.Count())
	}
}

func TestManager_LoginByPhone(t *testing.T) {
	t.Parallel()
	m, users := newTestManager(t)
	ctx := context.Background()

	user, err := m.LoginByPhone(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.Username != "whatsapp_5551234567" {
		t.Errorf("Expected whatsapp_5551234567, got %q", user.Username)
	}
	if user.Phone == nil || *user.Phone != "+15551234567" {
		t.Errorf("Expected phone to be stored, got %v", user.Phone)
	}

	again, err := m.LoginByPhone(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if again.ID != user.ID || users.Count() != 1 {
		t.Errorf("Expected the same user on second contact, got id %d with %d users", again.ID, users.Count())
	}
}

func TestManager_Authenticate(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	login, err := m.LoginByUsername(ctx, "erin")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	user, claims, err := m.Authenticate(ctx, login.Token)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.ID != login.User.ID || claims.SessionID == "" {
		t.Errorf("Expected user %d with a session id, got %d / %q", login.User.ID, user.ID, claims.SessionID)
	}

	orphan, _, err := m.tokens.Issue(999, "ghost")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, _, err := m.Authenticate(ctx, orphan); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for unknown user, got %v", err)
	}
}

func TestPhoneUsername(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"+15551234567":     "whatsapp_5551234567",
		"5551234":          "whatsapp_5551234",
		"+44 20 7946 0958": "whatsapp_2079460958",
	}
	for phone, want := range tests {
		if got := PhoneUsername(phone); got != want {
			t.Errorf("PhoneUsername(%q) = %q, want %q", phone, got, want)
		}
	}
}

func TestMemoryStateStore(t *testing.T) {
	t.Parallel()
	store := NewMemoryStateStore()
	ctx := context.Background()

	empty, err := store.Load(ctx, "missing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(empty.Messages) != 0 {
		t.Errorf("Expected empty transcript, got %d messages", len(empty.Messages))
	}

	transcript := &models.Transcript{
		Messages: []models.ChatMessage{{
			ID:    "1-abc",
			Text:  "hello",
			IsBot: true,
			Todos: []models.SuggestedTodo{{Title: "Fitness: run", Priority: true}},
		}},
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.Save(ctx, "sid", transcript); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	transcript.Messages[0].Text = "mutated after save"

	loaded, err := store.Load(ctx, "sid")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Text != "hello" {
		t.Errorf("Expected stored copy to be independent, got %+v", loaded.Messages)
	}
	if got := loaded.LastSuggestions(); len(got) != 1 || !strings.HasPrefix(got[0].Title, "Fitness") {
		t.Errorf("Expected structured suggestions to survive, got %+v", got)
	}

	if err := store.Clear(ctx, "sid"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	cleared, _ := store.Load(ctx, "sid")
	if len(cleared.Messages) != 0 {
		t.Error("Expected transcript to be cleared")
	}
}
