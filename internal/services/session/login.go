// Package session resolves users at login, issues the signed token that
// identifies them afterwards, and stores per-session chat state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyUsername is returned when the login name is blank
var ErrEmptyUsername = errors.New("username is required")

// ErrEmptyPhone is returned when an inbound message has no sender
var ErrEmptyPhone = errors.New("phone number is required")

const (
	phoneUsernamePrefix = "whatsapp_"
	phoneDigitsKept     = 10
)

// Manager is the login and session helper
type Manager struct {
	users  database.UserStore
	tokens *TokenIssuer
	logger *zap.Logger
}

// NewManager creates a session manager
func NewManager(users database.UserStore, tokens *TokenIssuer, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{users: users, tokens: tokens, logger: log}
}

// Login is the result of a successful login
type Login struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// LoginByUsername resolves the trimmed username to a user, creating it on
// first use, and issues a session token for it.
func (m *Manager) LoginByUsername(ctx context.Context, username string) (*Login, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	user, err := m.findOrCreate(ctx, &models.User{Username: username}, func(ctx context.Context) (*models.User, error) {
		return m.users.GetByUsername(ctx, username)
	})
	if err != nil {
		return nil, err
	}

	token, _, err := m.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	m.logger.Info("user_logged_in",
		zap.Int64("user_id", user.ID),
		zap.String("username", logger.SanitizeUsername(user.Username)))

	return &Login{User: user, Token: token}, nil
}

// LoginByPhone resolves a messaging sender to a user, creating
// whatsapp_<last 10 digits> on first contact.
func (m *Manager) LoginByPhone(ctx context.Context, phone string) (*models.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrEmptyPhone
	}

	candidate := &models.User{Username: PhoneUsername(phone), Phone: &phone}
	return m.findOrCreate(ctx, candidate, func(ctx context.Context) (*models.User, error) {
		return m.users.GetByPhone(ctx, phone)
	})
}

// Authenticate verifies a session token and loads the user it names
func (m *Manager) Authenticate(ctx context.Context, token string) (*models.User, Claims, error) {
	claims, err := m.tokens.Verify(token)
	if err != nil {
		return nil, Claims{}, err
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, Claims{}, fmt.Errorf("%w: unknown user", ErrInvalidToken)
		}
		return nil, Claims{}, fmt.Errorf("failed to load session user: %w", err)
	}

	return user, claims, nil
}

// findOrCreate looks the user up and inserts candidate when absent. A
// unique violation means a concurrent login won, so the winner is re-read.
func (m *Manager) findOrCreate(ctx context.Context, candidate *models.User, lookup func(context.Context) (*models.User, error)) (*models.User, error) {
	user, err := lookup(ctx)
	if err == nil {
		return user, nil
	}
	if !database.IsNotFound(err) {
		m.logger.Error("failed_to_lookup_user", zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := m.users.Create(ctx, candidate); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			m.logger.Debug("user_create_lost_race", zap.String("username", logger.SanitizeUsername(candidate.Username)))
			winner, lookupErr := lookup(ctx)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to re-read user after conflict: %w", lookupErr)
			}
			return winner, nil
		}
		m.logger.Error("failed_to_create_user", zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	m.logger.Info("user_created",
		zap.Int64("user_id", candidate.ID),
		zap.String("username", logger.SanitizeUsername(candidate.Username)))

	return candidate, nil
}

// PhoneUsername derives the username used for a messaging sender
func PhoneUsername(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) > phoneDigitsKept {
		digits = digits[len(digits)-phoneDigitsKept:]
	}
	return phoneUsernamePrefix + string(digits)
}
