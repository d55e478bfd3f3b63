package models

import (
	"strings"
	"time"
)

// Todo represents a todo item owned by a single user
type Todo struct {
	ID          int64     `json:"id" db:"id"`
	Text        string    `json:"text" db:"text"`
	Description *string   `json:"description" db:"description"`
	Priority    bool      `json:"priority" db:"priority"`
	Completed   bool      `json:"completed" db:"completed"`
	UserID      int64     `json:"user_id" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DescriptionText returns the description or an empty string when unset.
func (t *Todo) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// HasDescription reports whether the todo carries a non-blank description.
func (t *Todo) HasDescription() bool {
	return strings.TrimSpace(t.DescriptionText()) != ""
}

// OptionalText trims s and returns nil when nothing is left.
// Empty descriptions are stored as NULL.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
