package database

import (
	"context"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
)

// TodoStore defines the todo persistence operations.
// This interface enables better testability by allowing mock implementations
type TodoStore interface {
	Create(ctx context.Context, todo *models.Todo) error
	GetByID(ctx context.Context, id int64) (*models.Todo, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Todo, error)
	ListActiveByUser(ctx context.Context, userID int64, limit int) ([]*models.Todo, error)
	Update(ctx context.Context, todo *models.Todo) error
	SetCompleted(ctx context.Context, id int64, completed bool, updatedAt time.Time) (*models.Todo, error)
	UpdateDescription(ctx context.Context, id int64, description *string, updatedAt time.Time) (*models.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// UserStore defines the user persistence operations
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TodoStore = (*TodoRepository)(nil)
	_ UserStore = (*UserRepository)(nil)
)
