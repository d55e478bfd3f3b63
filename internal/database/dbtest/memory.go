// Package dbtest provides in-memory implementations of the database store
// interfaces for tests in other packages.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
)

// TodoStore is a concurrency-safe in-memory database.TodoStore
type TodoStore struct {
	mu     sync.Mutex
	nextID int64
	todos  map[int64]models.Todo

	// FailWith, when set, is returned by every operation
	FailWith error
}

// NewTodoStore creates an empty store
func NewTodoStore() *TodoStore {
	return &TodoStore{todos: make(map[int64]models.Todo)}
}

var _ database.TodoStore = (*TodoStore)(nil)

func notFound() error {
	return fmt.Errorf("todo not found: %w", sql.ErrNoRows)
}

func clone(t models.Todo) *models.Todo {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return &t
}

// Create implements database.TodoStore
func (s *TodoStore) Create(_ context.Context, todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.nextID++
	todo.ID = s.nextID
	s.todos[todo.ID] = *clone(*todo)
	return nil
}

// GetByID implements database.TodoStore
func (s *TodoStore) GetByID(_ context.Context, id int64) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	t, ok := s.todos[id]
	if !ok {
		return nil, notFound()
	}
	return clone(t), nil
}

func (s *TodoStore) list(userID int64, activeOnly bool, limit int) []*models.Todo {
	out := make([]*models.Todo, 0)
	for _, t := range s.todos {
		if t.UserID != userID || (activeOnly && t.Completed) {
			continue
		}
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ListByUser implements database.TodoStore
func (s *TodoStore) ListByUser(_ context.Context, userID int64) ([]*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return s.list(userID, false, 0), nil
}

// ListActiveByUser implements database.TodoStore
func (s *TodoStore) ListActiveByUser(_ context.Context, userID int64, limit int) ([]*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return s.list(userID, true, limit), nil
}

// Update implements database.TodoStore
func (s *TodoStore) Update(_ context.Context, todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	t, ok := s.todos[todo.ID]
	if !ok {
		return notFound()
	}
	t.Text = todo.Text
	t.Description = todo.Description
	t.Priority = todo.Priority
	t.UpdatedAt = todo.UpdatedAt
	s.todos[t.ID] = *clone(t)
	*todo = *clone(t)
	return nil
}

// SetCompleted implements database.TodoStore
func (s *TodoStore) SetCompleted(_ context.Context, id int64, completed bool, updatedAt time.Time) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	t, ok := s.todos[id]
	if !ok {
		return nil, notFound()
	}
	t.Completed = completed
	t.UpdatedAt = updatedAt
	s.todos[id] = t
	return clone(t), nil
}

// UpdateDescription implements database.TodoStore
func (s *TodoStore) UpdateDescription(_ context.Context, id int64, description *string, updatedAt time.Time) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	t, ok := s.todos[id]
	if !ok {
		return nil, notFound()
	}
	t.Description = description
	t.UpdatedAt = updatedAt
	s.todos[id] = *clone(t)
	return clone(t), nil
}

// Delete implements database.TodoStore
func (s *TodoStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.todos[id]; !ok {
		return notFound()
	}
	delete(s.todos, id)
	return nil
}

// All returns every stored todo ordered by id
func (s *TodoStore) All() []*models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UserStore is a concurrency-safe in-memory database.UserStore that
// enforces username and phone uniqueness like the real schema.
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User

	// CreateHook runs before each insert while the lock is not held. Tests
	// use it to simulate a concurrent login winning the race.
	CreateHook func(user *models.User)
}

// NewUserStore creates an empty store
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]models.User)}
}

var _ database.UserStore = (*UserStore)(nil)

// Create implements database.UserStore
func (s *UserStore) Create(_ context.Context, user *models.User) error {
	if s.CreateHook != nil {
		s.CreateHook(user)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username || (user.Phone != nil && u.Phone != nil && *u.Phone == *user.Phone) {
			return fmt.Errorf("%w: %s", database.ErrUserExists, user.Username)
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

// GetByID implements database.UserStore
func (s *UserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

// GetByUsername implements database.UserStore
func (s *UserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

// GetByPhone implements database.UserStore
func (s *UserStore) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Phone != nil && *u.Phone == phone })
}

// Count returns the number of stored users
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
