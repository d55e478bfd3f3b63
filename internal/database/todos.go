package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/benvon/todo-assistant/internal/models"
)

var todoColumns = []string{"id", "text", "description", "priority", "completed", "user_id", "created_at", "updated_at"}

// TodoRepository handles todo database operations
type TodoRepository struct {
	db *DB
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// Create inserts a todo. CreatedAt and UpdatedAt are taken from the struct.
func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	query, args, err := psql.
		Insert("todos").
		Columns("text", "description", "priority", "completed", "user_id", "created_at", "updated_at").
		Values(todo.Text, todo.Description, todo.Priority, todo.Completed, todo.UserID, todo.CreatedAt, todo.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build todo insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&todo.ID); err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}

	return nil
}

// GetByID retrieves a todo by ID
func (r *TodoRepository) GetByID(ctx context.Context, id int64) (*models.Todo, error) {
	query, args, err := psql.Select(todoColumns...).From("todos").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build todo query: %w", err)
	}

	todo := &models.Todo{}
	if err := r.db.GetContext(ctx, todo, query, args...); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("todo not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

// ListByUser returns all todos of a user, newest first
func (r *TodoRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Todo, error) {
	query, args, err := psql.
		Select(todoColumns...).
		From("todos").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build todo list query: %w", err)
	}

	todos := make([]*models.Todo, 0)
	if err := r.db.SelectContext(ctx, &todos, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}

	return todos, nil
}

// ListActiveByUser returns up to limit incomplete todos of a user, newest first
func (r *TodoRepository) ListActiveByUser(ctx context.Context, userID int64, limit int) ([]*models.Todo, error) {
	builder := psql.
		Select(todoColumns...).
		From("todos").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"completed": false}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build active todo query: %w", err)
	}

	todos := make([]*models.Todo, 0)
	if err := r.db.SelectContext(ctx, &todos, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query active todos: %w", err)
	}

	return todos, nil
}

// Update replaces text, description and priority. It does not merge: a nil
// description clears the column.
func (r *TodoRepository) Update(ctx context.Context, todo *models.Todo) error {
	updated, err := r.updateReturning(ctx, todo.ID, psql.
		Update("todos").
		Set("text", todo.Text).
		Set("description", todo.Description).
		Set("priority", todo.Priority).
		Set("updated_at", todo.UpdatedAt))
	if err != nil {
		return err
	}
	*todo = *updated
	return nil
}

// SetCompleted writes the completed flag
func (r *TodoRepository) SetCompleted(ctx context.Context, id int64, completed bool, updatedAt time.Time) (*models.Todo, error) {
	return r.updateReturning(ctx, id, psql.
		Update("todos").
		Set("completed", completed).
		Set("updated_at", updatedAt))
}

// UpdateDescription writes the description only
func (r *TodoRepository) UpdateDescription(ctx context.Context, id int64, description *string, updatedAt time.Time) (*models.Todo, error) {
	return r.updateReturning(ctx, id, psql.
		Update("todos").
		Set("description", description).
		Set("updated_at", updatedAt))
}

func (r *TodoRepository) updateReturning(ctx context.Context, id int64, builder squirrel.UpdateBuilder) (*models.Todo, error) {
	query, args, err := builder.
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build todo update: %w", err)
	}

	todo := &models.Todo{}
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(todo); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("todo not found: %w", err)
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	return todo, nil
}

// Delete removes a todo by ID
func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("todos").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build todo delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("todo not found: %w", sql.ErrNoRows)
	}

	return nil
}
