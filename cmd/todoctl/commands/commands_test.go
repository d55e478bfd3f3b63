package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/todo-assistant/internal/database/dbtest"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/services/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	value := models.SuggestedTodo{Title: "Buy milk", Description: "2 liters", Priority: true}

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, render(&buf, formatJSON, value))

		var decoded models.SuggestedTodo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, value, decoded)
	})

	t.Run("yaml keeps json field order", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, render(&buf, formatYAML, value))

		assert.Equal(t, "title: Buy milk\ndescription: 2 liters\npriority: true\n", buf.String())
	})

	t.Run("unsupported format", func(t *testing.T) {
		t.Parallel()
		err := render(&bytes.Buffer{}, "xml", value)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}

func TestRunEnhance_Fallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := runEnhance(context.Background(), &buf, ai.NewEnhancer(nil, nil), "go to the gym", formatYAML)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "source: fallback")
	assert.Contains(t, out, "priority: true")
	assert.Contains(t, out, "go to the gym")
}

func TestRunEnhance_EmptyText(t *testing.T) {
	t.Parallel()

	err := runEnhance(context.Background(), &bytes.Buffer{}, ai.NewEnhancer(nil, nil), "   ", formatJSON)
	require.Error(t, err)
}

func TestRunTodos(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := dbtest.NewUserStore()
	alice := &models.User{Username: "alice"}
	require.NoError(t, users.Create(ctx, alice))

	todos := dbtest.NewTodoStore()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, todos.Create(ctx, &models.Todo{Text: "walk dog", UserID: alice.ID, CreatedAt: base, UpdatedAt: base}))
	require.NoError(t, todos.Create(ctx, &models.Todo{Text: "file taxes", UserID: alice.ID, Completed: true, Priority: true, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)}))

	t.Run("table", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, runTodos(ctx, &buf, users, todos, "alice", false, formatTable))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "TITLE")
		assert.Contains(t, lines[1], "file taxes")
		assert.Contains(t, lines[2], "walk dog")
	})

	t.Run("active only as json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, runTodos(ctx, &buf, users, todos, "alice", true, formatJSON))

		var listed []models.Todo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &listed))
		require.Len(t, listed, 1)
		assert.Equal(t, "walk dog", listed[0].Text)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		err := runTodos(ctx, &bytes.Buffer{}, users, todos, "bob", false, formatTable)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRunWebhook(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload workflow.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":              true,
			"message":              "ok",
			"todoId":               payload.ID,
			"generatedDescription": "Pick up milk on the way home",
		})
	}))
	defer srv.Close()

	client := workflow.NewClient(srv.URL, "", nil)
	todo := &models.Todo{ID: 42, Text: "buy milk", CreatedAt: time.Now()}

	var buf bytes.Buffer
	require.NoError(t, runWebhook(context.Background(), &buf, client, todo, formatJSON))

	var ack workflow.Ack
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, "Pick up milk on the way home", ack.GeneratedDescription)
	assert.JSONEq(t, "42", string(ack.TodoID))
}

func TestRunWebhook_Failure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := runWebhook(context.Background(), &bytes.Buffer{}, workflow.NewClient(srv.URL, "", nil),
		&models.Todo{ID: 1, Text: "x"}, formatYAML)
	require.Error(t, err)
}
