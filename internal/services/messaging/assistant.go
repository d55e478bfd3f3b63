package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/services/todo"
	"go.uber.org/zap"
)

// InboundMessage is one message from the webhook payload
type InboundMessage struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// Command is the classified intent of an inbound message
type Command string

const (
	CommandCreate  Command = "create"
	CommandHelp    Command = "help"
	CommandList    Command = "list"
	CommandSuggest Command = "suggest"
)

var createPrefixes = []string{"todo:", "add:"}

// ParseCommand lowercases and trims body and classifies it. For
// CommandCreate the remainder after the prefix is returned; for
// CommandSuggest the whole normalized text.
func ParseCommand(body string) (Command, string) {
	text := strings.ToLower(strings.TrimSpace(body))

	for _, prefix := range createPrefixes {
		if strings.HasPrefix(text, prefix) {
			return CommandCreate, strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}

	switch text {
	case "help", "start":
		return CommandHelp, text
	case "list", "todos":
		return CommandList, text
	}
	return CommandSuggest, text
}

// PhoneResolver maps a sender to a user
type PhoneResolver interface {
	LoginByPhone(ctx context.Context, phone string) (*models.User, error)
}

// TodoService is the subset of the todo service the assistant uses
type TodoService interface {
	Create(ctx context.Context, userID int64, in todo.CreateInput) (*models.Todo, error)
	ListActive(ctx context.Context, userID int64, limit int) ([]*models.Todo, error)
}

// Assistant answers WhatsApp messages
type Assistant struct {
	users  PhoneResolver
	todos  TodoService
	sender Sender
	now    func() time.Time
	logger *zap.Logger
}

// NewAssistant creates an assistant
func NewAssistant(users PhoneResolver, todos TodoService, sender Sender, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{users: users, todos: todos, sender: sender, now: time.Now, logger: log}
}

// Handle processes one inbound message. Only a failure to store a suggestion
// is returned; other failures are answered with an apology.
func (a *Assistant) Handle(ctx context.Context, msg InboundMessage) error {
	user, err := a.users.LoginByPhone(ctx, msg.From)
	if err != nil {
		a.logger.Error("whatsapp_user_resolution_failed",
			zap.String("from", logger.MaskPhone(msg.From)),
			zap.String("error", logger.SanitizeError(err)))
		a.reply(ctx, msg.From, userErrorText)
		return nil
	}

	cmd, text := ParseCommand(msg.Body)
	a.logger.Debug("whatsapp_message_received",
		zap.Int64("user_id", user.ID),
		zap.String("command", string(cmd)))

	switch cmd {
	case CommandCreate:
		a.createTodo(ctx, msg.From, user.ID, text)
		return nil
	case CommandHelp:
		a.reply(ctx, msg.From, helpText)
		return nil
	case CommandList:
		a.listTodos(ctx, msg.From, user.ID)
		return nil
	default:
		return a.suggest(ctx, msg.From, user.ID, text)
	}
}

func (a *Assistant) createTodo(ctx context.Context, to string, userID int64, title string) {
	if title == "" {
		a.reply(ctx, to, emptyTodoText)
		return
	}

	desc := "Created via WhatsApp on " + a.now().Format(whatsappDateLayout)
	if _, err := a.todos.Create(ctx, userID, todo.CreateInput{Title: title, Description: &desc}); err != nil {
		a.logger.Error("whatsapp_todo_create_failed",
			zap.Int64("user_id", userID),
			zap.String("error", logger.SanitizeError(err)))
		a.reply(ctx, to, createErrorText)
		return
	}
	a.reply(ctx, to, createdText(title))
}

func (a *Assistant) listTodos(ctx context.Context, to string, userID int64) {
	todos, err := a.todos.ListActive(ctx, userID, todo.ActiveListLimit)
	if err != nil {
		a.reply(ctx, to, listErrorText)
		return
	}
	if len(todos) == 0 {
		a.reply(ctx, to, emptyListText)
		return
	}
	a.reply(ctx, to, listText(todos))
}

// suggest answers free text from the keyword table and stores the
// suggestion right away, marked as unconfirmed.
func (a *Assistant) suggest(ctx context.Context, to string, userID int64, text string) error {
	enhancement := ai.Fallback(text, "")
	a.reply(ctx, to, suggestionText(enhancement))

	desc := enhancement.Description + suggestionMarker
	_, err := a.todos.Create(ctx, userID, todo.CreateInput{
		Title:       enhancement.Title,
		Description: &desc,
		Priority:    enhancement.Priority,
	})
	if err != nil {
		return fmt.Errorf("failed to store whatsapp suggestion: %w", err)
	}
	return nil
}

func (a *Assistant) reply(ctx context.Context, to, text string) {
	if err := a.sender.Send(ctx, to, text); err != nil {
		a.logger.Warn("whatsapp_reply_failed",
			zap.String("to", logger.MaskPhone(to)),
			zap.String("error", logger.SanitizeError(err)))
	}
}
