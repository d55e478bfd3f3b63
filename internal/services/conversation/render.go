package conversation

import (
	"fmt"
	"strings"

	"github.com/benvon/todo-assistant/internal/models"
)

// SuggestedTodo is re-exported for callers that only deal with the flow
type SuggestedTodo = models.SuggestedTodo

// RenderSuggestions builds the bot reply for an enhancement. The reasoning
// line is only shown for AI answers.
func RenderSuggestions(e models.Enhancement) string {
	var b strings.Builder
	b.WriteString(suggestionHeader)

	for i, todo := range e.Todos() {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, todo.Title)
		fmt.Fprintf(&b, "   📝 %s\n", todo.Description)
		fmt.Fprintf(&b, "   %s\n\n", priorityLabel(todo.Priority))
	}

	if e.Source == models.EnhancementSourceAI && strings.TrimSpace(e.Reasoning) != "" {
		fmt.Fprintf(&b, "💡 **AI Reasoning:** %s\n\n", e.Reasoning)
	}

	b.WriteString(suggestionMenu)
	return b.String()
}

// SuggestionQuickReplies returns the buttons shown under a suggestion
// message. AI follow-up suggestions are never offered as buttons.
func SuggestionQuickReplies() []string {
	return append([]string(nil), suggestionQuickReplies...)
}

func priorityLabel(high bool) string {
	if high {
		return highPriorityLabel
	}
	return normalPriorityLabel
}
