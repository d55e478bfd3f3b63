package messaging

import (
	"fmt"
	"strings"

	"github.com/benvon/todo-assistant/internal/models"
)

const (
	helpText = "🤖 *Todo Assistant Commands:*\n\n" +
		"📝 *Create todos:*\n" +
		"• todo: Buy groceries\n" +
		"• add: Call the doctor\n" +
		"• Just describe what you want to do!\n\n" +
		"📋 *View todos:*\n" +
		"• list - Show active todos\n" +
		"• todos - Same as list\n\n" +
		"❓ *Get help:*\n" +
		"• help - Show this message\n" +
		"• start - Welcome message\n\n" +
		"✨ *Smart features:*\n" +
		"I can understand natural language and suggest improvements to your todos!"

	emptyTodoText    = "Please provide a todo description. Example: 'todo: Buy groceries'"
	emptyListText    = "📋 You don't have any active todos yet!\n\nSend 'todo: [description]' to create your first one."
	userErrorText    = "Sorry, I couldn't process your request. Please try again later."
	createErrorText  = "Sorry, I couldn't create that todo. Please try again."
	listErrorText    = "Sorry, I couldn't fetch your todos. Please try again."
	listHeader       = "📋 *Your Active Todos:*\n\n"
	listFooter       = "💬 Send 'todo: [description]' to add more or 'help' for commands."
	suggestionMarker = "\n\n[Suggested via WhatsApp - confirm to finalize]"

	// whatsappDateLayout matches a US locale short date
	whatsappDateLayout = "1/2/2006"
)

func createdText(title string) string {
	return fmt.Sprintf("✅ Todo created successfully!\n\n📝 \"%s\"\n\nType 'list' to see all your todos or send another 'todo: [description]' to add more.", title)
}

func suggestionText(e models.Enhancement) string {
	priority := "📋 *Normal Priority*"
	if e.Priority {
		priority = "🔥 *High Priority*"
	}
	return "🤖 I understood your request! Here's what I suggest:\n\n" +
		"📝 *Title:* " + e.Title + "\n" +
		"💡 *Description:* " + e.Description + "\n" +
		priority + "\n\n" +
		"Reply with:\n" +
		"• 'yes' to create this todo\n" +
		"• 'modify' to change it\n" +
		"• A new request to start over"
}

func listText(todos []*models.Todo) string {
	var b strings.Builder
	b.WriteString(listHeader)
	for i, t := range todos {
		marker := ""
		if t.Priority {
			marker = "🔥 "
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, marker, t.Text)
		if t.Description != nil && *t.Description != "" {
			fmt.Fprintf(&b, "   💡 %s\n", strings.SplitN(*t.Description, "\n", 2)[0])
		}
		b.WriteString("\n")
	}
	b.WriteString(listFooter)
	return b.String()
}
