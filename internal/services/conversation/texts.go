package conversation

// Canned bot texts. Clients render them verbatim.
const (
	WelcomeText = "Hi! I'm your AI Todo Assistant 🤖\n\n" +
		"I can help you create better, more detailed todos. Just describe what you want to accomplish and I'll suggest the perfect title, description, and priority level!\n\n" +
		"Try saying something like:\n" +
		"• 'I need to organize my room'\n" +
		"• 'I want to start learning guitar'\n" +
		"• 'I have a project deadline coming up'"

	suggestionHeader = "Great! I've analyzed your request and here are some enhanced todo suggestions:\n\n"
	suggestionMenu   = "Would you like me to:\n" +
		"• Use this suggestion in your form\n" +
		"• Create all these todos for you\n" +
		"• Modify any of them\n" +
		"• Start over with a different approach"

	highPriorityLabel   = "🔥 High Priority"
	normalPriorityLabel = "📋 Normal Priority"

	prefilledText = "Great! I've filled in your todo form with the suggestion. You can now review and add it! 🎉"
	modifyText    = "What would you like to change about the first todo? I can help you adjust the title, description, or priority level."
	simplerText   = "Here's a simpler version:\n\n" +
		"1. **Start: Your Task**\n" +
		"   📝 Take the first small step today\n" +
		"   📋 Normal Priority\n\n" +
		"Would you like me to create this simplified version?"
	startOverText = "No problem! Let's start fresh. What would you like to accomplish? Tell me about your goal or task and I'll help you create the perfect todo!"
	followUpText  = "I understand you'd like to explore that option. Can you tell me more about what specifically you'd like to do?"
	actionErrText = "Sorry, something went wrong. Please try again!"
)

var (
	suggestionQuickReplies = []string{
		"Use this suggestion",
		"Create all these todos",
		"Modify the first one",
		"Make them simpler",
		"Add more details",
	}
	modifyQuickReplies = []string{
		"Make it more specific",
		"Add a deadline",
		"Change priority",
		"Simplify it",
	}
	simplerQuickReplies = []string{
		"Yes, create this simple version",
		"No, let's add more detail instead",
	}
	confirmQuickReplies = []string{
		"Create all these todos",
		"Yes, create this simple version",
	}
)

// simplerSuggestion is the structured form of simplerText
func simplerSuggestion() []SuggestedTodo {
	return []SuggestedTodo{{
		Title:       "Start: Your Task",
		Description: "Take the first small step today",
		Priority:    false,
	}}
}
