package models

// EnhancementSource identifies where an enhancement came from
type EnhancementSource string

const (
	EnhancementSourceAI       EnhancementSource = "ai"
	EnhancementSourceFallback EnhancementSource = "fallback"
)

// SuggestedTodo is a candidate todo shown to the user. It is never persisted
// as-is; confirming it materializes one or more Todo rows.
type SuggestedTodo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    bool   `json:"priority"`
}

// Enhancement is the structured result of turning free text into a todo suggestion.
type Enhancement struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    bool              `json:"priority"`
	Suggestions []string          `json:"suggestions"`
	Reasoning   string            `json:"reasoning,omitempty"`
	Source      EnhancementSource `json:"source"`
	// Related holds companion todos proposed alongside the primary one.
	Related []SuggestedTodo `json:"related,omitempty"`
}

// Primary returns the main suggestion.
func (e Enhancement) Primary() SuggestedTodo {
	return SuggestedTodo{
		Title:       e.Title,
		Description: e.Description,
		Priority:    e.Priority,
	}
}

// Todos returns the primary suggestion followed by any related ones.
func (e Enhancement) Todos() []SuggestedTodo {
	todos := make([]SuggestedTodo, 0, 1+len(e.Related))
	todos = append(todos, e.Primary())
	todos = append(todos, e.Related...)
	return todos
}
