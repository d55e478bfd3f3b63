package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/benvon/todo-assistant/internal/models"
)

const defaultAIDescription = "AI-enhanced description"

type enhancementReply struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    bool     `json:"priority"`
	Suggestions []string `json:"suggestions"`
	Reasoning   string   `json:"reasoning"`
}

// ParseEnhancement decodes a model reply. Strict JSON is tried first, then
// the substring from the first '{' to the last '}'. A missing title
// becomes the input and a missing description gets a placeholder.
func ParseEnhancement(raw, input string) (models.Enhancement, error) {
	var reply enhancementReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return models.Enhancement{}, fmt.Errorf("failed to parse enhancement reply: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
			return models.Enhancement{}, fmt.Errorf("failed to parse enhancement reply: %w", err)
		}
	}

	e := models.Enhancement{
		Title:       strings.TrimSpace(reply.Title),
		Description: strings.TrimSpace(reply.Description),
		Priority:    reply.Priority,
		Suggestions: reply.Suggestions,
		Reasoning:   strings.TrimSpace(reply.Reasoning),
		Source:      models.EnhancementSourceAI,
	}
	if e.Title == "" {
		e.Title = input
	}
	if e.Description == "" {
		e.Description = defaultAIDescription
	}
	if e.Suggestions == nil {
		e.Suggestions = []string{}
	}
	return e, nil
}
