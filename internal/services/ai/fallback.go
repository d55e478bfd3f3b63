package ai

import (
	"strings"

	"github.com/benvon/todo-assistant/internal/models"
)

const genericFallbackDescription = "AI-enhanced todo with clear action steps and success criteria."

// fallbackRule maps a keyword set to a suggestion template. An empty
// keyword list matches everything.
type fallbackRule struct {
	name        string
	keywords    []string
	titlePrefix string
	description string
	priority    bool
	suggestions []string
	reasoning   string
	companion   *companionTemplate
}

type companionTemplate struct {
	titlePrefix string
	description string
}

// fallbackRules is evaluated top to bottom; the first match wins.
var fallbackRules = []fallbackRule{
	{
		name:        "fitness",
		keywords:    []string{"exercise", "workout", "gym", "fitness"},
		titlePrefix: "Fitness: ",
		description: "Start with a manageable routine. Track your progress and stay consistent for best results.",
		priority:    true,
		suggestions: []string{"Set up a workout schedule", "Track your progress", "Prepare workout clothes"},
		reasoning:   "Fitness goals are important for health and require consistency",
		companion: &companionTemplate{
			titlePrefix: "Track progress for: ",
			description: "Keep a log of your workouts and improvements",
		},
	},
	{
		name:        "learning",
		keywords:    []string{"learn", "study", "course"},
		titlePrefix: "Learning: ",
		description: "Break this into small daily sessions. Set specific goals and track your progress.",
		priority:    true,
		suggestions: []string{"Create a study schedule", "Set learning milestones", "Find study resources"},
		reasoning:   "Learning requires structured approach and regular practice",
		companion: &companionTemplate{
			titlePrefix: "Practice: ",
			description: "Set aside time for hands-on practice and exercises",
		},
	},
	{
		name:        "project",
		keywords:    []string{"project", "work"},
		titlePrefix: "Project: ",
		description: "Plan phases, set milestones, and identify required resources before starting.",
		priority:    true,
		suggestions: []string{"Break down into phases", "Set deadlines", "Identify resources needed"},
		reasoning:   "Projects need clear phases and milestones to stay on track",
		companion: &companionTemplate{
			titlePrefix: "Research for: ",
			description: "Gather necessary information and resources",
		},
	},
	{
		name:        "shopping",
		keywords:    []string{"buy", "shop", "purchase"},
		titlePrefix: "Shopping: ",
		description: "Make a list, set a budget, and check for deals before purchasing.",
		priority:    false,
		suggestions: []string{"Write a shopping list", "Set a budget", "Compare prices"},
		reasoning:   "Planned purchases are easier to keep on budget",
	},
	{
		name:        "other",
		description: genericFallbackDescription,
		priority:    false,
		suggestions: []string{"Break into smaller tasks", "Set a deadline", "Identify potential obstacles"},
		reasoning:   "Generic enhancement for better productivity",
	},
}

func (r fallbackRule) matches(lowered string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Fallback builds an enhancement from the keyword table. aiResponse, when
// non-empty, replaces the canned description of the catch-all rule.
func Fallback(input, aiResponse string) models.Enhancement {
	lowered := strings.ToLower(input)

	for _, rule := range fallbackRules {
		if !rule.matches(lowered) {
			continue
		}

		e := models.Enhancement{
			Title:       rule.titlePrefix + input,
			Description: rule.description,
			Priority:    rule.priority,
			Suggestions: append([]string(nil), rule.suggestions...),
			Reasoning:   rule.reasoning,
			Source:      models.EnhancementSourceFallback,
		}
		if len(rule.keywords) == 0 && strings.TrimSpace(aiResponse) != "" {
			e.Description = aiResponse
		}
		if rule.companion != nil {
			e.Related = []models.SuggestedTodo{{
				Title:       rule.companion.titlePrefix + input,
				Description: rule.companion.description,
			}}
		}
		return e
	}

	// Unreachable while the table ends with a catch-all rule.
	return models.Enhancement{
		Title:       input,
		Description: genericFallbackDescription,
		Source:      models.EnhancementSourceFallback,
	}
}

// FallbackCategory returns the name of the rule that input falls under
func FallbackCategory(input string) string {
	lowered := strings.ToLower(input)
	for _, rule := range fallbackRules {
		if rule.matches(lowered) {
			return rule.name
		}
	}
	return ""
}
