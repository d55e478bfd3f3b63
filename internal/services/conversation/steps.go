package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/benvon/todo-assistant/internal/services/todo"
)

var (
	stepLine   = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	inlineStep = regexp.MustCompile(`(?:^|\s)\d+\.\s+`)
)

const (
	minStepLength  = 5
	maxTitleLength = 50
	maxTitleWords  = 8
	titleEllipsis  = "..."
)

// Materialize turns confirmed suggestions into create requests. Each
// numbered step in a suggestion's description becomes its own todo; a
// suggestion without steps is created as-is.
func Materialize(suggestions []SuggestedTodo) []todo.CreateInput {
	var out []todo.CreateInput
	for _, s := range suggestions {
		steps := extractSteps(s.Description)
		if len(steps) == 0 {
			desc := strings.TrimSpace(s.Description)
			out = append(out, todo.CreateInput{
				Title:       s.Title,
				Description: &desc,
				Priority:    s.Priority,
			})
			continue
		}

		for i, step := range steps {
			title := stepTitle(step)
			if title == "" {
				title = s.Title
			}
			desc := step
			out = append(out, todo.CreateInput{
				Title:       title,
				Description: &desc,
				Priority:    i == 0 && s.Priority,
			})
		}
	}
	return out
}

// extractSteps returns the "N. text" entries of a description, one per line.
// A description that starts with "1." but keeps its steps on one line is
// split on the numbers instead.
func extractSteps(description string) []string {
	var steps []string
	for _, line := range strings.Split(description, "\n") {
		m := stepLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if step := cleanStep(m[1]); utf8.RuneCountInString(step) > minStepLength {
			steps = append(steps, step)
		}
	}
	if len(steps) > 1 || !strings.HasPrefix(strings.TrimSpace(description), "1.") {
		return steps
	}

	markers := inlineStep.FindAllStringIndex(description, -1)
	if len(markers) < 2 {
		return steps
	}
	var inline []string
	for i, m := range markers {
		end := len(description)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		if step := cleanStep(description[m[1]:end]); utf8.RuneCountInString(step) > minStepLength {
			inline = append(inline, step)
		}
	}
	return inline
}

func cleanStep(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// stepTitle derives a short title from the first sentence of a step
func stepTitle(step string) string {
	first := strings.TrimSpace(strings.SplitN(step, ".", 2)[0])
	n := utf8.RuneCountInString(first)
	if n > minStepLength && n <= maxTitleLength {
		return first
	}

	words := strings.Fields(first)
	if len(words) > maxTitleWords {
		return strings.Join(words[:maxTitleWords], " ") + titleEllipsis
	}
	return first
}
