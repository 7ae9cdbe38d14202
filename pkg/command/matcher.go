package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"personagrid/pkg/llm"
	"personagrid/pkg/model"
)

const matcherPromptFormat = `You are a task assignment system. Your job is to analyze a marketing prompt and determine which AI personas are best suited to execute it based on their personality traits.

Available personas:
%s

Marketing prompt: "%s"

Return a JSON object with a "personas" array containing the display names (not IDs) of personas that should be assigned this task. Be selective - only include personas whose traits genuinely align with the task. If no personas are suitable, return an empty array.

Example response:
{
  "personas": ["DisplayName1", "DisplayName2"]
}`

// MatchPersonas asks the model which personas fit the prompt and maps the
// returned display names back to ids, preserving candidate order. Display
// names are the selection key, so personas sharing a name are both selected.
// The returned slice may be empty; collapsing to the full candidate set on
// error or empty match is the orchestrator's decision, not ours.
func MatchPersonas(ctx context.Context, client llm.Client, prompt string, candidates []model.Persona) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	text, err := client.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(matcherPromptFormat, personaRoster(candidates), prompt),
		Temperature: analyzeTemperature,
		MaxTokens:   analyzeMaxTokens,
	})
	if err != nil {
		return nil, upstreamErr(err, "AI service error: %v", err)
	}
	var parsed struct {
		Personas []string `json:"personas"`
	}
	if err := json.Unmarshal([]byte(stripJSONFence(text)), &parsed); err != nil {
		return nil, parseErr(err, "failed to parse persona match")
	}
	selected := make(map[string]bool, len(parsed.Personas))
	for _, name := range parsed.Personas {
		selected[name] = true
	}
	var ids []string
	for _, p := range candidates {
		if selected[p.DisplayName] {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

// personaRoster renders candidates as "name: trait1, trait2 (bio)" lines.
func personaRoster(personas []model.Persona) string {
	var b strings.Builder
	for i, p := range personas {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(p.DisplayName)
		b.WriteString(": ")
		b.WriteString(strings.Join(p.PersonalityTraits, ", "))
		if p.Bio != "" {
			b.WriteString(" (")
			b.WriteString(p.Bio)
			b.WriteString(")")
		}
	}
	return b.String()
}
