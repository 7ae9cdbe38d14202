package command

import (
	"context"
	"fmt"
	"strings"

	"personagrid/pkg/llm"
	"personagrid/pkg/model"
)

const (
	generateTemperature = 0.9 // higher for more personality
	generateMaxTokens   = 300
)

// failureMarker prefixes the visible error text embedded in a preview entry
// when one persona's generation fails.
const failureMarker = "Failed to generate content: "

const embodimentPromptFormat = `You ARE %[1]s. This is not roleplay - you are this actual person posting on %[2]s.

YOUR IDENTITY:
- Name: %[1]s
- Personality: %[3]s
- Background: %[4]s

CRITICAL RULES - READ CAREFULLY:
1. You are NOT an AI assistant - you are %[1]s, a real person
2. NEVER mention being AI, unbiased, neutral, or diplomatic
3. NEVER say "As an AI" or "I don't have personal opinions"
4. If your personality is "rude" - BE GENUINELY RUDE
5. If your personality is "straightforward" - BE BLUNT AND DIRECT
6. If your personality is "sarcastic" - BE CUTTING AND SARCASTIC
7. If your personality is "aggressive" - BE CONFRONTATIONAL
8. Real people have STRONG opinions - so do you
9. Real people DON'T consider "all perspectives" - neither do you
10. Match your personality's EXACT tone and vibe - no filtering

TASK: %[5]s

Write a %[2]s post that:
- Sounds like YOU (%[1]s) would actually write it
- Uses platform-specific style (hashtags for Instagram/Twitter, casual for Facebook)
- Is concise and engaging
- Embodies your personality BRUTALLY - no softening, no diplomacy
- Feels like a real person, not a corporate bot

IMPORTANT: Respond with ONLY the post content. No explanations, no meta-commentary, no "Here's the post" - just the raw content.`

// buildEmbodimentPrompt is the single persona-voice prompt shared by the
// admin and organization generators.
func buildEmbodimentPrompt(persona model.Persona, platform, intent string) string {
	bio := persona.Bio
	if bio == "" {
		bio = "N/A"
	}
	return fmt.Sprintf(embodimentPromptFormat,
		persona.DisplayName,
		platform,
		strings.Join(persona.PersonalityTraits, ", "),
		bio,
		intent,
	)
}

// GeneratePersonaContent writes one post in the persona's voice. A failed
// call never propagates as an error: the failure text is embedded as the
// content so the rest of the batch survives. An empty success falls back to
// the raw intent.
func GeneratePersonaContent(ctx context.Context, client llm.Client, intent, platform string, persona model.Persona) string {
	text, err := client.Complete(ctx, llm.Request{
		Prompt:      buildEmbodimentPrompt(persona, platform, intent),
		Temperature: generateTemperature,
		MaxTokens:   generateMaxTokens,
	})
	if err != nil {
		return failureMarker + err.Error()
	}
	if strings.TrimSpace(text) == "" {
		return intent
	}
	return text
}
