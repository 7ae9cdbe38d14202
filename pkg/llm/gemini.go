package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Gemini issues chat completions through the Google GenAI SDK. One request
// per call, no retry, no fallback model.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a client from the given API key (GEMINI_API_KEY when
// empty). The model id comes from GEMINI_MODEL when set.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = req.MaxTokens
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
