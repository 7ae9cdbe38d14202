package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"personagrid/pkg/llm"
)

// Analysis is the structured intent extracted from one free-text command.
// It lives only for the duration of the request. Platform and task type
// defaults are enforced by the prompt, not validated here; a malformed model
// response can carry values outside the enums and callers must tolerate that.
type Analysis struct {
	Intent            string `json:"intent"`
	Platform          string `json:"platform"`
	TaskType          string `json:"taskType"`
	TargetAllPersonas bool   `json:"targetAllPersonas"`
}

const (
	analyzeTemperature = 0.3
	analyzeMaxTokens   = 500
)

const analyzePromptFormat = `You are an AI assistant that analyzes social media marketing commands.
Extract the following information from the command:
1. intent - what the user wants to accomplish
2. platform - which social network (twitter, instagram, or facebook). Default to twitter if not specified.
3. taskType - the type of action (post, like, share, comment, or follow). Default to post if not specified.
4. targetAllPersonas - whether to target all personas (true) or specific ones (false)

Command: "%s"

Respond ONLY with valid JSON in this exact format:
{
  "intent": "description of what to do",
  "platform": "twitter" | "instagram" | "facebook",
  "taskType": "post" | "like" | "share" | "comment" | "follow",
  "targetAllPersonas": true | false
}`

// AnalyzeCommand turns a free-text admin command into a structured intent via
// a single model call. No retry.
func AnalyzeCommand(ctx context.Context, client llm.Client, cmd string) (Analysis, error) {
	text, err := client.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(analyzePromptFormat, cmd),
		Temperature: analyzeTemperature,
		MaxTokens:   analyzeMaxTokens,
	})
	if err != nil {
		return Analysis{}, upstreamErr(err, "AI service error: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return Analysis{}, upstreamErr(nil, "empty response while analyzing command")
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(stripJSONFence(text)), &analysis); err != nil {
		return Analysis{}, parseErr(err, "failed to parse command analysis")
	}
	return analysis, nil
}

// stripJSONFence removes a markdown code fence the model may wrap JSON in.
// An unfenced but invalid body still surfaces as a parse failure.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
