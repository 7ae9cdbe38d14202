package llm

import "context"

// Request is a single-shot completion request. The pipeline never retries;
// callers decide how a failure degrades.
type Request struct {
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// Client abstracts the chat-completion provider so the command pipeline can
// be exercised against a stub in tests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
