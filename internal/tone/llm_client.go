package tone

import "context"

// LLMRequest is a single-turn completion request.
type LLMRequest struct {
	System      string
	Prompt      string
	MaxTokens   int32
	Temperature float32
}

// LLMResponse carries the raw text the backend produced. Callers must treat
// the text as untrusted free form; it is expected, not guaranteed, to be JSON.
type LLMResponse struct {
	Text string
}

// LLMClient abstracts the language-model backend. Implementations must honor
// ctx cancellation and deadlines.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
