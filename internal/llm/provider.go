package llm

import (
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest is the capability input for text-transform providers.
// Model and sampling parameters come from the provider.Spec.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// ChatResponse is the generated text plus usage accounting.
type ChatResponse struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
}

type (
	Adapter = provider.Adapter[ChatRequest, *ChatResponse]
	Entry   = provider.Entry[ChatRequest, *ChatResponse]
	Chain   = provider.Chain[ChatRequest, *ChatResponse]
	Outcome = provider.Outcome[*ChatResponse]
)

func fail(kind provider.ErrorKind, err error) Outcome {
	return provider.Fail[*ChatResponse](kind, err)
}

// splitSystem separates the system instruction from the conversation turns.
func splitSystem(msgs []Message) (string, []Message) {
	var system string
	turns := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
