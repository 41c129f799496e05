package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// OllamaProvider talks to a local Ollama server. Deadlines come from the
// chain's per-call timeout, so the HTTP client carries none of its own.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewOllamaProvider(baseURL string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type ollamaChatReq struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type ollamaChatResp struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

func (p *OllamaProvider) Invoke(ctx context.Context, spec provider.Spec, req ChatRequest) Outcome {
	start := time.Now()

	msgs := make([]ollamaMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}

	oReq := ollamaChatReq{
		Model:    spec.Model,
		Messages: msgs,
		Stream:   false,
	}
	if spec.Temperature > 0 || spec.MaxTokens > 0 || spec.TopP > 0 {
		oReq.Options = &ollamaOptions{
			Temperature: spec.Temperature,
			NumPredict:  spec.MaxTokens,
			TopP:        spec.TopP,
		}
	}

	body, err := json.Marshal(oReq)
	if err != nil {
		return fail(provider.MalformedResponse, fmt.Errorf("ollama encode: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fail(provider.NetworkError, fmt.Errorf("ollama request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fail(provider.ClassifyTransport(err), fmt.Errorf("ollama chat: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fail(provider.ClassifyStatus(resp.StatusCode),
			fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var oResp ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return fail(provider.MalformedResponse, fmt.Errorf("ollama decode: %w", err))
	}
	if oResp.Error != "" {
		return fail(provider.MalformedResponse, fmt.Errorf("ollama chat: %s", oResp.Error))
	}
	if strings.TrimSpace(oResp.Message.Content) == "" {
		return fail(provider.MalformedResponse, fmt.Errorf("ollama chat: empty message"))
	}

	return provider.Succeed(&ChatResponse{
		Provider:     spec.Name,
		Model:        spec.Model,
		Content:      oResp.Message.Content,
		InputTokens:  oResp.PromptEvalCount,
		OutputTokens: oResp.EvalCount,
		TotalTokens:  oResp.PromptEvalCount + oResp.EvalCount,
		CostUSD:      0, // local models are free
		LatencyMs:    time.Since(start).Milliseconds(),
	})
}
