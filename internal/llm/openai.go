package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// OpenAIProvider serves any OpenAI-compatible chat endpoint. Groq is
// configured as a second instance with its own base URL.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *OpenAIProvider) Invoke(ctx context.Context, spec provider.Spec, req ChatRequest) Outcome {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:    spec.Model,
		Messages: msgs,
	}
	if spec.Temperature > 0 {
		oReq.Temperature = float32(spec.Temperature)
	}
	if spec.MaxTokens > 0 {
		oReq.MaxTokens = spec.MaxTokens
	}
	if spec.TopP > 0 {
		oReq.TopP = float32(spec.TopP)
	}

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return fail(provider.ClassifyOpenAI(err), fmt.Errorf("%s chat: %w", spec.Name, err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return fail(provider.MalformedResponse, fmt.Errorf("%s chat: empty completion", spec.Name))
	}

	return provider.Succeed(&ChatResponse{
		Provider:     spec.Name,
		Model:        resp.Model,
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      CalculateCost(spec.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	})
}
