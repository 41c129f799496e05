package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nikhilbhutani/voiceover/internal/provider"
)

type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider disables the SDK's own retries: the chain moves on
// to the next provider instead of retrying this one.
func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
	}
}

func (p *AnthropicProvider) Invoke(ctx context.Context, spec provider.Spec, req ChatRequest) Outcome {
	start := time.Now()

	systemText, turns := splitSystem(req.Messages)
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		switch m.Role {
		case "user":
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(spec.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(spec.Model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}
	if spec.Temperature > 0 {
		params.Temperature = anthropic.Float(spec.Temperature)
	}
	if spec.TopP > 0 {
		params.TopP = anthropic.Float(spec.TopP)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return fail(classifyAnthropic(err), fmt.Errorf("anthropic chat: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(content.String()) == "" {
		return fail(provider.MalformedResponse, errors.New("anthropic chat: no text content"))
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)

	return provider.Succeed(&ChatResponse{
		Provider:     spec.Name,
		Model:        string(resp.Model),
		Content:      content.String(),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      CalculateCost(spec.Model, inputTokens, outputTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	})
}

func classifyAnthropic(err error) provider.ErrorKind {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if provider.LooksLikeQuota(apiErr.Error()) {
			return provider.QuotaExceeded
		}
		return provider.ClassifyStatus(apiErr.StatusCode)
	}
	return provider.ClassifyTransport(err)
}
