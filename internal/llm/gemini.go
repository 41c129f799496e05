package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikhilbhutani/voiceover/internal/provider"
)

type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Invoke(ctx context.Context, spec provider.Spec, req ChatRequest) Outcome {
	start := time.Now()

	model := p.client.GenerativeModel(spec.Model)
	if spec.Temperature > 0 {
		model.SetTemperature(float32(spec.Temperature))
	}
	if spec.TopP > 0 {
		model.SetTopP(float32(spec.TopP))
	}
	if spec.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(spec.MaxTokens))
	}

	systemText, turns := splitSystem(req.Messages)
	if systemText != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemText)}}
	}
	if len(turns) == 0 {
		return fail(provider.MalformedResponse, errors.New("gemini chat: no user turn"))
	}

	session := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		return fail(classifyGemini(err), fmt.Errorf("gemini chat: %w", err))
	}

	text := geminiText(resp)
	if strings.TrimSpace(text) == "" {
		return fail(provider.MalformedResponse, errors.New("gemini chat: empty candidate"))
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return provider.Succeed(&ChatResponse{
		Provider:     spec.Name,
		Model:        spec.Model,
		Content:      text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      CalculateCost(spec.Model, inputTokens, outputTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	})
}

func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// classifyGemini maps gRPC and REST errors from the Gemini client.
// ResourceExhausted is a rate limit unless the message points at billing
// or a daily allowance.
func classifyGemini(err error) provider.ErrorKind {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return provider.MalformedResponse
	}

	msg := strings.ToLower(err.Error())

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == 429 && geminiQuota(msg) {
			return provider.QuotaExceeded
		}
		if gErr.Code == 400 && strings.Contains(msg, "api key") {
			return provider.AuthenticationFailed
		}
		return provider.ClassifyStatus(gErr.Code)
	}

	st, ok := status.FromError(err)
	if !ok {
		return provider.ClassifyTransport(err)
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		if geminiQuota(msg) {
			return provider.QuotaExceeded
		}
		return provider.RateLimited
	case codes.Unauthenticated, codes.PermissionDenied:
		return provider.AuthenticationFailed
	case codes.InvalidArgument:
		if strings.Contains(msg, "api key") {
			return provider.AuthenticationFailed
		}
		return provider.MalformedResponse
	case codes.DeadlineExceeded:
		return provider.Timeout
	case codes.Unavailable, codes.Internal, codes.Unknown, codes.Canceled, codes.Aborted:
		return provider.NetworkError
	default:
		return provider.MalformedResponse
	}
}

func geminiQuota(msg string) bool {
	return strings.Contains(msg, "billing") || strings.Contains(msg, "per day") || strings.Contains(msg, "perday")
}
