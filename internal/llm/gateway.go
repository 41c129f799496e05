package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// Provider names accepted in TEXT_PROVIDER_ORDER.
const (
	Gemini    = "gemini"
	OpenAI    = "openai"
	Groq      = "groq"
	Anthropic = "anthropic"
	Ollama    = "ollama"
)

// Known lists every text provider in default priority order.
var Known = []string{Gemini, OpenAI, Groq, Anthropic, Ollama}

// Configured reports which text providers have credentials.
func Configured(cfg config.LLMConfig) map[string]bool {
	return map[string]bool{
		Gemini:    cfg.GeminiKey != "",
		OpenAI:    cfg.OpenAIKey != "",
		Groq:      cfg.GroqKey != "",
		Anthropic: cfg.AnthropicKey != "",
		Ollama:    cfg.OllamaURL != "",
	}
}

// NewChain builds the text-transform chain in the configured order.
// Providers without credentials are skipped; priorities follow their
// position in the order list. The returned func releases client resources.
func NewChain(ctx context.Context, cfg config.LLMConfig) (*Chain, func(), error) {
	available := Configured(cfg)

	var (
		entries []Entry
		closers []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("closing text provider", "error", err)
			}
		}
	}

	seen := make(map[string]bool)
	for i, raw := range cfg.Order {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, known := available[name]; !known {
			cleanup()
			return nil, nil, fmt.Errorf("unknown text provider %q", raw)
		}
		if seen[name] {
			cleanup()
			return nil, nil, fmt.Errorf("text provider %q listed twice", name)
		}
		seen[name] = true
		if !available[name] {
			slog.Debug("text provider not configured", "provider", name)
			continue
		}

		spec := provider.Spec{
			Name:        name,
			Priority:    i + 1,
			Kind:        provider.KindTextTransform,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}

		var adapter Adapter
		switch name {
		case Gemini:
			g, err := NewGeminiProvider(ctx, cfg.GeminiKey)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, g.Close)
			spec.Model = cfg.GeminiModel
			adapter = g
		case OpenAI:
			spec.Model = cfg.OpenAIModel
			adapter = NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)
		case Groq:
			spec.Model = cfg.GroqModel
			adapter = NewOpenAIProvider(cfg.GroqKey, cfg.GroqBaseURL)
		case Anthropic:
			spec.Model = cfg.AnthropicModel
			adapter = NewAnthropicProvider(cfg.AnthropicKey, "")
		case Ollama:
			spec.Model = cfg.OllamaModel
			adapter = NewOllamaProvider(cfg.OllamaURL)
		}

		entries = append(entries, Entry{Spec: spec, Adapter: adapter})
	}

	if len(entries) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("text transform: %w", provider.ErrNoProviders)
	}

	chain, err := provider.NewChain(provider.KindTextTransform, entries...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return chain, cleanup, nil
}
