package tts

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// Provider names accepted in VOICE_PROVIDER_ORDER.
const (
	ElevenLabsName = "elevenlabs"
	OpenAIName     = "openai-tts"
)

var Known = []string{ElevenLabsName, OpenAIName}

// Configured reports which voice providers have credentials.
func Configured(cfg config.TTSConfig) map[string]bool {
	return map[string]bool{
		ElevenLabsName: cfg.ElevenLabsKey != "",
		OpenAIName:     cfg.OpenAIKey != "",
	}
}

// NewElevenLabsFromConfig returns the ElevenLabs client, or nil when no key
// is configured.
func NewElevenLabsFromConfig(cfg config.TTSConfig) *ElevenLabs {
	if cfg.ElevenLabsKey == "" {
		return nil
	}
	return NewElevenLabs(ElevenLabsConfig{
		APIKey:            cfg.ElevenLabsKey,
		BaseURL:           cfg.ElevenLabsBaseURL,
		VoiceID:           cfg.VoiceID,
		MonolingualModel:  cfg.MonolingualModel,
		MultilingualModel: cfg.MultilingualModel,
		Stability:         cfg.Stability,
		SimilarityBoost:   cfg.SimilarityBoost,
		Style:             cfg.Style,
		SpeakerBoost:      cfg.SpeakerBoost,
		OutputFormat:      cfg.OutputFormat,
	})
}

// NewChain builds the voice-synthesis chain in the configured order,
// skipping providers without credentials.
func NewChain(cfg config.TTSConfig) (*Chain, error) {
	available := Configured(cfg)

	var entries []Entry
	seen := make(map[string]bool)
	for i, raw := range cfg.Order {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, known := available[name]; !known {
			return nil, fmt.Errorf("unknown voice provider %q", raw)
		}
		if seen[name] {
			return nil, fmt.Errorf("voice provider %q listed twice", name)
		}
		seen[name] = true
		if !available[name] {
			slog.Debug("voice provider not configured", "provider", name)
			continue
		}

		spec := provider.Spec{
			Name:     name,
			Priority: i + 1,
			Kind:     provider.KindVoiceSynthesis,
			Timeout:  cfg.Timeout,
		}

		var adapter Adapter
		switch name {
		case ElevenLabsName:
			spec.Model = cfg.MonolingualModel
			adapter = NewElevenLabsFromConfig(cfg)
		case OpenAIName:
			spec.Model = cfg.OpenAIModel
			adapter = NewOpenAITTS(OpenAITTSConfig{
				APIKey:  cfg.OpenAIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAIModel,
				Voice:   cfg.OpenAIVoice,
			})
		}
		entries = append(entries, Entry{Spec: spec, Adapter: adapter})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("voice synthesis: %w", provider.ErrNoProviders)
	}
	return provider.NewChain(provider.KindVoiceSynthesis, entries...)
}
