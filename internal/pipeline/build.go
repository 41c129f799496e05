package pipeline

import (
	"context"
	"log/slog"

	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/llm"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

// Build wires both provider chains from configuration. The returned func
// releases provider clients.
func Build(ctx context.Context, cfg *config.Config, recorder Recorder) (*Coordinator, func(), error) {
	textChain, closeText, err := llm.NewChain(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	voiceChain, err := tts.NewChain(cfg.TTS)
	if err != nil {
		closeText()
		return nil, nil, err
	}

	slog.Info("pipeline ready",
		"text_providers", textChain.Names(),
		"voice_providers", voiceChain.Names(),
	)

	return NewCoordinator(
		NewTextTransformStage(textChain),
		NewVoiceSynthesisStage(voiceChain, cfg.TTS.DefaultFormat),
		recorder,
	), closeText, nil
}
