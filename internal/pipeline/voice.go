package pipeline

import (
	"context"
	"strings"

	"github.com/nikhilbhutani/voiceover/internal/prompt"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

// VoiceSynthesisStage turns a cleaned script into audio.
type VoiceSynthesisStage struct {
	chain         *tts.Chain
	defaultFormat string
}

// NewVoiceSynthesisStage returns a stage over chain. defaultFormat is
// reported when there is nothing to synthesize.
func NewVoiceSynthesisStage(chain *tts.Chain, defaultFormat string) *VoiceSynthesisStage {
	if defaultFormat == "" {
		defaultFormat = "mp3"
	}
	return &VoiceSynthesisStage{chain: chain, defaultFormat: defaultFormat}
}

// Synthesize voices text with the configured voice.
func (s *VoiceSynthesisStage) Synthesize(ctx context.Context, text, targetLanguage string) (*Speech, error) {
	return s.SynthesizeVoice(ctx, text, targetLanguage, "")
}

// SynthesizeVoice is Synthesize with a voice override. English uses the
// monolingual mode; every other language uses the multilingual one.
func (s *VoiceSynthesisStage) SynthesizeVoice(ctx context.Context, text, targetLanguage, voiceID string) (*Speech, error) {
	language := prompt.NormalizeLanguage(targetLanguage)
	mode := tts.ModeFor(language)
	if strings.TrimSpace(text) == "" {
		return &Speech{Audio: []byte{}, Format: s.defaultFormat, Mode: mode}, nil
	}

	res, err := s.chain.Run(ctx, tts.SynthesisRequest{
		Text:     text,
		Language: language,
		Mode:     mode,
		VoiceID:  voiceID,
	})
	if err != nil {
		return nil, err
	}

	format := res.Value.Format
	if format == "" {
		format = s.defaultFormat
	}
	return &Speech{
		Audio:    res.Value.Audio,
		Format:   format,
		Mode:     mode,
		Provider: res.Provider,
		Attempts: res.Attempts,
	}, nil
}
