package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/voiceover/internal/audio"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// OpenAITTSConfig holds configuration for the OpenAI TTS backend.
type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
	Voice   string // default: "alloy"
}

// OpenAITTS synthesizes speech using OpenAI's speech endpoint. Its voices
// are multilingual, so the requested mode does not change the model.
type OpenAITTS struct {
	cfg    OpenAITTSConfig
	client *openai.Client
}

var openAIVoices = map[string]bool{
	"alloy": true, "ash": true, "coral": true, "echo": true, "fable": true,
	"nova": true, "onyx": true, "sage": true, "shimmer": true,
}

func NewOpenAITTS(cfg OpenAITTSConfig) *OpenAITTS {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAITTS{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

func (o *OpenAITTS) Invoke(ctx context.Context, spec provider.Spec, req SynthesisRequest) Outcome {
	voice := o.cfg.Voice
	if openAIVoices[req.VoiceID] {
		voice = req.VoiceID
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.cfg.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fail(provider.ClassifyOpenAI(err), fmt.Errorf("openai speech: %w", err))
	}
	defer resp.Close()

	out, err := io.ReadAll(resp)
	if err != nil {
		return fail(provider.ClassifyTransport(err), fmt.Errorf("read audio: %w", err))
	}
	if !audio.Valid(out) {
		return fail(provider.MalformedResponse, fmt.Errorf("openai speech returned %d bytes that are not audio", len(out)))
	}

	return provider.Succeed(&SynthesisResult{
		Audio:       out,
		Format:      audio.FormatMP3,
		ContentType: audio.ContentType(audio.FormatMP3),
		Provider:    spec.Name,
		Model:       o.cfg.Model,
	})
}
