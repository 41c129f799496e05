package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nikhilbhutani/voiceover/internal/audio"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// ElevenLabsConfig holds configuration for the ElevenLabs backend.
type ElevenLabsConfig struct {
	APIKey            string
	BaseURL           string // default: "https://api.elevenlabs.io/v1"
	VoiceID           string
	MonolingualModel  string
	MultilingualModel string
	Stability         float64
	SimilarityBoost   float64
	Style             float64
	SpeakerBoost      bool
	OutputFormat      string // default: "mp3_44100_128"
}

// ElevenLabs synthesizes speech with the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	return &ElevenLabs{cfg: cfg, httpClient: &http.Client{}}
}

// ModelFor returns the model id used for mode.
func (e *ElevenLabs) ModelFor(mode Mode) string {
	if mode == Monolingual {
		return e.cfg.MonolingualModel
	}
	return e.cfg.MultilingualModel
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsSpeechReq struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (e *ElevenLabs) Invoke(ctx context.Context, spec provider.Spec, req SynthesisRequest) Outcome {
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = e.cfg.VoiceID
	}
	model := e.ModelFor(req.Mode)

	data, err := json.Marshal(elevenLabsSpeechReq{
		Text:    req.Text,
		ModelID: model,
		VoiceSettings: voiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
			Style:           e.cfg.Style,
			UseSpeakerBoost: e.cfg.SpeakerBoost,
		},
	})
	if err != nil {
		return fail(provider.MalformedResponse, fmt.Errorf("marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.cfg.BaseURL, url.PathEscape(voiceID), url.QueryEscape(e.cfg.OutputFormat))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fail(provider.NetworkError, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return fail(provider.ClassifyTransport(err), fmt.Errorf("elevenlabs request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		kind, msg := classifyElevenLabs(resp.StatusCode, body)
		return fail(kind, fmt.Errorf("elevenlabs failed (status %d): %s", resp.StatusCode, msg))
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(provider.ClassifyTransport(err), fmt.Errorf("read audio: %w", err))
	}
	if !audio.Valid(out) {
		return fail(provider.MalformedResponse, fmt.Errorf("elevenlabs returned %d bytes that are not audio", len(out)))
	}

	format := outputFormat(e.cfg.OutputFormat)
	return provider.Succeed(&SynthesisResult{
		Audio:       out,
		Format:      format,
		ContentType: audio.ContentType(format),
		Provider:    spec.Name,
		Model:       model,
	})
}

// outputFormat turns an ElevenLabs output_format such as "mp3_44100_128"
// into a format tag.
func outputFormat(output string) string {
	codec, _, _ := strings.Cut(output, "_")
	return codec
}

type elevenLabsDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// classifyElevenLabs reads the error body. ElevenLabs reports exhausted
// character quota as a 401 with detail.status "quota_exceeded".
func classifyElevenLabs(code int, body []byte) (provider.ErrorKind, string) {
	detail := parseElevenLabsDetail(body)
	msg := detail.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch {
	case detail.Status == "quota_exceeded":
		return provider.QuotaExceeded, msg
	case detail.Status == "too_many_concurrent_requests" || detail.Status == "system_busy":
		return provider.RateLimited, msg
	case code == http.StatusUnauthorized && provider.LooksLikeQuota(msg):
		return provider.QuotaExceeded, msg
	}
	return provider.ClassifyStatus(code), msg
}

func parseElevenLabsDetail(body []byte) elevenLabsDetail {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return elevenLabsDetail{}
	}

	var detail elevenLabsDetail
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		return detail
	}
	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return elevenLabsDetail{Message: text}
	}
	return elevenLabsDetail{Message: string(envelope.Detail)}
}

// Voice is one entry of the account's voice library.
type Voice struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	PreviewURL  string            `json:"preview_url,omitempty"`
}

// ListVoices returns the voices available to the configured account.
func (e *ElevenLabs) ListVoices(ctx context.Context) ([]Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		_, msg := classifyElevenLabs(resp.StatusCode, body)
		return nil, fmt.Errorf("list voices failed (status %d): %s", resp.StatusCode, msg)
	}

	var out struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	if out.Voices == nil {
		return nil, errors.New("decode voices: missing voices field")
	}
	return out.Voices, nil
}
