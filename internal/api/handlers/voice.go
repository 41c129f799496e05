package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/voiceover/internal/audio"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

type Synthesizer interface {
	SynthesizeVoice(ctx context.Context, text, targetLanguage, voiceID string) (*pipeline.Speech, error)
}

type VoiceLister interface {
	ListVoices(ctx context.Context) ([]tts.Voice, error)
}

type VoiceHandler struct {
	synth  Synthesizer
	voices VoiceLister
}

// NewVoiceHandler serves voice tests and the voice catalogue. voices may be
// nil when no catalogue provider is configured.
func NewVoiceHandler(synth Synthesizer, voices VoiceLister) *VoiceHandler {
	return &VoiceHandler{synth: synth, voices: voices}
}

type testVoiceRequest struct {
	Text            string `json:"text"`
	TargetLanguage  string `json:"target_language"`
	TargetLangAlias string `json:"targetLanguage"`
	VoiceID         string `json:"voice_id"`
}

type testVoiceResponse struct {
	Success     bool   `json:"success"`
	AudioBase64 string `json:"audio_base64"`
	AudioFormat string `json:"audio_format"`
	Mode        string `json:"mode"`
	Provider    string `json:"provider,omitempty"`
}

func (h *VoiceHandler) TestVoice(w http.ResponseWriter, r *http.Request) {
	var req testVoiceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = req.TargetLangAlias
	}

	speech, err := h.synth.SynthesizeVoice(r.Context(), req.Text, req.TargetLanguage, req.VoiceID)
	if err != nil {
		writePipelineError(w, r, &pipeline.StageError{Stage: pipeline.StageVoiceSynthesis, Err: err})
		return
	}

	writeJSON(w, http.StatusOK, testVoiceResponse{
		Success:     true,
		AudioBase64: audio.Encode(speech.Audio),
		AudioFormat: speech.Format,
		Mode:        string(speech.Mode),
		Provider:    speech.Provider,
	})
}

func (h *VoiceHandler) Voices(w http.ResponseWriter, r *http.Request) {
	if h.voices == nil {
		writeError(w, http.StatusServiceUnavailable, "voice catalogue requires ELEVENLABS_API_KEY")
		return
	}

	voices, err := h.voices.ListVoices(r.Context())
	if err != nil {
		slog.Error("list voices", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch voices: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"voices": voices, "count": len(voices)})
}
