package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

var fakeMP3 = append([]byte("ID3"), bytes.Repeat([]byte{0}, 64)...)

func voiceSpec(name string) provider.Spec {
	return provider.Spec{Name: name, Priority: 1, Kind: provider.KindVoiceSynthesis}
}

func newTestElevenLabs(url string) *ElevenLabs {
	return NewElevenLabs(ElevenLabsConfig{
		APIKey:            "xi-key",
		BaseURL:           url,
		VoiceID:           "voice-1",
		MonolingualModel:  "eleven_monolingual_v1",
		MultilingualModel: "eleven_multilingual_v2",
		Stability:         0.5,
		SimilarityBoost:   0.75,
		SpeakerBoost:      true,
	})
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, Monolingual, ModeFor("en"))
	assert.Equal(t, Multilingual, ModeFor("es"))
	assert.Equal(t, Multilingual, ModeFor("fr"))
}

func TestElevenLabsSynthesize(t *testing.T) {
	tests := []struct {
		name      string
		mode      Mode
		wantModel string
	}{
		{"monolingual", Monolingual, "eleven_monolingual_v1"},
		{"multilingual", Multilingual, "eleven_multilingual_v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
				assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
				assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))

				var body elevenLabsSpeechReq
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "Welcome aboard.", body.Text)
				assert.Equal(t, tt.wantModel, body.ModelID)
				assert.Equal(t, 0.5, body.VoiceSettings.Stability)
				assert.Equal(t, 0.75, body.VoiceSettings.SimilarityBoost)
				assert.True(t, body.VoiceSettings.UseSpeakerBoost)

				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write(fakeMP3)
			}))
			defer srv.Close()

			out := newTestElevenLabs(srv.URL).Invoke(context.Background(), voiceSpec("elevenlabs"),
				SynthesisRequest{Text: "Welcome aboard.", Mode: tt.mode})
			require.True(t, out.OK(), "unexpected failure: %v", out.Failure)
			assert.Equal(t, fakeMP3, out.Value.Audio)
			assert.Equal(t, "mp3", out.Value.Format)
			assert.Equal(t, "audio/mpeg", out.Value.ContentType)
			assert.Equal(t, tt.wantModel, out.Value.Model)
		})
	}
}

func TestElevenLabsVoiceOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/other", r.URL.Path)
		_, _ = w.Write(fakeMP3)
	}))
	defer srv.Close()

	out := newTestElevenLabs(srv.URL).Invoke(context.Background(), voiceSpec("elevenlabs"),
		SynthesisRequest{Text: "hi", Mode: Monolingual, VoiceID: "other"})
	assert.True(t, out.OK())
}

func TestElevenLabsFailures(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want provider.ErrorKind
	}{
		{"quota", http.StatusUnauthorized, `{"detail":{"status":"quota_exceeded","message":"This request exceeds your quota."}}`, provider.QuotaExceeded},
		{"bad key", http.StatusUnauthorized, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`, provider.AuthenticationFailed},
		{"busy", http.StatusTooManyRequests, `{"detail":{"status":"too_many_concurrent_requests","message":"busy"}}`, provider.RateLimited},
		{"validation", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","text"],"msg":"field required"}]}`, provider.MalformedResponse},
		{"string detail", http.StatusBadGateway, `{"detail":"upstream down"}`, provider.NetworkError},
		{"not json", http.StatusInternalServerError, `oops`, provider.NetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out := newTestElevenLabs(srv.URL).Invoke(context.Background(), voiceSpec("elevenlabs"),
				SynthesisRequest{Text: "hi", Mode: Monolingual})
			require.False(t, out.OK())
			assert.Equal(t, tt.want, out.Failure.Kind)
		})
	}
}

func TestElevenLabsRejectsNonAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	out := newTestElevenLabs(srv.URL).Invoke(context.Background(), voiceSpec("elevenlabs"),
		SynthesisRequest{Text: "hi", Mode: Monolingual})
	require.False(t, out.OK())
	assert.Equal(t, provider.MalformedResponse, out.Failure.Kind)
}

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voices", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		_, _ = w.Write([]byte(`{"voices":[{"voice_id":"21m00Tcm4TlvDq8ikWAM","name":"Rachel","category":"premade","labels":{"accent":"american"}}]}`))
	}))
	defer srv.Close()

	voices, err := newTestElevenLabs(srv.URL).ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Rachel", voices[0].Name)
	assert.Equal(t, "american", voices[0].Labels["accent"])
}

func TestListVoicesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	_, err := newTestElevenLabs(srv.URL).ListVoices(context.Background())
	assert.ErrorContains(t, err, "Invalid API key")
}

func TestOpenAITTS(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/audio/speech", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "tts-1", body["model"])
			assert.Equal(t, "nova", body["voice"])
			assert.Equal(t, "mp3", body["response_format"])

			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write(fakeMP3)
		}))
		defer srv.Close()

		p := NewOpenAITTS(OpenAITTSConfig{APIKey: "sk", BaseURL: srv.URL + "/v1", Voice: "nova"})
		out := p.Invoke(context.Background(), voiceSpec("openai-tts"), SynthesisRequest{Text: "Hola.", Mode: Multilingual, VoiceID: "21m00Tcm4TlvDq8ikWAM"})
		require.True(t, out.OK(), "unexpected failure: %v", out.Failure)
		assert.Equal(t, "mp3", out.Value.Format)
		assert.Equal(t, fakeMP3, out.Value.Audio)
	})

	t.Run("quota", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
		}))
		defer srv.Close()

		p := NewOpenAITTS(OpenAITTSConfig{APIKey: "sk", BaseURL: srv.URL + "/v1"})
		out := p.Invoke(context.Background(), voiceSpec("openai-tts"), SynthesisRequest{Text: "hi"})
		require.False(t, out.OK())
		assert.Equal(t, provider.QuotaExceeded, out.Failure.Kind)
	})
}

func TestNewChain(t *testing.T) {
	cfg := config.TTSConfig{
		ElevenLabsKey:    "xi",
		MonolingualModel: "eleven_monolingual_v1",
		OpenAIModel:      "tts-1",
		Order:            []string{"elevenlabs", "openai-tts"},
	}

	chain, err := NewChain(cfg)
	require.NoError(t, err)
	require.Len(t, chain.Specs(), 1)
	assert.Equal(t, "elevenlabs", chain.Specs()[0].Name)
	assert.Equal(t, provider.KindVoiceSynthesis, chain.Kind())

	cfg.OpenAIKey = "sk"
	cfg.Order = []string{"OpenAI-TTS", "elevenlabs"}
	chain, err = NewChain(cfg)
	require.NoError(t, err)
	require.Len(t, chain.Specs(), 2)
	assert.Equal(t, "openai-tts", chain.Specs()[0].Name)

	_, err = NewChain(config.TTSConfig{Order: Known})
	assert.ErrorIs(t, err, provider.ErrNoProviders)

	cfg.Order = []string{"polly"}
	_, err = NewChain(cfg)
	assert.ErrorContains(t, err, "polly")
}
