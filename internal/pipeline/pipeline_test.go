package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceover/internal/audio"
	"github.com/nikhilbhutani/voiceover/internal/llm"
	"github.com/nikhilbhutani/voiceover/internal/provider"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

var testAudio = []byte("ID3 fake mp3 payload")

type callLog struct {
	mu    sync.Mutex
	text  []string
	voice []tts.SynthesisRequest
	user  []string
}

func (l *callLog) textCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.text...)
}

func (l *callLog) voiceCalls() []tts.SynthesisRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]tts.SynthesisRequest(nil), l.voice...)
}

func textOK(content string) llm.Outcome {
	return provider.Succeed(&llm.ChatResponse{Content: content, Model: "stub", CostUSD: 0.001})
}

func textFail(kind provider.ErrorKind) llm.Outcome {
	return provider.Fail[*llm.ChatResponse](kind, errors.New(string(kind)))
}

func textEntry(log *callLog, name string, priority int, out llm.Outcome) llm.Entry {
	return llm.Entry{
		Spec: provider.Spec{Name: name, Priority: priority, Kind: provider.KindTextTransform},
		Adapter: provider.AdapterFunc[llm.ChatRequest, *llm.ChatResponse](func(_ context.Context, spec provider.Spec, req llm.ChatRequest) llm.Outcome {
			log.mu.Lock()
			log.text = append(log.text, spec.Name)
			log.user = append(log.user, req.Messages[len(req.Messages)-1].Content)
			log.mu.Unlock()
			return out
		}),
	}
}

func voiceEntry(log *callLog, name string, priority int, fail bool) tts.Entry {
	return tts.Entry{
		Spec: provider.Spec{Name: name, Priority: priority, Kind: provider.KindVoiceSynthesis},
		Adapter: provider.AdapterFunc[tts.SynthesisRequest, *tts.SynthesisResult](func(_ context.Context, spec provider.Spec, req tts.SynthesisRequest) tts.Outcome {
			log.mu.Lock()
			log.voice = append(log.voice, req)
			log.mu.Unlock()
			if fail {
				return provider.Fail[*tts.SynthesisResult](provider.QuotaExceeded, errors.New("quota"))
			}
			return provider.Succeed(&tts.SynthesisResult{Audio: testAudio, Format: "mp3", Provider: spec.Name})
		}),
	}
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []*Run
}

func (r *fakeRecorder) RecordRun(_ context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func newCoordinator(t *testing.T, text []llm.Entry, voice []tts.Entry, rec Recorder) *Coordinator {
	t.Helper()
	textChain, err := provider.NewChain(provider.KindTextTransform, text...)
	require.NoError(t, err)
	voiceChain, err := provider.NewChain(provider.KindVoiceSynthesis, voice...)
	require.NoError(t, err)
	return NewCoordinator(NewTextTransformStage(textChain), NewVoiceSynthesisStage(voiceChain, "wav"), rec)
}

func TestProcessSuccess(t *testing.T) {
	log := &callLog{}
	c := newCoordinator(t,
		[]llm.Entry{textEntry(log, "gemini", 1, textOK("Welcome to the dashboard."))},
		[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
		nil,
	)

	res, err := c.Process(context.Background(), Request{
		Transcript:        "um so uh welcome to the like dashboard",
		InteractionEvents: []json.RawMessage{json.RawMessage(`{"type":"click"}`)},
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to the dashboard.", res.CleanedScript)
	assert.Equal(t, audio.Encode(testAudio), res.AudioBase64)
	assert.Equal(t, "mp3", res.AudioFormat)
	assert.Equal(t, "en", res.TargetLanguage)
	assert.False(t, res.WasTranslated)
	assert.Equal(t, "gemini", res.TextProvider)
	assert.Equal(t, "elevenlabs", res.VoiceProvider)

	voice := log.voiceCalls()
	require.Len(t, voice, 1)
	assert.Equal(t, tts.Monolingual, voice[0].Mode)
	assert.Equal(t, "Welcome to the dashboard.", voice[0].Text)
	assert.Contains(t, log.user[0], "clean and rewrite")
}

func TestProcessEmptyTranscript(t *testing.T) {
	for _, transcript := range []string{"", "  ", "\n\t "} {
		for _, language := range []string{"en", "", "es"} {
			log := &callLog{}
			c := newCoordinator(t,
				[]llm.Entry{textEntry(log, "gemini", 1, textOK("never"))},
				[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
				nil,
			)

			res, err := c.Process(context.Background(), Request{Transcript: transcript, TargetLanguage: language})
			require.NoError(t, err)
			assert.Equal(t, "", res.CleanedScript)
			assert.Equal(t, "", res.AudioBase64)
			assert.Equal(t, "wav", res.AudioFormat)
			assert.False(t, res.WasTranslated)
			assert.Empty(t, log.textCalls())
			assert.Empty(t, log.voiceCalls())
		}
	}
}

func TestProcessFallsBackAndTranslates(t *testing.T) {
	log := &callLog{}
	rec := &fakeRecorder{}
	c := newCoordinator(t,
		[]llm.Entry{
			textEntry(log, "gemini", 1, textFail(provider.RateLimited)),
			textEntry(log, "openai", 2, textFail(provider.RateLimited)),
			textEntry(log, "groq", 3, textOK("Bienvenue sur le tableau de bord.")),
			textEntry(log, "anthropic", 4, textOK("unused")),
		},
		[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
		rec,
	)

	res, err := c.Process(context.Background(), Request{Transcript: "welcome to the dashboard", TargetLanguage: "fr"})
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini", "openai", "groq"}, log.textCalls())
	assert.Equal(t, "Bienvenue sur le tableau de bord.", res.CleanedScript)
	assert.True(t, res.WasTranslated)
	assert.Equal(t, "groq", res.TextProvider)
	assert.Contains(t, log.user[0], "translate it to fr")

	voice := log.voiceCalls()
	require.Len(t, voice, 1)
	assert.Equal(t, tts.Multilingual, voice[0].Mode)
	assert.Equal(t, "fr", voice[0].Language)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, RunSucceeded, run.Status)
	assert.Equal(t, res.RunID, run.ID)
	require.Len(t, run.TextAttempts, 3)
	assert.Equal(t, provider.RateLimited, run.TextAttempts[0].Failure.Kind)
	assert.Nil(t, run.TextAttempts[2].Failure)
	assert.InDelta(t, 0.001, run.CostUSD, 1e-9)
}

func TestProcessTextStageExhausted(t *testing.T) {
	log := &callLog{}
	rec := &fakeRecorder{}
	c := newCoordinator(t,
		[]llm.Entry{
			slowText(textEntry(log, "gemini", 7, textFail(provider.QuotaExceeded)), 20*time.Millisecond),
			textEntry(log, "openai", 8, textFail(provider.AuthenticationFailed)),
			textEntry(log, "groq", 9, textFail(provider.Timeout)),
		},
		[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
		rec,
	)

	res, err := c.Process(context.Background(), Request{Transcript: "hello there"})
	require.Error(t, err)
	assert.Nil(t, res)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageTextTransform, stageErr.Stage)

	failures := stageErr.Failures()
	require.Len(t, failures, 3)
	assert.Equal(t, "gemini", failures[0].Provider)
	assert.Equal(t, provider.QuotaExceeded, failures[0].Kind)
	assert.Equal(t, "openai", failures[1].Provider)
	assert.Equal(t, "groq", failures[2].Provider)
	assert.Equal(t, []string{"gemini", "openai", "groq"}, log.textCalls())
	assert.Empty(t, log.voiceCalls(), "synthesis must not run after a failed text stage")

	require.Len(t, rec.runs, 1)
	assert.Equal(t, RunFailed, rec.runs[0].Status)
	assert.Equal(t, StageTextTransform, rec.runs[0].FailedStage)
	attempts := rec.runs[0].TextAttempts
	require.Len(t, attempts, 3)
	assert.Equal(t, 7, attempts[0].Priority)
	assert.GreaterOrEqual(t, attempts[0].Latency, 20*time.Millisecond)
	require.NotNil(t, attempts[0].Failure)
	assert.Equal(t, provider.QuotaExceeded, attempts[0].Failure.Kind)
	assert.Equal(t, []int{7, 8, 9}, []int{attempts[0].Priority, attempts[1].Priority, attempts[2].Priority})
}

func slowText(e llm.Entry, d time.Duration) llm.Entry {
	inner := e.Adapter
	e.Adapter = provider.AdapterFunc[llm.ChatRequest, *llm.ChatResponse](func(ctx context.Context, spec provider.Spec, req llm.ChatRequest) llm.Outcome {
		time.Sleep(d)
		return inner.Invoke(ctx, spec, req)
	})
	return e
}

func TestProcessVoiceStageFailure(t *testing.T) {
	log := &callLog{}
	rec := &fakeRecorder{}
	c := newCoordinator(t,
		[]llm.Entry{textEntry(log, "gemini", 1, textOK("Hello."))},
		[]tts.Entry{
			voiceEntry(log, "elevenlabs", 1, true),
			voiceEntry(log, "openai-tts", 2, true),
		},
		rec,
	)

	res, err := c.Process(context.Background(), Request{Transcript: "hello"})
	require.Error(t, err)
	assert.Nil(t, res)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageVoiceSynthesis, stageErr.Stage)
	assert.Len(t, stageErr.Failures(), 2)
	assert.Len(t, log.voiceCalls(), 2)

	require.Len(t, rec.runs, 1)
	voice := rec.runs[0].VoiceAttempts
	require.Len(t, voice, 2)
	assert.Equal(t, 1, voice[0].Priority)
	assert.Equal(t, 2, voice[1].Priority)
	assert.Equal(t, "openai-tts", voice[1].Provider)
}

func TestProcessStripsPreamble(t *testing.T) {
	log := &callLog{}
	c := newCoordinator(t,
		[]llm.Entry{
			textEntry(log, "gemini", 1, textOK("Sure! Here's the script:")),
			textEntry(log, "openai", 2, textOK("Here's the polished voiceover text:\n\nHello and welcome.")),
		},
		[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
		nil,
	)

	res, err := c.Process(context.Background(), Request{Transcript: "uh hello and welcome"})
	require.NoError(t, err)
	assert.Equal(t, "Hello and welcome.", res.CleanedScript)
	assert.Equal(t, "openai", res.TextProvider)
	assert.Equal(t, []string{"gemini", "openai"}, log.textCalls())
}

func TestProcessDeterministic(t *testing.T) {
	log := &callLog{}
	c := newCoordinator(t,
		[]llm.Entry{
			textEntry(log, "gemini", 1, textFail(provider.NetworkError)),
			textEntry(log, "openai", 2, textOK("Same every time.")),
		},
		[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
		nil,
	)

	req := Request{Transcript: "same every time", TargetLanguage: "es"}
	first, err := c.Process(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.CleanedScript, second.CleanedScript)
	assert.Equal(t, first.AudioBase64, second.AudioBase64)
	assert.Equal(t, []string{"gemini", "openai", "gemini", "openai"}, log.textCalls())
	voice := log.voiceCalls()
	require.Len(t, voice, 2)
	assert.Equal(t, voice[0], voice[1])
}

func TestProcessCancelled(t *testing.T) {
	log := &callLog{}
	c := newCoordinator(t,
		[]llm.Entry{textEntry(log, "gemini", 1, textOK("Hello."))},
		[]tts.Entry{voiceEntry(log, "elevenlabs", 1, false)},
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Process(ctx, Request{Transcript: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log.textCalls())
	assert.Empty(t, log.voiceCalls())
}

func TestProcessNoTextProviders(t *testing.T) {
	log := &callLog{}
	c := newCoordinator(t, nil, []tts.Entry{voiceEntry(log, "elevenlabs", 1, false)}, nil)

	_, err := c.Process(context.Background(), Request{Transcript: "hello"})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageTextTransform, stageErr.Stage)
	assert.ErrorIs(t, err, provider.ErrNoProviders)
}

func TestVoiceStageEmptyText(t *testing.T) {
	log := &callLog{}
	chain, err := provider.NewChain(provider.KindVoiceSynthesis, voiceEntry(log, "elevenlabs", 1, false))
	require.NoError(t, err)

	speech, err := NewVoiceSynthesisStage(chain, "").Synthesize(context.Background(), "", "de")
	require.NoError(t, err)
	assert.Empty(t, speech.Audio)
	assert.Equal(t, "mp3", speech.Format)
	assert.Equal(t, tts.Multilingual, speech.Mode)
	assert.Empty(t, log.voiceCalls())
}

func TestVoiceStageOverride(t *testing.T) {
	log := &callLog{}
	chain, err := provider.NewChain(provider.KindVoiceSynthesis, voiceEntry(log, "elevenlabs", 1, false))
	require.NoError(t, err)

	_, err = NewVoiceSynthesisStage(chain, "mp3").SynthesizeVoice(context.Background(), "Hi.", " EN ", "custom")
	require.NoError(t, err)
	voice := log.voiceCalls()
	require.Len(t, voice, 1)
	assert.Equal(t, "custom", voice[0].VoiceID)
	assert.Equal(t, tts.Monolingual, voice[0].Mode)
	assert.Equal(t, "en", voice[0].Language)
}
