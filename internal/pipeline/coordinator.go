package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceover/internal/audio"
	"github.com/nikhilbhutani/voiceover/internal/prompt"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// Recorder persists a summary of every run.
type Recorder interface {
	RecordRun(ctx context.Context, run *Run) error
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(context.Context, *Run) error { return nil }

const recordTimeout = 5 * time.Second

// Coordinator runs the text-transform stage and then the voice-synthesis
// stage. A run either produces both a script and audio or fails.
type Coordinator struct {
	text     *TextTransformStage
	voice    *VoiceSynthesisStage
	recorder Recorder
}

// NewCoordinator builds a coordinator. A nil recorder disables auditing.
func NewCoordinator(text *TextTransformStage, voice *VoiceSynthesisStage, recorder Recorder) *Coordinator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Coordinator{text: text, voice: voice, recorder: recorder}
}

// Voice exposes the synthesis stage for callers that only need speech.
func (c *Coordinator) Voice() *VoiceSynthesisStage { return c.voice }

// Process runs the pipeline. Failures are returned as *StageError; voice
// synthesis is never attempted after a failed text transform.
func (c *Coordinator) Process(ctx context.Context, req Request) (*Result, error) {
	run := &Run{
		ID:              uuid.New(),
		StartedAt:       time.Now(),
		TranscriptChars: utf8.RuneCountInString(req.Transcript),
		EventCount:      len(req.InteractionEvents),
	}

	result, err := c.process(ctx, req, run)
	run.Duration = time.Since(run.StartedAt)
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			run.FailedStage = stageErr.Stage
		}
		slog.Error("pipeline failed",
			"run_id", run.ID,
			"stage", run.FailedStage,
			"duration_ms", run.Duration.Milliseconds(),
			"error", err,
		)
	} else {
		run.Status = RunSucceeded
		slog.Info("pipeline completed",
			"run_id", run.ID,
			"text_provider", run.TextProvider,
			"voice_provider", run.VoiceProvider,
			"translated", run.WasTranslated,
			"duration_ms", run.Duration.Milliseconds(),
		)
	}

	c.record(ctx, run)
	return result, err
}

func (c *Coordinator) process(ctx context.Context, req Request, run *Run) (*Result, error) {
	script, err := c.text.Clean(ctx, req.Transcript, req.TargetLanguage)
	if err != nil {
		run.TargetLanguage = prompt.NormalizeLanguage(req.TargetLanguage)
		run.TextAttempts = failedAttempts(err)
		return nil, &StageError{Stage: StageTextTransform, Err: err}
	}
	run.TargetLanguage = script.TargetLanguage
	run.WasTranslated = script.WasTranslated
	run.TextProvider = script.Provider
	run.TextAttempts = script.Attempts
	run.CostUSD = script.CostUSD

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageVoiceSynthesis, Err: err}
	}

	speech, err := c.voice.Synthesize(ctx, script.Text, script.TargetLanguage)
	if err != nil {
		run.VoiceAttempts = failedAttempts(err)
		return nil, &StageError{Stage: StageVoiceSynthesis, Err: err}
	}
	run.VoiceProvider = speech.Provider
	run.VoiceAttempts = speech.Attempts

	return &Result{
		RunID:          run.ID,
		CleanedScript:  script.Text,
		AudioBase64:    audio.Encode(speech.Audio),
		AudioFormat:    speech.Format,
		WasTranslated:  script.WasTranslated,
		TargetLanguage: script.TargetLanguage,
		TextProvider:   script.Provider,
		VoiceProvider:  speech.Provider,
	}, nil
}

// record writes the run even if the request context was cancelled.
func (c *Coordinator) record(ctx context.Context, run *Run) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := c.recorder.RecordRun(ctx, run); err != nil {
		slog.Warn("failed to record pipeline run", "run_id", run.ID, "error", err)
	}
}

func failedAttempts(err error) []provider.Attempt {
	var exhausted *provider.ExhaustedError
	if !errors.As(err, &exhausted) {
		return nil
	}
	if len(exhausted.Attempts) > 0 {
		return exhausted.Attempts
	}
	attempts := make([]provider.Attempt, len(exhausted.Failures))
	for i := range exhausted.Failures {
		f := exhausted.Failures[i]
		attempts[i] = provider.Attempt{Provider: f.Provider, Failure: &f}
	}
	return attempts
}
