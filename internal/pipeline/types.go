// Package pipeline turns a spoken transcript into a cleaned voiceover script
// and synthesized audio. Each stage runs a provider fallback chain.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceover/internal/provider"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

// Request is one pipeline invocation. InteractionEvents are carried through
// untouched.
type Request struct {
	Transcript        string            `json:"transcript"`
	InteractionEvents []json.RawMessage `json:"dom_events"`
	TargetLanguage    string            `json:"target_language,omitempty"`
}

// CleanedScript is the output of the text-transform stage.
type CleanedScript struct {
	Text           string             `json:"text"`
	WasTranslated  bool               `json:"was_translated"`
	TargetLanguage string             `json:"target_language"`
	Provider       string             `json:"provider,omitempty"`
	Model          string             `json:"model,omitempty"`
	CostUSD        float64            `json:"cost_usd"`
	Attempts       []provider.Attempt `json:"attempts,omitempty"`
}

// Speech is the output of the voice-synthesis stage.
type Speech struct {
	Audio    []byte             `json:"-"`
	Format   string             `json:"format"`
	Mode     tts.Mode           `json:"mode"`
	Provider string             `json:"provider,omitempty"`
	Attempts []provider.Attempt `json:"attempts,omitempty"`
}

// Result is a completed pipeline run.
type Result struct {
	RunID         uuid.UUID `json:"run_id"`
	CleanedScript string    `json:"cleaned_script"`
	AudioBase64   string    `json:"audio_base64"`
	AudioFormat   string    `json:"audio_format"`

	WasTranslated  bool   `json:"was_translated"`
	TargetLanguage string `json:"target_language"`
	TextProvider   string `json:"text_provider,omitempty"`
	VoiceProvider  string `json:"voice_provider,omitempty"`
}

// Stage names a pipeline phase.
type Stage string

const (
	StageTextTransform  Stage = "text_transform"
	StageVoiceSynthesis Stage = "voice_synthesis"
)

// StageError is a terminal pipeline failure attributed to one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Failures returns the per-provider failures, in attempt order, when the
// stage exhausted its chain.
func (e *StageError) Failures() []provider.Failure {
	var exhausted *provider.ExhaustedError
	if errors.As(e.Err, &exhausted) {
		return exhausted.Failures
	}
	return nil
}

// Run summarizes one Process call for auditing.
type Run struct {
	ID              uuid.UUID
	StartedAt       time.Time
	Duration        time.Duration
	TargetLanguage  string
	TranscriptChars int
	EventCount      int

	Status        string // "succeeded" or "failed"
	FailedStage   Stage
	Error         string
	WasTranslated bool
	TextProvider  string
	VoiceProvider string
	CostUSD       float64
	TextAttempts  []provider.Attempt
	VoiceAttempts []provider.Attempt
}

const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// FailureReport is the transport form of one failed provider attempt.
type FailureReport struct {
	Provider  string             `json:"provider"`
	Kind      provider.ErrorKind `json:"kind"`
	Retriable bool               `json:"retriable"`
	Error     string             `json:"error,omitempty"`
}

// Report extracts the failed stage and its per-provider failures from a
// Process error. Stage is empty when err is not a *StageError.
func Report(err error) (Stage, []FailureReport) {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		return "", nil
	}
	failures := stageErr.Failures()
	reports := make([]FailureReport, len(failures))
	for i, f := range failures {
		reports[i] = FailureReport{Provider: f.Provider, Kind: f.Kind, Retriable: f.Retriable}
		if f.Err != nil {
			reports[i].Error = f.Err.Error()
		}
	}
	return stageErr.Stage, reports
}
