// Package tts holds the voice-synthesis providers and the chain built from
// them.
package tts

import (
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

// Mode selects the synthesis model family.
type Mode string

const (
	Monolingual  Mode = "monolingual"
	Multilingual Mode = "multilingual"
)

// ModeFor returns the mode required to pronounce text in language.
func ModeFor(language string) Mode {
	if language == "en" {
		return Monolingual
	}
	return Multilingual
}

// SynthesisRequest is the capability input for voice-synthesis providers.
type SynthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Mode     Mode   `json:"mode"`
	VoiceID  string `json:"voice_id,omitempty"` // overrides the configured voice
}

// SynthesisResult holds the generated audio and its format tag.
type SynthesisResult struct {
	Audio       []byte
	Format      string // "mp3" or "wav"
	ContentType string
	Provider    string
	Model       string
}

type (
	Adapter = provider.Adapter[SynthesisRequest, *SynthesisResult]
	Entry   = provider.Entry[SynthesisRequest, *SynthesisResult]
	Chain   = provider.Chain[SynthesisRequest, *SynthesisResult]
	Outcome = provider.Outcome[*SynthesisResult]
)

func fail(kind provider.ErrorKind, err error) Outcome {
	return provider.Fail[*SynthesisResult](kind, err)
}
