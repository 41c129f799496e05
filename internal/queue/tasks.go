package queue

import "github.com/nikhilbhutani/voiceover/internal/pipeline"

const TypeVoiceoverProcess = "voiceover:process"

type VoiceoverPayload struct {
	JobID   string           `json:"job_id"`
	Request pipeline.Request `json:"request"`
}
