package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceover/internal/jobs"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/queue"
)

const failWriteTimeout = 5 * time.Second

type JobStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result *pipeline.Result) error
	Fail(ctx context.Context, id uuid.UUID, cause error) error
}

type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// VoiceoverWorker runs queued pipeline requests and stores their outcome.
type VoiceoverWorker struct {
	store    JobStore
	pipeline Processor
	// lastAttempt reports whether asynq will not run the task again.
	lastAttempt func(ctx context.Context) bool
}

func NewVoiceoverWorker(store JobStore, p Processor) *VoiceoverWorker {
	return &VoiceoverWorker{store: store, pipeline: p, lastAttempt: retriesExhausted}
}

func retriesExhausted(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}

func (w *VoiceoverWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.VoiceoverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("processing voiceover job", "job_id", jobID, "target_language", payload.Request.TargetLanguage)

	if err := w.store.MarkProcessing(ctx, jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return fmt.Errorf("job %s expired: %w", jobID, asynq.SkipRetry)
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	result, err := w.pipeline.Process(ctx, payload.Request)
	if err != nil {
		// Shutdown or task timeout: let asynq retry the task unless this
		// was the last attempt, in which case the job would stay processing.
		if ctx.Err() != nil {
			if w.lastAttempt(ctx) {
				w.fail(context.WithoutCancel(ctx), jobID, err)
			}
			return fmt.Errorf("voiceover job %s interrupted: %w", jobID, err)
		}
		w.fail(ctx, jobID, err)
		return fmt.Errorf("voiceover job %s: %v: %w", jobID, err, asynq.SkipRetry)
	}

	if err := w.store.Complete(ctx, jobID, result); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	slog.Info("voiceover job completed", "job_id", jobID, "text_provider", result.TextProvider, "voice_provider", result.VoiceProvider)
	return nil
}

func (w *VoiceoverWorker) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(ctx, failWriteTimeout)
	defer cancel()
	if err := w.store.Fail(ctx, jobID, cause); err != nil {
		slog.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
}
