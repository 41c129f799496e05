package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceover/internal/jobs"
	"github.com/nikhilbhutani/voiceover/internal/prompt"
	"github.com/nikhilbhutani/voiceover/internal/queue"
)

type JobStore interface {
	Create(ctx context.Context, language string) (*jobs.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
	Fail(ctx context.Context, id uuid.UUID, cause error) error
}

type Enqueuer interface {
	EnqueueVoiceover(ctx context.Context, payload queue.VoiceoverPayload) error
}

// JobsHandler accepts pipeline requests for background processing.
type JobsHandler struct {
	store    JobStore
	queue    Enqueuer
	maxChars int
}

func NewJobsHandler(store JobStore, q Enqueuer, maxTranscriptChars int) *JobsHandler {
	return &JobsHandler{store: store, queue: q, maxChars: maxTranscriptChars}
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProcessRequest(w, r, h.maxChars)
	if !ok {
		return
	}

	job, err := h.store.Create(r.Context(), prompt.NormalizeLanguage(req.TargetLanguage))
	if err != nil {
		slog.Error("create job", "error", err)
		writeError(w, http.StatusServiceUnavailable, "job store unavailable")
		return
	}

	payload := queue.VoiceoverPayload{JobID: job.ID.String(), Request: req}
	if err := h.queue.EnqueueVoiceover(r.Context(), payload); err != nil {
		slog.Error("enqueue voiceover", "job_id", job.ID, "error", err)
		if failErr := h.store.Fail(r.Context(), job.ID, fmt.Errorf("enqueue: %w", err)); failErr != nil {
			slog.Warn("mark job failed", "job_id", job.ID, "error", failErr)
		}
		writeError(w, http.StatusServiceUnavailable, "job queue unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":    true,
		"job_id":     job.ID,
		"status":     job.Status,
		"status_url": "/jobs/" + job.ID.String(),
	})
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		slog.Error("get job", "job_id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "job store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, job)
}
