package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceover/internal/jobs"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/queue"
)

type fakeStore struct {
	processing []uuid.UUID
	completed  map[uuid.UUID]*pipeline.Result
	failed     map[uuid.UUID]error
	missing    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{completed: map[uuid.UUID]*pipeline.Result{}, failed: map[uuid.UUID]error{}}
}

func (s *fakeStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	if s.missing {
		return jobs.ErrNotFound
	}
	s.processing = append(s.processing, id)
	return nil
}

func (s *fakeStore) Complete(_ context.Context, id uuid.UUID, r *pipeline.Result) error {
	s.completed[id] = r
	return nil
}

func (s *fakeStore) Fail(_ context.Context, id uuid.UUID, cause error) error {
	s.failed[id] = cause
	return nil
}

type fakeProcessor struct {
	got    pipeline.Request
	result *pipeline.Result
	err    error
}

func (p *fakeProcessor) Process(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	p.got = req
	return p.result, p.err
}

func task(t *testing.T, id string, req pipeline.Request) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(queue.VoiceoverPayload{JobID: id, Request: req})
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeVoiceoverProcess, data)
}

func TestVoiceoverWorkerSuccess(t *testing.T) {
	store := newFakeStore()
	proc := &fakeProcessor{result: &pipeline.Result{CleanedScript: "Hi.", AudioFormat: "mp3"}}
	w := NewVoiceoverWorker(store, proc)

	id := uuid.New()
	err := w.ProcessTask(context.Background(), task(t, id.String(), pipeline.Request{Transcript: "hi", TargetLanguage: "en"}))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{id}, store.processing)
	assert.Equal(t, "Hi.", store.completed[id].CleanedScript)
	assert.Equal(t, "hi", proc.got.Transcript)
}

func TestVoiceoverWorkerPipelineFailure(t *testing.T) {
	store := newFakeStore()
	cause := &pipeline.StageError{Stage: pipeline.StageVoiceSynthesis, Err: errors.New("all voice providers failed")}
	w := NewVoiceoverWorker(store, &fakeProcessor{err: cause})

	id := uuid.New()
	err := w.ProcessTask(context.Background(), task(t, id.String(), pipeline.Request{Transcript: "hi"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, cause, store.failed[id])
	assert.Empty(t, store.completed)
}

func TestVoiceoverWorkerBadPayload(t *testing.T) {
	w := NewVoiceoverWorker(newFakeStore(), &fakeProcessor{})

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeVoiceoverProcess, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.ProcessTask(context.Background(), task(t, "not-a-uuid", pipeline.Request{}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestVoiceoverWorkerExpiredJob(t *testing.T) {
	store := newFakeStore()
	store.missing = true
	proc := &fakeProcessor{}
	w := NewVoiceoverWorker(store, proc)

	err := w.ProcessTask(context.Background(), task(t, uuid.NewString(), pipeline.Request{Transcript: "hi"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, proc.got.Transcript, "pipeline must not run for an expired job")
}

func TestVoiceoverWorkerInterrupted(t *testing.T) {
	tests := []struct {
		name       string
		last       bool
		wantFailed bool
	}{
		{name: "retries left", last: false, wantFailed: false},
		{name: "last attempt", last: true, wantFailed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			w := NewVoiceoverWorker(store, &fakeProcessor{err: context.DeadlineExceeded})
			w.lastAttempt = func(context.Context) bool { return tt.last }

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			id := uuid.New()
			err := w.ProcessTask(ctx, task(t, id.String(), pipeline.Request{Transcript: "hi"}))
			require.Error(t, err)
			assert.NotErrorIs(t, err, asynq.SkipRetry)

			cause, failed := store.failed[id]
			assert.Equal(t, tt.wantFailed, failed)
			if tt.wantFailed {
				assert.ErrorIs(t, cause, context.DeadlineExceeded)
			}
			assert.Empty(t, store.completed)
		})
	}
}

func TestRetriesExhaustedOutsideAsynq(t *testing.T) {
	assert.False(t, retriesExhausted(context.Background()))
}
