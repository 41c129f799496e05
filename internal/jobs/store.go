// Package jobs tracks asynchronous voiceover requests.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceover/internal/cache"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned for unknown or expired jobs.
var ErrNotFound = errors.New("job not found")

type Job struct {
	ID        uuid.UUID                `json:"id"`
	Status    Status                   `json:"status"`
	Language  string                   `json:"target_language,omitempty"`
	Result    *pipeline.Result         `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Stage     pipeline.Stage           `json:"stage,omitempty"`
	Attempts  []pipeline.FailureReport `json:"attempts,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// KV is the slice of the Redis cache the store needs.
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Store struct {
	kv  KV
	ttl time.Duration
}

func NewStore(kv KV, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{kv: kv, ttl: ttl}
}

func key(id uuid.UUID) string { return "voiceover:job:" + id.String() }

// Create records a new queued job.
func (s *Store) Create(ctx context.Context, language string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{ID: uuid.New(), Status: StatusQueued, Language: language, CreatedAt: now, UpdatedAt: now}
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	var job Job
	if err := s.kv.Get(ctx, key(id), &job); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.update(ctx, id, func(j *Job) { j.Status = StatusProcessing })
}

func (s *Store) Complete(ctx context.Context, id uuid.UUID, result *pipeline.Result) error {
	return s.update(ctx, id, func(j *Job) {
		j.Status = StatusSucceeded
		j.Result = result
		j.Error = ""
	})
}

func (s *Store) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	stage, attempts := pipeline.Report(cause)
	return s.update(ctx, id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = cause.Error()
		j.Stage = stage
		j.Attempts = attempts
	})
}

func (s *Store) update(ctx context.Context, id uuid.UUID, fn func(*Job)) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return s.save(ctx, job)
}

func (s *Store) save(ctx context.Context, job *Job) error {
	if err := s.kv.Set(ctx, key(job.ID), job, s.ttl); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}
