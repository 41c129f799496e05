// Package audit stores pipeline runs and their provider attempts in Postgres.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// RecordRun implements pipeline.Recorder.
func (s *Service) RecordRun(ctx context.Context, run *pipeline.Run) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO pipeline_runs (id, status, failed_stage, error, target_language, was_translated,
		                            transcript_chars, event_count, text_provider, voice_provider,
		                            cost_usd, duration_ms, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.Status, nullable(string(run.FailedStage)), nullable(run.Error), run.TargetLanguage, run.WasTranslated,
		run.TranscriptChars, run.EventCount, nullable(run.TextProvider), nullable(run.VoiceProvider),
		run.CostUSD, run.Duration.Milliseconds(), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}

	rows := attemptRows(run)
	if len(rows) > 0 {
		batch := &pgx.Batch{}
		for _, a := range rows {
			batch.Queue(
				`INSERT INTO provider_attempts (run_id, stage, seq, provider, priority, succeeded, error_kind, retriable, error, latency_ms)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				run.ID, a.Stage, a.Seq, a.Provider, a.Priority, a.Succeeded, a.ErrorKind, a.Retriable, a.Error, a.LatencyMs,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert provider attempts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

type attemptRow struct {
	Stage     pipeline.Stage
	Seq       int
	Provider  string
	Priority  int
	Succeeded bool
	ErrorKind *string
	Retriable *bool
	Error     *string
	LatencyMs int64
}

func attemptRows(run *pipeline.Run) []attemptRow {
	var rows []attemptRow
	add := func(stage pipeline.Stage, attempts []provider.Attempt) {
		for i, a := range attempts {
			row := attemptRow{
				Stage:     stage,
				Seq:       i + 1,
				Provider:  a.Provider,
				Priority:  a.Priority,
				Succeeded: a.Failure == nil,
				LatencyMs: a.Latency.Milliseconds(),
			}
			if a.Failure != nil {
				kind := string(a.Failure.Kind)
				retriable := a.Failure.Retriable
				row.ErrorKind = &kind
				row.Retriable = &retriable
				if a.Failure.Err != nil {
					msg := a.Failure.Err.Error()
					row.Error = &msg
				}
			}
			rows = append(rows, row)
		}
	}
	add(pipeline.StageTextTransform, run.TextAttempts)
	add(pipeline.StageVoiceSynthesis, run.VoiceAttempts)
	return rows
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type RunQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	Limit     int
	Offset    int
}

type RunSummary struct {
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	FailedStage    *string   `json:"failed_stage,omitempty"`
	Error          *string   `json:"error,omitempty"`
	TargetLanguage string    `json:"target_language"`
	WasTranslated  bool      `json:"was_translated"`
	TextProvider   *string   `json:"text_provider,omitempty"`
	VoiceProvider  *string   `json:"voice_provider,omitempty"`
	CostUSD        float64   `json:"cost_usd"`
	DurationMs     int64     `json:"duration_ms"`
	StartedAt      time.Time `json:"started_at"`
}

func (s *Service) ListRuns(ctx context.Context, q RunQuery) ([]RunSummary, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, status, failed_stage, error, target_language, was_translated,
	                 text_provider, voice_provider, cost_usd, duration_ms, started_at
	          FROM pipeline_runs WHERE true`
	var args []interface{}
	argIdx := 1

	if q.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, q.Status)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND started_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND started_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Status, &r.FailedStage, &r.Error, &r.TargetLanguage, &r.WasTranslated,
			&r.TextProvider, &r.VoiceProvider, &r.CostUSD, &r.DurationMs, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type UsageSummary struct {
	Stage        string  `json:"stage"`
	Provider     string  `json:"provider"`
	Attempts     int     `json:"attempts"`
	Successes    int     `json:"successes"`
	Failures     int     `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// GetUsageSummary aggregates provider attempts per stage and provider.
func (s *Service) GetUsageSummary(ctx context.Context, startDate, endDate *time.Time) ([]UsageSummary, error) {
	query := `SELECT stage, provider, COUNT(*) AS attempts,
	                 COUNT(*) FILTER (WHERE succeeded) AS successes,
	                 COUNT(*) FILTER (WHERE NOT succeeded) AS failures,
	                 COALESCE(AVG(latency_ms), 0)::float8 AS avg_latency_ms
	          FROM provider_attempts WHERE true`
	var args []interface{}
	argIdx := 1

	if startDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *startDate)
		argIdx++
	}
	if endDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *endDate)
	}

	query += " GROUP BY stage, provider ORDER BY stage, attempts DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []UsageSummary
	for rows.Next() {
		var us UsageSummary
		if err := rows.Scan(&us.Stage, &us.Provider, &us.Attempts, &us.Successes, &us.Failures, &us.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		summaries = append(summaries, us)
	}
	return summaries, rows.Err()
}
