package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voiceover/internal/audit"
	"github.com/nikhilbhutani/voiceover/internal/cache"
	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/database"
	"github.com/nikhilbhutani/voiceover/internal/jobs"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/queue"
	"github.com/nikhilbhutani/voiceover/internal/queue/workers"
)

const concurrency = 4

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// The API server owns migrations; the worker only writes rows.
	var recorder pipeline.Recorder
	if cfg.Database.URL != "" {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without audit log", "error", err)
		} else {
			defer db.Close()
			recorder = audit.NewService(db)
		}
	}

	coordinator, closeProviders, err := pipeline.Build(ctx, cfg, recorder)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer closeProviders()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	store := jobs.NewStore(cache.NewCache(rdb), cfg.Redis.JobTTL)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: queue.VoiceoverTimeout,
		},
	)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeVoiceoverProcess, workers.NewVoiceoverWorker(store, coordinator))

	slog.Info("starting worker", "concurrency", concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
