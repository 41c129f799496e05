package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voiceover/internal/api"
	"github.com/nikhilbhutani/voiceover/internal/api/handlers"
	"github.com/nikhilbhutani/voiceover/internal/audit"
	"github.com/nikhilbhutani/voiceover/internal/cache"
	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/database"
	"github.com/nikhilbhutani/voiceover/internal/jobs"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/queue"
	"github.com/nikhilbhutani/voiceover/internal/tts"
	"github.com/nikhilbhutani/voiceover/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	deps := api.Deps{Checks: map[string]handlers.Pinger{}}

	// Audit log (optional)
	var recorder pipeline.Recorder
	if cfg.Database.URL != "" {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without audit log", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, migrationsFS(cfg.Database.MigrationsPath)); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			auditSvc := audit.NewService(db)
			recorder = auditSvc
			deps.Audit = auditSvc
			deps.Checks["database"] = db
		}
	}

	coordinator, closeProviders, err := pipeline.Build(ctx, cfg, recorder)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer closeProviders()
	deps.Pipeline = coordinator
	deps.Voice = coordinator.Voice()
	if el := tts.NewElevenLabsFromConfig(cfg.TTS); el != nil {
		deps.Voices = el
	}

	// Redis-backed jobs (optional)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	kv := cache.NewCache(rdb)
	if err := kv.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, async jobs disabled", "error", err)
	} else {
		queueClient := queue.NewClient(cfg.Redis)
		defer queueClient.Close()
		deps.Jobs = jobs.NewStore(kv, cfg.Redis.JobTTL)
		deps.Queue = queueClient
		deps.Checks["redis"] = kv
	}

	router := api.NewRouter(cfg, deps)
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if debug {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func migrationsFS(path string) fs.FS {
	if path == "" {
		return migrations.FS
	}
	return os.DirFS(path)
}
