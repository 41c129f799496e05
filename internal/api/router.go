package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/voiceover/internal/api/handlers"
	"github.com/nikhilbhutani/voiceover/internal/api/middleware"
	"github.com/nikhilbhutani/voiceover/internal/auth"
	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/llm"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

const Version = "1.0.0"

// Deps are the services behind the routes. Jobs and Queue must be set
// together to enable /jobs; Audit enables /admin. Voices may be nil.
type Deps struct {
	Pipeline handlers.Processor
	Voice    handlers.Synthesizer
	Voices   handlers.VoiceLister
	Jobs     handlers.JobStore
	Queue    handlers.Enqueuer
	Audit    handlers.AuditReader
	Checks   map[string]handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
	rl   *middleware.RateLimiter
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		rl:   middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
}

// Close stops background work started by the router.
func (rt *Router) Close() {
	rt.rl.Stop()
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	// Health endpoints (no auth, no rate limit)
	health := handlers.NewHealthHandler(Version, map[string]map[string]bool{
		"text":  llm.Configured(rt.cfg.LLM),
		"voice": tts.Configured(rt.cfg.TTS),
	}, rt.deps.Checks)
	r.Get("/", health.Root)
	r.Get("/health", health.Health)
	r.Get("/readyz", health.Readyz)

	var jwt *auth.JWTMiddleware
	if rt.cfg.Auth.JWTSecret != "" {
		jwt = auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret)
	}

	r.Group(func(r chi.Router) {
		r.Use(rt.rl.Limit)
		if jwt != nil {
			r.Use(jwt.Authenticate)
		}

		processH := handlers.NewProcessHandler(rt.deps.Pipeline, rt.cfg.Pipeline.MaxTranscriptChars)
		r.Post("/process", processH.Process)

		voiceH := handlers.NewVoiceHandler(rt.deps.Voice, rt.deps.Voices)
		r.Post("/test-voice", voiceH.TestVoice)
		r.Get("/voices", voiceH.Voices)

		if rt.deps.Jobs != nil && rt.deps.Queue != nil {
			jobsH := handlers.NewJobsHandler(rt.deps.Jobs, rt.deps.Queue, rt.cfg.Pipeline.MaxTranscriptChars)
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", jobsH.Create)
				r.Get("/{id}", jobsH.Get)
			})
		}

		// Admin routes need an admin token; without a secret they stay closed.
		if rt.deps.Audit != nil && jwt != nil {
			adminH := handlers.NewAdminHandler(rt.deps.Audit)
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))
				r.Get("/usage", adminH.Usage)
				r.Get("/runs", adminH.Runs)
			})
		}
	})

	return r
}
