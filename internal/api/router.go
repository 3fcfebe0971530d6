package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pattty847/TranscriptAI/internal/api/handlers"
	"github.com/pattty847/TranscriptAI/internal/api/middleware"
	"github.com/pattty847/TranscriptAI/internal/auth"
	"github.com/pattty847/TranscriptAI/internal/batch"
	"github.com/pattty847/TranscriptAI/internal/config"
	"github.com/pattty847/TranscriptAI/internal/store"
)

func NewRouter(st *store.Store, jwtService *auth.JWTService, cfg *config.Config, paths config.Paths, manager *batch.Manager, newAnalyzer func() handlers.AnalysisService) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))
	r.Use(middleware.MaxBodySize(1 << 20))

	// Handlers
	authHandler := handlers.NewAuthHandler(st, jwtService)
	batchHandler := handlers.NewBatchHandler(manager, st)
	transcriptHandler := handlers.NewTranscriptHandler(paths.Transcripts)
	analyzeHandler := handlers.NewAnalyzeHandler(newAnalyzer, paths.Transcripts, paths.Analysis)
	settingsHandler := handlers.NewSettingsHandler(st)
	healthHandler := handlers.NewHealthHandler(cfg.YtDlpBin, cfg.WhisperDevice)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// Auth (public, rate limited)
		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Batches
			r.Post("/batches", batchHandler.SubmitBatch)
			r.Get("/batches", batchHandler.ListBatches)
			r.Get("/batches/{id}", batchHandler.GetBatch)
			r.Delete("/batches/{id}", batchHandler.StopBatch)

			// Transcripts
			r.Get("/transcripts", transcriptHandler.ListTranscripts)
			r.Get("/transcripts/search", transcriptHandler.SearchTranscripts)
			r.Get("/transcripts/{name}", transcriptHandler.GetTranscript)
			r.Delete("/transcripts/{name}", transcriptHandler.DeleteTranscript)

			// Analysis
			r.Post("/analyze", analyzeHandler.Analyze)
			r.Get("/analyze/ping", analyzeHandler.PingAnalyzer)
			r.Get("/analyses", analyzeHandler.ListAnalyses)

			// Settings (admin only for writes)
			r.Get("/settings", settingsHandler.GetSettings)
			r.With(middleware.RequireRole("admin")).Put("/settings", settingsHandler.UpdateSettings)
		})
	})

	return r
}
