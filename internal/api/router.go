package api

import (
	"net/http"

	"github.com/briefly-app/briefly/internal/api/handler"
	customMiddleware "github.com/briefly-app/briefly/internal/api/middleware"
	"github.com/briefly-app/briefly/internal/config"
	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/interview"
	"github.com/briefly-app/briefly/internal/llm"
	"github.com/briefly-app/briefly/internal/llm/anthropic"
	"github.com/briefly-app/briefly/internal/llm/gemini"
	"github.com/briefly-app/briefly/internal/repository/redis"
	"github.com/briefly-app/briefly/internal/security"
	"github.com/briefly-app/briefly/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, uow domain.UnitOfWork, store handler.Pinger, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	client := anthropic.NewClient(cfg.LLM.Anthropic.APIKey)
	models := interview.Models{
		Top:   cfg.LLM.Models.Top,
		Mid:   cfg.LLM.Models.Mid,
		Light: cfg.LLM.Models.Light,
	}

	// Compression goes through Gemini when configured, otherwise the light
	// Anthropic tier.
	var summarizer llm.Summarizer
	if cfg.LLM.Gemini.APIKey != "" {
		log.Info().Str("model", cfg.LLM.Gemini.Model).Msg("using Gemini summarizer")
		summarizer = gemini.NewSummarizer(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model)
	} else {
		summarizer = &llm.ClientSummarizer{Client: client, Model: models.Light}
	}
	compressor := interview.NewCompressor(summarizer, cfg.Interview.CompressEvery, cfg.Interview.KeepRecent)

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)

	// Services
	interviewService := service.NewInterviewService(uow, client, compressor, models, cfg.Interview.TurnBudget, cfg.Interview.HandoffTTL)
	handoffService := service.NewHandoffService(uow)
	projectService := service.NewProjectService(uow)

	// Handlers
	projectHandler := handler.NewProjectHandler(projectService)
	sessionHandler := handler.NewSessionHandler(interviewService)
	turnHandler := handler.NewTurnHandler(interviewService)
	handoffHandler := handler.NewHandoffHandler(handoffService, jwtManager)

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(store))

		// Invite redemption is public: the token is the credential
		r.Post("/handoffs/accept", handoffHandler.Accept)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.Create)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Use(customMiddleware.ProjectContext)

					r.Get("/", projectHandler.Get)

					r.Route("/sessions", func(r chi.Router) {
						r.Get("/", sessionHandler.List)
						r.Post("/", sessionHandler.Create)
					})
				})
			})

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Get("/messages", sessionHandler.Messages)

				r.Group(func(r chi.Router) {
					r.Use(rateLimitMiddleware.Limit)
					r.Post("/turns", turnHandler.Process)
				})
			})
		})
	})

	return r
}
