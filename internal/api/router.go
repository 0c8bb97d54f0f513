package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/api/handlers"
	"github.com/subrelay/backend/internal/api/middleware"
	"github.com/subrelay/backend/internal/auth"
	"github.com/subrelay/backend/internal/config"
	"github.com/subrelay/backend/internal/db"
	"github.com/subrelay/backend/internal/db/models"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

// Deps are the long-lived services the router hands to its handlers.
type Deps struct {
	DB      *db.Database
	JWT     *auth.JWTService
	Config  *config.Config
	Service *translate.Service
	Limiter *middleware.RateLimiter // nil disables rate limiting on translate
	Logger  *zap.Logger
}

func NewRouter(d Deps) *chi.Mux {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(cors.Handler(middleware.CORSHandler(d.Config.CORSOrigins, handlers.HeaderEngine, handlers.HeaderFailedGroups)))
	if d.Config.HTTP.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(d.Config.HTTP.MaxBodyBytes))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(d.DB, d.JWT, d.Logger)
	translateHandler := handlers.NewTranslateHandler(d.Service, d.DB, d.Logger)
	settingsHandler := handlers.NewSettingsHandler(d.DB)
	presetsHandler := handlers.NewPresetsHandler(d.DB)
	geminiModelsHandler := handlers.NewGeminiModelsHandler(d.Config.Gemini.APIKey, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.DB, d.Limiter, d.Service)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/health", handlers.Health)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.JWT))

			r.Get("/auth/me", authHandler.Me)

			// Translation
			r.Get("/engines", translateHandler.Engines)
			r.Post("/translate/plan", translateHandler.Plan)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleEditor))
				if d.Limiter != nil {
					r.Use(d.Limiter.Handler)
				}
				r.Post("/translate", translateHandler.Translate)
			})

			// Presets
			r.Get("/presets", presetsHandler.ListPresets)
			r.Get("/presets/{id}", presetsHandler.GetPreset)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleEditor))
				r.Post("/presets", presetsHandler.CreatePreset)
				r.Put("/presets/{id}", presetsHandler.UpdatePreset)
				r.Delete("/presets/{id}", presetsHandler.DeletePreset)
			})

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
				r.Get("/settings/gemini-models", geminiModelsHandler.ListModels)

				r.Get("/admin/users", adminHandler.ListUsers)
				r.Post("/admin/users", adminHandler.CreateUser)
				r.Delete("/admin/users/{id}", adminHandler.DeleteUser)
				r.Get("/admin/stats", adminHandler.Stats)
				r.Get("/admin/ratelimit", adminHandler.RateLimits)
				r.Delete("/admin/ratelimit", adminHandler.ClearRateLimits)
			})
		})
	})

	return r
}
