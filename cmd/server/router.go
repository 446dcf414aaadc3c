package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/nutritrack-api/internal/api"
	apiMiddleware "github.com/phrazzld/nutritrack-api/internal/api/middleware"
	"github.com/phrazzld/nutritrack-api/internal/platform/telemetry"
	"github.com/rs/cors"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: app.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{apiMiddleware.TraceIDHeader, "Location", "Retry-After"},
		MaxAge:         300,
	}).Handler)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	mealPlanHandler := api.NewMealPlanHandler(app.mealPlanService)
	taskHandler := api.NewTaskHandler(app.taskStatusService)
	healthHandler := api.NewHealthHandler(app.queue)

	r.Get("/health", healthHandler.Live)
	r.Get("/health/queue", healthHandler.Queue)

	r.Route("/api", func(r chi.Router) {
		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/mealplans", mealPlanHandler.CreateMealPlan)
			r.Get("/tasks/{id}", taskHandler.GetTask)
		})
	})

	return telemetry.HTTPMiddleware(serviceName)(r)
}
