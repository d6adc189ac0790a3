// README: HTTP router registration.
package http

import (
	"github.com/gin-gonic/gin"

	"wayfarer/internal/http/handlers"
	"wayfarer/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := newEngine(deps)

	registerShim(r, handlers.NewShimHandler(deps.Relay, deps.Logger))

	planHandler := handlers.NewPlanHandler(deps.Plans, deps.Expenses, deps.Planner, deps.Quota)
	expenseHandler := handlers.NewExpenseHandler(deps.Expenses)
	aiHandler := handlers.NewAIHandler(deps.Planner, deps.Quota)
	locationHandler := handlers.NewLocationHandler(deps.Planner)
	voiceHandler := handlers.NewVoiceHandler(deps.Recognizer, deps.AllowOrigins, deps.Logger)
	generationLimit := middleware.RateLimit(deps.GeneratePerMin, deps.GenerateBurst, deps.Logger)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier))
	{
		api.POST("/plans/generate", generationLimit, planHandler.Generate)
		api.POST("/plans", planHandler.Create)
		api.GET("/plans", planHandler.List)
		api.GET("/plans/:id", planHandler.Get)
		api.PATCH("/plans/:id", planHandler.Update)
		api.PUT("/plans/:id/itinerary", planHandler.ReplaceItinerary)
		api.POST("/plans/:id/optimize", generationLimit, planHandler.Optimize)
		api.POST("/plans/:id/status", planHandler.Transition)
		api.DELETE("/plans/:id", planHandler.Delete)
		api.GET("/plans/:id/budget", planHandler.Budget)
		api.GET("/plans/:id/days/:day/route", planHandler.DayRoute)

		api.POST("/plans/:id/expenses", expenseHandler.Add)
		api.GET("/plans/:id/expenses", expenseHandler.List)
		api.GET("/plans/:id/expenses/summary", expenseHandler.Summary)
		api.PATCH("/expenses/:id", expenseHandler.Update)
		api.DELETE("/expenses/:id", expenseHandler.Delete)

		api.GET("/tips", generationLimit, aiHandler.Tips)
		api.GET("/quota", aiHandler.Quota)
		api.GET("/places/search", locationHandler.SearchPlaces)

		api.POST("/voice/parse", voiceHandler.Parse)
		api.GET("/voice/stream", voiceHandler.Stream)
	}
	return r
}

func registerShim(r *gin.Engine, shim *handlers.ShimHandler) {
	for _, path := range []string{"/generate-itinerary", "/generate-itinerary/"} {
		r.Any(path, shim.GenerateItinerary)
	}
	for _, path := range []string{"/health", "/health/"} {
		r.Any(path, shim.Health)
	}
}
