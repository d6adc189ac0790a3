// README: API gateway; wires middleware and handlers onto a gin engine.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfarer/internal/http/handlers"
	"wayfarer/internal/http/middleware"
	"wayfarer/internal/infra"
	"wayfarer/internal/modules/expense"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/service"
	"wayfarer/internal/voice"
)

type ServerDeps struct {
	Logger     *zap.Logger
	Verifier   infra.TokenVerifier
	Relay      handlers.Relayer
	Plans      *plan.Service
	Expenses   *expense.Service
	Planner    *service.TripPlanner
	Quota      handlers.Quota
	Recognizer *voice.Recognizer

	AllowOrigins   []string
	GeneratePerMin int
	GenerateBurst  int
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if len(deps.AllowOrigins) == 0 {
		deps.AllowOrigins = []string{"*"}
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s.deps)
}

// Shim serves only the public relay and health routes; used when no database
// or auth backend is configured.
func (s *Server) Shim() http.Handler {
	r := newEngine(s.deps)
	registerShim(r, handlers.NewShimHandler(s.deps.Relay, s.deps.Logger))
	return r
}

func newEngine(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.RedirectTrailingSlash = false
	r.Use(
		middleware.Recovery(deps.Logger),
		middleware.Logging(deps.Logger),
		corsMiddleware(deps.AllowOrigins),
	)
	r.NoRoute(notFound)
	r.NoMethod(methodNotAllowed)
	return r
}
