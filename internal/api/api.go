// Package api exposes the group store over a JSON HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/sokha/lunchpool/internal/auth"
	"github.com/sokha/lunchpool/internal/service"
)

// Server wires the services to HTTP handlers.
type Server struct {
	groups     *service.GroupService
	authSvc    *service.AuthService
	jwtManager *auth.JWTManager
}

// NewServer creates the HTTP surface over the given services.
func NewServer(groups *service.GroupService, authSvc *service.AuthService, jwtManager *auth.JWTManager) *Server {
	return &Server{
		groups:     groups,
		authSvc:    authSvc,
		jwtManager: jwtManager,
	}
}

// Routes builds the router: open reference/read endpoints, authenticated
// group mutations, and the Prometheus metrics endpoint.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.healthCheckHandler)

		r.Post("/auth/register", s.registerHandler)
		r.Post("/auth/login", s.loginHandler)

		r.Get("/restaurants", s.listRestaurantsHandler)
		r.Get("/groups", s.listGroupsHandler)
		r.Get("/groups/{groupID}", s.getGroupHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.jwtManager))

			r.Post("/groups", s.createGroupHandler)
			r.Post("/groups/{groupID}/view", s.groupViewHandler)
			r.Post("/groups/{groupID}/join", s.joinGroupHandler)
			r.Post("/groups/{groupID}/leave", s.leaveGroupHandler)
			r.Post("/groups/{groupID}/dishes", s.addDishHandler)
			r.Post("/groups/{groupID}/submit", s.submitHandler)
			r.Delete("/groups/{groupID}", s.deleteGroupHandler)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}
