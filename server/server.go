package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/racanlabs/go-auth-service/auth"
	"github.com/racanlabs/go-auth-service/internal/config"
	"github.com/rs/zerolog/log"
)

// Server exposes the selected auth backend as a JSON API. The backend is
// fixed at construction; handlers never choose between implementations.
type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  *config.Config
	backend auth.Backend
}

func New(cfg *config.Config, backend auth.Backend) (*Server, error) {
	s := &Server{
		env:     cfg.Env,
		mux:     http.NewServeMux(),
		config:  cfg,
		backend: backend,
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	s.RegisterRouteFunc("POST /api/auth/signup", ChainMiddleware(s.SignUpHandler(), api...))
	s.RegisterRouteFunc("POST /api/auth/signin", ChainMiddleware(s.SignInHandler(), api...))
	s.RegisterRouteFunc("POST /api/auth/signout", ChainMiddleware(s.SignOutHandler(), api...))
	s.RegisterRouteFunc("GET /api/auth/user", ChainMiddleware(s.CurrentUserHandler(), api...))
	s.RegisterRouteFunc("PATCH /api/auth/user", ChainMiddleware(s.UpdateProfileHandler(), api...))
	s.RegisterRouteFunc("POST /api/auth/reset", ChainMiddleware(s.PasswordResetRequestHandler(), api...))
	s.RegisterRouteFunc("POST /api/auth/reset/complete", ChainMiddleware(s.PasswordResetCompleteHandler(), api...))
	s.RegisterRouteFunc("POST /api/auth/resend", ChainMiddleware(s.ResendVerificationHandler(), api...))
	s.RegisterRouteFunc("GET /api/auth/oauth/{provider}", ChainMiddleware(s.OAuthRedirectHandler(), api...))
	s.RegisterRouteFunc("GET /api/auth/callback", ChainMiddleware(s.OAuthCallbackHandler(), api...))

	// Preflight requests carry no method-specific route of their own.
	s.RegisterRouteFunc("OPTIONS /api/", s.CorsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	s.RegisterRouteFunc("GET /healthz", s.HealthHandler())
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.routes = append(s.routes, "GET /metrics")
}

func (s *Server) logRoutes() {
	if s.env != "local" {
		return
	}
	for _, route := range s.routes {
		log.Info().Str("route", route).Msg("registered")
	}
}
