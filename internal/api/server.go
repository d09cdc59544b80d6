// Package api exposes the discovery service's read-only status API: health,
// Prometheus metrics, the latest discovered target set, project enumeration,
// and per-project version listings.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/staticdeploy/internal/discovery"
	"github.com/edvin/staticdeploy/internal/registry"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	registry *registry.Registry
	loop     *discovery.Loop
}

func NewServer(logger zerolog.Logger, reg *registry.Registry, loop *discovery.Loop) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		registry: reg,
		loop:     loop,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(Metrics)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Get("/api/v1/targets", s.handleTargets)
	s.router.Get("/api/v1/projects", s.handleProjects)
	s.router.Get("/api/v1/projects/{project}/versions", s.handleVersions)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.loop.Ready() {
		http.Error(w, "no discovery cycle completed yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleTargets(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, discovery.TargetGroups(s.loop.Snapshot()))
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.registry.Projects(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list projects")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Stamp the environment on projects that are currently live.
	live := make(map[string]string)
	for _, d := range s.loop.Snapshot() {
		live[d.Project] = d.Environment
	}
	for i := range projects {
		projects[i].Environment = live[projects[i].Name]
	}
	s.writeJSON(w, projects)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	if project == "" {
		http.Error(w, "missing project", http.StatusBadRequest)
		return
	}

	versions, err := s.registry.List(r.Context(), project)
	if err != nil {
		if errors.Is(err, registry.ErrEntryNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		s.logger.Error().Err(err).Str("project", project).Msg("failed to list versions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, versions)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
