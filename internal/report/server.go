package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"mt5-pnl-reporter/internal/runner"
)

// Server exposes the most recent run result over HTTP. It serves a plain
// text rendering at / and JSON under /api.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	logger    *logrus.Logger
	port      int
	authToken string

	mu     sync.RWMutex
	result *runner.Result
}

// ServerConfig holds the listen port and optional auth token.
type ServerConfig struct {
	Port      int
	AuthToken string
}

// NewServer creates a snapshot server. Call SetResult after each run to
// publish the latest result.
func NewServer(cfg ServerConfig, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}
	s.setupRoutes()
	return s
}

// SetResult publishes the latest run result.
func (s *Server) SetResult(res runner.Result) {
	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
}

func (s *Server) snapshot() *runner.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/", s.handleReport)
	s.router.Get("/api/summary", s.handleSummary)
	s.router.Get("/api/accounts/{login}", s.handleAccount)
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("starting report server on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	res := s.snapshot()
	if res == nil {
		http.Error(w, "no run completed yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	WriteConsole(w, *res, true)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	res := s.snapshot()
	if res == nil {
		http.Error(w, "no run completed yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, NewDocument(*res, true))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	res := s.snapshot()
	if res == nil {
		http.Error(w, "no run completed yet", http.StatusServiceUnavailable)
		return
	}

	login, err := strconv.ParseInt(chi.URLParam(r, "login"), 10, 64)
	if err != nil {
		http.Error(w, "invalid login", http.StatusBadRequest)
		return
	}

	for _, acct := range res.Accounts {
		if acct.Login == login {
			s.writeJSON(w, acct)
			return
		}
	}
	http.Error(w, "account not found", http.StatusNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}
