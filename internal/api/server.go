// Package api provides the HTTP boundary of the points ledger service: it
// authenticates administrative callers, parses arguments, invokes the core
// services, and renders their results. The core performs no authorization or
// transport concerns itself.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/points-ledger/internal/logging"
	"github.com/points-ledger/internal/models"
	"github.com/points-ledger/internal/service"
)

// Service interfaces for dependency injection and testing

// SignInServiceInterface defines the sign-in engine operations
type SignInServiceInterface interface {
	AttemptSignIn(ctx context.Context, input *service.SignInInput) (*service.SignInResult, error)
}

// SummaryServiceInterface defines the read-side summary operations
type SummaryServiceInterface interface {
	GetSummary(ctx context.Context, userID int64) (*service.Summary, error)
	GetStats(ctx context.Context) (*service.Stats, error)
}

// LeaderboardServiceInterface defines the leaderboard operations
type LeaderboardServiceInterface interface {
	ListTop(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// AdjustmentServiceInterface defines the administrative adjustment operations
type AdjustmentServiceInterface interface {
	AddPoints(ctx context.Context, input *service.AddPointsInput) (*models.PointsSummary, error)
	SetPoints(ctx context.Context, userID int64, absolute int64) (*models.PointsSummary, error)
}

// Server represents the HTTP API server.
type Server struct {
	router             *mux.Router
	httpServer         *http.Server
	signInService      SignInServiceInterface
	summaryService     SummaryServiceInterface
	leaderboardService LeaderboardServiceInterface
	adjustmentService  AdjustmentServiceInterface
	config             *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	AdminToken      string
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	signInService SignInServiceInterface,
	summaryService SummaryServiceInterface,
	leaderboardService LeaderboardServiceInterface,
	adjustmentService AdjustmentServiceInterface,
) *Server {
	s := &Server{
		router:             mux.NewRouter(),
		signInService:      signInService,
		summaryService:     summaryService,
		leaderboardService: leaderboardService,
		adjustmentService:  adjustmentService,
		config:             config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Middleware order matters
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Sign-in and summary endpoints
	api.HandleFunc("/users/{id}/sign-in", s.handleSignIn).Methods("POST")
	api.HandleFunc("/users/{id}/points", s.handleGetSummary).Methods("GET")

	// Leaderboard and stats
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	// Administrative adjustments, gated by the admin token
	api.Handle("/users/{id}/points/adjust", s.requireAdmin(http.HandlerFunc(s.handleAddPoints))).Methods("POST")
	api.Handle("/users/{id}/points", s.requireAdmin(http.HandlerFunc(s.handleSetPoints))).Methods("PUT")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "points-ledger",
	})
}

// requireAdmin gates administrative endpoints on the configured token. The
// core services accept only already-authorized identifiers; this is where
// that authorization happens.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminToken == "" || r.Header.Get("X-Admin-Token") != s.config.AdminToken {
			respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Admin token required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}
