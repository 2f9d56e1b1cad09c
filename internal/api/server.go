// Package api exposes the feedback pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Analyzer answers analyze queries
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	FetchPosts(ctx context.Context, req models.AnalyzeRequest) ([]models.Post, []string, error)
	EstimateDuration(limit int) time.Duration
	GetMetrics() string
}

// CaseService is the workflow side of the API
type CaseService interface {
	Submit(ctx context.Context, req models.FeedbackRequest) (*models.Submission, error)
	GetAnalysis(ctx context.Context, id string) (*models.FeedbackAnalysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error)
	ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error)
	Resolve(ctx context.Context, id string) (*models.FeedbackAnalysis, error)
}

// Assistant answers single-turn chat messages
type Assistant interface {
	Chat(ctx context.Context, message string) (string, error)
}

// DigestRunner sends the CSI digest on demand
type DigestRunner interface {
	RunDigest(ctx context.Context, period string) error
}

// Dependencies are the services behind the handlers; Digest may be nil
type Dependencies struct {
	Analyzer   Analyzer
	Cases      CaseService
	Assistant  Assistant
	Digest     DigestRunner
	AsyncQueue bool
}

// Server holds the HTTP handlers
type Server struct {
	config   *config.Config
	deps     Dependencies
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	return &Server{
		config:   cfg,
		deps:     deps,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Handler returns the router wrapped in CORS and request logging
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	limited := s.rateLimit()

	router.Handle("/analyze", limited(http.HandlerFunc(s.analyzeHandler))).Methods("POST")
	router.HandleFunc("/analyze/estimate", s.estimateHandler).Methods("GET")
	router.HandleFunc("/posts", s.postsHandler).Methods("GET")

	router.HandleFunc("/feedback", s.submitHandler).Methods("POST")
	router.HandleFunc("/feedback/analyses", s.listAnalysesHandler).Methods("GET")
	router.HandleFunc("/feedback/analyses/unresolved", s.listUnresolvedHandler).Methods("GET")
	router.HandleFunc("/feedback/analyses/{id}", s.getAnalysisHandler).Methods("GET")
	router.HandleFunc("/feedback/{id}/resolve", s.resolveHandler).Methods("POST")

	router.Handle("/chat", limited(http.HandlerFunc(s.chatHandler))).Methods("POST")

	router.HandleFunc("/config", s.configHandler).Methods("GET")
	router.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	router.HandleFunc("/stats", s.statsHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/trigger", s.triggerHandler).Methods("POST")

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	})

	return corsHandler(logRequests(router))
}

// rateLimit limits each client IP per minute; zero disables it
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.config.RateLimitPerMinute <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(s.config.RateLimitPerMinute, time.Minute)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	})
}
