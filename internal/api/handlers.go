package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type submitResponse struct {
	FeedbackID string           `json:"feedback_id"`
	Status     models.CaseState `json:"status"`
}

type estimateResponse struct {
	EstimatedMs   int64 `json:"estimated_ms"`
	Authoritative bool  `json:"authoritative"`
}

type postsResponse struct {
	Posts    []models.Post `json:"posts"`
	Warnings []string      `json:"warnings,omitempty"`
}

type configResponse struct {
	HasRedditCredentials  bool   `json:"has_reddit_credentials"`
	HasTwitterCredentials bool   `json:"has_twitter_credentials"`
	HasLLMCredentials     bool   `json:"has_llm_credentials"`
	LLMProvider           string `json:"llm_provider"`
	HasMapsCredentials    bool   `json:"has_maps_credentials"`
	CaseStore             string `json:"case_store"`
	AsyncQueue            bool   `json:"async_queue"`
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err))
		return
	}

	resp, err := s.deps.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) estimateHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err))
		return
	}

	writeJSON(w, http.StatusOK, estimateResponse{
		EstimatedMs:   s.deps.Analyzer.EstimateDuration(limit).Milliseconds(),
		Authoritative: false,
	})
}

func (s *Server) postsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err))
		return
	}

	q := r.URL.Query()
	req := models.AnalyzeRequest{
		Query:        q.Get("query"),
		Limit:        limit,
		Subreddits:   splitList(q.Get("subreddits")),
		Keywords:     splitList(q.Get("keywords")),
		LocationHint: q.Get("location"),
	}
	for _, src := range splitList(q.Get("sources")) {
		req.Sources = append(req.Sources, models.Source(strings.ToLower(src)))
	}

	posts, warnings, err := s.deps.Analyzer.FetchPosts(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, postsResponse{Posts: posts, Warnings: warnings})
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidSubmission, err))
		return
	}

	sub, err := s.deps.Cases.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{FeedbackID: sub.FeedbackID, Status: models.StateUnclassified})
}

func (s *Server) listAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	s.listCases(w, r, s.deps.Cases.ListAnalyses)
}

func (s *Server) listUnresolvedHandler(w http.ResponseWriter, r *http.Request) {
	s.listCases(w, r, s.deps.Cases.ListUnresolved)
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request, list func(context.Context, int) ([]models.FeedbackAnalysis, error)) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err))
		return
	}

	analyses, err := list(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if analyses == nil {
		analyses = []models.FeedbackAnalysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) getAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	analysis, err := s.deps.Cases.GetAnalysis(r.Context(), id)
	if errors.Is(err, models.ErrCaseNotClassified) {
		writeJSON(w, http.StatusAccepted, submitResponse{FeedbackID: id, Status: models.StateUnclassified})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.deps.Cases.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err))
		return
	}

	reply, err := s.deps.Assistant.Chat(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		HasRedditCredentials:  s.config.HasRedditCredentials(),
		HasTwitterCredentials: s.config.HasTwitterCredentials(),
		HasLLMCredentials:     s.config.HasLLMCredentials(),
		LLMProvider:           s.config.ResolvedLLMProvider(),
		HasMapsCredentials:    s.config.GoogleMapsAPIKey != "",
		CaseStore:             s.config.CaseStore,
		AsyncQueue:            s.deps.AsyncQueue,
	})
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.deps.Analyzer.GetMetrics()))
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Digest == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "digest is not configured"})
		return
	}

	go func() {
		if err := s.deps.Digest.RunDigest(context.Background(), "manual"); err != nil {
			logrus.Errorf("Manual digest trigger failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Digest triggered successfully"})
}

// decode reads a JSON body and runs struct validation
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return s.validate.Struct(v)
}

// writeError maps pipeline errors onto status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidQuery), errors.Is(err, models.ErrInvalidSubmission):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrCaseNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrCaseNotClassified), errors.Is(err, models.ErrAlreadyClassified):
		status = http.StatusConflict
	case errors.Is(err, models.ErrStoreWrite):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "5")
	case errors.Is(err, models.ErrNoDataAvailable), errors.Is(err, models.ErrChatUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logrus.Errorf("Request failed: %v", err)
	} else {
		logrus.Debugf("Request rejected with %d: %v", status, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// queryInt parses an optional non-negative integer parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
