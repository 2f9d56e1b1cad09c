package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/cases"
	"github.com/mhosigiri/FeedbackAI/internal/classifier"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAnalyzer is a mock implementation of Analyzer
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyzeResponse), args.Error(1)
}

func (m *MockAnalyzer) FetchPosts(ctx context.Context, req models.AnalyzeRequest) ([]models.Post, []string, error) {
	args := m.Called(ctx, req)
	posts, _ := args.Get(0).([]models.Post)
	warnings, _ := args.Get(1).([]string)
	return posts, warnings, args.Error(2)
}

func (m *MockAnalyzer) EstimateDuration(limit int) time.Duration {
	return 2*time.Second + time.Duration(limit)*100*time.Millisecond
}

func (m *MockAnalyzer) GetMetrics() string {
	return `{"runs": 0}`
}

// MockDigest is a mock implementation of DigestRunner
type MockDigest struct {
	mock.Mock
}

func (m *MockDigest) RunDigest(ctx context.Context, period string) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

// nopQueue drops tasks; tests drive Process directly
type nopQueue struct{}

func (nopQueue) Enqueue(ctx context.Context, task *workflow.ClassifyTask) error { return nil }
func (nopQueue) IsAsync() bool                                                  { return false }
func (nopQueue) Close() error                                                   { return nil }

type fixture struct {
	handler  http.Handler
	analyzer *MockAnalyzer
	cases    *workflow.Service
	digest   *MockDigest
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{CaseStore: "memory", FrontendOrigin: "http://localhost:5173"}
	}

	heuristic := classifier.NewHeuristicClassifier()
	f := &fixture{
		analyzer: new(MockAnalyzer),
		cases:    workflow.NewService(cases.NewMemoryStore(), heuristic, nil, nopQueue{}, time.Minute),
		digest:   new(MockDigest),
	}
	f.handler = NewServer(cfg, Dependencies{
		Analyzer:  f.analyzer,
		Cases:     f.cases,
		Assistant: heuristic,
		Digest:    f.digest,
	}).Handler()
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestAnalyzeEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(req models.AnalyzeRequest) bool {
		return req.Query == "5G" && req.Limit == 5
	})).Return(&models.AnalyzeResponse{CSIScore: 60, Summary: "ok", IssueCounts: map[models.Category]int{}}, nil)

	rec := f.do("POST", "/analyze", `{"query":"5G","limit":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[models.AnalyzeResponse](t, rec)
	assert.Equal(t, 60.0, resp.CSIScore)
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed body", body: `{"query":`, status: http.StatusBadRequest},
		{name: "missing query", body: `{"limit":5}`, status: http.StatusBadRequest},
		{name: "limit over max", body: `{"query":"5G","limit":500}`, status: http.StatusBadRequest},
		{name: "unknown source", body: `{"query":"5G","sources":["myspace"]}`, status: http.StatusBadRequest},
		{name: "service rejects", body: `{"query":"5G"}`, err: models.ErrInvalidQuery, status: http.StatusBadRequest},
		{name: "no data", body: `{"query":"5G"}`, err: models.ErrNoDataAvailable, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tt.err != nil {
				f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			rec := f.do("POST", "/analyze", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
			if tt.err == nil {
				f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestEstimateEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("GET", "/analyze/estimate?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[estimateResponse](t, rec)
	assert.Equal(t, int64(3000), resp.EstimatedMs)
	assert.False(t, resp.Authoritative)

	rec = f.do("GET", "/analyze/estimate?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.On("FetchPosts", mock.Anything, mock.MatchedBy(func(req models.AnalyzeRequest) bool {
		return req.Query == "outage" &&
			assert.ObjectsAreEqual([]models.Source{models.SourceReddit, models.SourceApp}, req.Sources) &&
			assert.ObjectsAreEqual([]string{"5g", "coverage"}, req.Keywords)
	})).Return([]models.Post{{ID: "reddit_1", Text: "outage", Source: models.SourceReddit}}, []string{"twitter down"}, nil)

	rec := f.do("GET", "/posts?query=outage&sources=Reddit,app&keywords=5g,%20coverage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[postsResponse](t, rec)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, []string{"twitter down"}, resp.Warnings)
}

func TestFeedbackWorkflow(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("POST", "/feedback", `{"text":"App crashes on bill view"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[submitResponse](t, rec)
	assert.Equal(t, models.StateUnclassified, created.Status)
	require.NotEmpty(t, created.FeedbackID)

	rec = f.do("GET", "/feedback/analyses/"+created.FeedbackID, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do("POST", "/feedback/"+created.FeedbackID+"/resolve", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, f.cases.Process(context.Background(), &workflow.ClassifyTask{FeedbackID: created.FeedbackID}))

	rec = f.do("GET", "/feedback/analyses/"+created.FeedbackID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decodeBody[models.FeedbackAnalysis](t, rec)
	assert.Contains(t, models.Categories, analysis.Intake.Classification)
	assert.False(t, analysis.Resolved)

	rec = f.do("GET", "/feedback/analyses/unresolved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.FeedbackAnalysis](t, rec), 1)

	for i := 0; i < 2; i++ {
		rec = f.do("POST", "/feedback/"+created.FeedbackID+"/resolve", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[models.FeedbackAnalysis](t, rec).Resolved)
	}

	rec = f.do("GET", "/feedback/analyses/unresolved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = f.do("GET", "/feedback/analyses?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.FeedbackAnalysis](t, rec), 1)
}

func TestFeedbackErrors(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/feedback", `{"text":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/feedback", `{"text":"   "}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/feedback/analyses/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do("POST", "/feedback/missing/resolve", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/feedback/analyses?limit=-1", "").Code)
}

func TestWriteError_StoreWriteIsRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, models.ErrStoreWrite)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestChatEndpoint_Unavailable(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("POST", "/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do("POST", "/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigEndpoint(t *testing.T) {
	f := newFixture(t, &config.Config{
		CaseStore:          "postgres",
		RedditClientID:     "id",
		RedditClientSecret: "secret",
		GoogleMapsAPIKey:   "maps",
	})

	rec := f.do("GET", "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[configResponse](t, rec)
	assert.True(t, resp.HasRedditCredentials)
	assert.False(t, resp.HasTwitterCredentials)
	assert.False(t, resp.HasLLMCredentials)
	assert.Equal(t, "heuristic", resp.LLMProvider)
	assert.True(t, resp.HasMapsCredentials)
	assert.Equal(t, "postgres", resp.CaseStore)
}

func TestHealthStatsAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[map[string]string](t, rec)["status"])

	rec = f.do("GET", "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs": 0}`, rec.Body.String())

	rec = f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTriggerEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	done := make(chan struct{})
	f.digest.On("RunDigest", mock.Anything, "manual").Return(nil).Run(func(mock.Arguments) { close(done) })

	rec := f.do("POST", "/trigger", "")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("digest was not triggered")
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest("OPTIONS", "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, &config.Config{RateLimitPerMinute: 1})
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&models.AnalyzeResponse{}, nil)

	assert.Equal(t, http.StatusOK, f.do("POST", "/analyze", `{"query":"5G"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do("POST", "/analyze", `{"query":"5G"}`).Code)
	// other routes are not limited
	assert.Equal(t, http.StatusOK, f.do("GET", "/health", "").Code)
}
