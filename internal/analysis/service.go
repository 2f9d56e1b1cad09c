// Package analysis answers analyze queries: it fans out to the source
// connectors, classifies every post and folds the results into the CSI
// aggregate. It also builds the periodic digest report.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/aggregation"
	"github.com/mhosigiri/FeedbackAI/internal/classifier"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/metrics"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/resilience"
	"github.com/mhosigiri/FeedbackAI/internal/sources"
	"github.com/mhosigiri/FeedbackAI/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service handles analyze queries across every configured source
type Service struct {
	config     *config.Config
	sources    []sources.Source
	classifier classifier.Classifier
	archive    storage.StorageInterface
	metrics    *Metrics
	mu         sync.RWMutex
	now        func() time.Time
}

// Metrics holds the outcome of recent analyze runs
type Metrics struct {
	Runs               int            `json:"runs"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	LastQuery          string         `json:"last_query"`
	LastCSIScore       float64        `json:"last_csi_score"`
	TotalSignals       int            `json:"total_signals"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ErrorCount         int            `json:"error_count"`
}

// NewService creates a new analysis service. archive may be nil.
func NewService(cfg *config.Config, srcs []sources.Source, cls classifier.Classifier, archive storage.StorageInterface) *Service {
	return &Service{
		config:     cfg,
		sources:    srcs,
		classifier: cls,
		archive:    archive,
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
		now: time.Now,
	}
}

// BuildSources creates the connectors named in SOURCES, in that order, each
// behind a timeout and a circuit breaker
func BuildSources(cfg *config.Config, submissions sources.SubmissionReader) []sources.Source {
	breaker := resilience.BreakerConfig{
		FailureThreshold: uint32(cfg.BreakerThreshold),
		Cooldown:         cfg.BreakerCooldown,
	}

	var out []sources.Source
	for _, name := range cfg.EnabledSources {
		var src sources.Source
		switch models.Source(strings.ToLower(strings.TrimSpace(name))) {
		case models.SourceReddit:
			src = sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, cfg.BrandTerm).
				SetEndpoints(cfg.RedditAuthURL, cfg.RedditBaseURL).
				SetTimeWindow(cfg.RedditTimeWindow)
		case models.SourceTwitter:
			src = sources.NewTwitterSource(cfg.TwitterBearerToken, cfg.BrandTerm).
				SetBaseURL(cfg.TwitterBaseURL)
		case models.SourceApp:
			src = sources.NewFeedbackSource(submissions)
		default:
			logrus.Warnf("Ignoring unknown source %q", name)
			continue
		}

		if !src.IsEnabled() {
			logrus.Infof("Source %s is configured but missing credentials", src.GetName())
		}
		out = append(out, sources.WithGuard(src, cfg.SourceTimeout, breaker))
	}
	return out
}

// Sources returns the configured connectors in order
func (s *Service) Sources() []sources.Source {
	return s.sources
}

type fetchResult struct {
	source  string
	posts   []models.Post
	err     error
	elapsed time.Duration
}

type normalizedRequest struct {
	query    models.SourceQuery
	selected []sources.Source
}

// normalize applies defaults and rejects a request before any network call
func (s *Service) normalize(req models.AnalyzeRequest) (*normalizedRequest, error) {
	limit := req.Limit
	if limit == 0 {
		limit = s.config.DefaultLimit
	}
	if limit < 1 || limit > s.config.MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", models.ErrInvalidQuery, s.config.MaxLimit)
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = s.config.DefaultQuery
	}

	wanted := make(map[models.Source]bool, len(req.Sources))
	for _, src := range req.Sources {
		switch src {
		case models.SourceReddit, models.SourceTwitter, models.SourceApp:
			wanted[src] = true
		default:
			return nil, fmt.Errorf("%w: unknown source %q", models.ErrInvalidQuery, src)
		}
	}

	var selected []sources.Source
	for _, src := range s.sources {
		if len(wanted) > 0 && !wanted[models.Source(src.GetName())] {
			continue
		}
		if src.IsEnabled() {
			selected = append(selected, src)
		}
	}

	return &normalizedRequest{
		query: models.SourceQuery{
			Query:        query,
			Limit:        limit,
			Subreddits:   trimAll(req.Subreddits),
			Keywords:     trimAll(req.Keywords),
			LocationHint: strings.TrimSpace(req.LocationHint),
		},
		selected: selected,
	}, nil
}

// Analyze runs one query end to end. The caller's cancellation does not
// abort in-flight work, but the whole call is bounded by ANALYZE_TIMEOUT.
func (s *Service) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	start := time.Now()

	norm, err := s.normalize(req)
	if err != nil {
		metrics.AnalyzeRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.AnalyzeTimeout)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"query": norm.query.Query,
		"limit": norm.query.Limit,
	})
	logger.Infof("Starting analysis across %d sources", len(norm.selected))

	fetched := s.fetchAll(ctx, norm)
	posts, warnings, err := collect(fetched)
	if err != nil {
		s.recordFailure()
		metrics.AnalyzeRequests.WithLabelValues("no_data").Inc()
		return nil, err
	}

	llmStart := time.Now()
	results, failed := s.classifyAll(ctx, posts)
	if failed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d posts could not be classified", failed, len(posts)))
	}
	classifyElapsed := time.Since(llmStart)
	metrics.StageDuration.WithLabelValues("classify").Observe(classifyElapsed.Seconds())

	resp := aggregation.Aggregate(results)

	summaryStart := time.Now()
	if len(resp.Sentiments) > 0 {
		summary, err := s.classifier.Summarize(ctx, resp.Sentiments, resp.CSIScore)
		if err != nil {
			logger.Debugf("Using fallback summary: %v", err)
		} else if summary = strings.TrimSpace(summary); summary != "" {
			resp.Summary = summary
		}
	}
	metrics.StageDuration.WithLabelValues("summarize").Observe(time.Since(summaryStart).Seconds())

	if len(warnings) > 0 {
		resp.Warnings = warnings
		resp.Summary = strings.TrimSpace(resp.Summary + " Partial results: " + strings.Join(warnings, "; ") + ".")
	}

	resp.Timings = timings(fetched, time.Since(llmStart), time.Since(start))
	metrics.CSIScore.Set(resp.CSIScore)
	metrics.AnalyzeRequests.WithLabelValues("ok").Inc()
	s.updateMetrics(norm.query.Query, fetched, resp, time.Since(start), len(warnings))

	if s.config.ArchiveAnalyses && s.archive != nil {
		go s.archiveResponse(norm.query.Query, resp)
	}

	logger.Infof("Analysis completed in %v: %d signals, CSI %.0f", time.Since(start), len(resp.Sentiments), resp.CSIScore)
	return resp, nil
}

// FetchPosts runs only the connector fan-out, for inspecting raw posts
func (s *Service) FetchPosts(ctx context.Context, req models.AnalyzeRequest) ([]models.Post, []string, error) {
	norm, err := s.normalize(req)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.AnalyzeTimeout)
	defer cancel()

	return collect(s.fetchAll(ctx, norm))
}

// fetchAll queries every selected source concurrently; results keep the
// configured source order
func (s *Service) fetchAll(ctx context.Context, norm *normalizedRequest) []fetchResult {
	start := time.Now()
	results := make([]fetchResult, len(norm.selected))

	var wg sync.WaitGroup
	for i, source := range norm.selected {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()

			begin := time.Now()
			posts, err := src.FetchPosts(ctx, norm.query)
			results[i] = fetchResult{
				source:  src.GetName(),
				posts:   posts,
				err:     err,
				elapsed: time.Since(begin),
			}

			if err != nil {
				logrus.Warnf("Error fetching from %s: %v", src.GetName(), err)
				return
			}
			logrus.Infof("Found %d posts from %s", len(posts), src.GetName())
		}(i, source)
	}
	wg.Wait()

	metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	return results
}

// collect merges fetched posts and fails only when no source produced
// anything usable
func collect(fetched []fetchResult) ([]models.Post, []string, error) {
	if len(fetched) == 0 {
		return nil, nil, fmt.Errorf("%w: no enabled source matches the request", models.ErrNoDataAvailable)
	}

	var posts []models.Post
	var warnings []string
	failures := 0
	for _, r := range fetched {
		posts = append(posts, r.posts...)
		if r.err != nil {
			failures++
			warnings = append(warnings, r.err.Error())
		}
	}

	if failures == len(fetched) && len(posts) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", models.ErrNoDataAvailable, strings.Join(warnings, "; "))
	}

	return aggregation.DedupePosts(posts), warnings, nil
}

// classifyAll classifies with bounded parallelism; failed posts are dropped
func (s *Service) classifyAll(ctx context.Context, posts []models.Post) ([]models.SentimentResult, int) {
	slots := make([]*models.SentimentResult, len(posts))

	var g errgroup.Group
	g.SetLimit(max(s.config.ClassifierConcurrency, 1))
	for i := range posts {
		g.Go(func() error {
			result, err := s.classifier.Classify(ctx, posts[i])
			if err != nil {
				logrus.Warnf("Failed to classify %s: %v", posts[i].ID, err)
				return nil
			}
			slots[i] = result
			return nil
		})
	}
	_ = g.Wait()

	results := make([]models.SentimentResult, 0, len(posts))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, len(posts) - len(results)
}

func timings(fetched []fetchResult, llm, total time.Duration) models.Timings {
	var t models.Timings
	for _, r := range fetched {
		ms := r.elapsed.Milliseconds()
		if r.source == string(models.SourceApp) {
			t.FeedbackMs = max(t.FeedbackMs, ms)
			continue
		}
		t.RedditMs = max(t.RedditMs, ms)
	}
	t.LLMMs = llm.Milliseconds()
	t.TotalMs = total.Milliseconds()
	return t
}

func (s *Service) updateMetrics(query string, fetched []fetchResult, resp *models.AnalyzeResponse, duration time.Duration, warnings int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Runs++
	s.metrics.LastRun = s.now().UTC()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.LastQuery = query
	s.metrics.LastCSIScore = resp.CSIScore
	s.metrics.TotalSignals = len(resp.Sentiments)
	s.metrics.ErrorCount += warnings

	// Reset counters
	s.metrics.SourceMetrics = make(map[string]int)
	s.metrics.SentimentBreakdown = make(map[string]int)

	for _, r := range fetched {
		s.metrics.SourceMetrics[r.source] += len(r.posts)
	}
	for _, result := range resp.Sentiments {
		s.metrics.SentimentBreakdown[string(result.Sentiment)]++
	}
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Runs++
	s.metrics.LastRun = s.now().UTC()
	s.metrics.ErrorCount++
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func (s *Service) archiveResponse(query string, resp *models.AnalyzeResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := json.Marshal(struct {
		Query string `json:"query"`
		*models.AnalyzeResponse
	}{query, resp})
	if err != nil {
		logrus.Errorf("Failed to marshal analysis: %v", err)
		return
	}

	name := fmt.Sprintf("archive/analysis-%s.json", s.now().UTC().Format("2006-01-02-15-04-05.000"))
	if err := s.archive.Store(ctx, name, data); err != nil {
		logrus.Errorf("Failed to archive analysis: %v", err)
		return
	}
	logrus.Debugf("Archived analysis to %s", name)
}

// EstimateDuration is a caller-side progress estimate: 2s plus 100ms per
// post, capped at 12s. It is not derived from real timings.
func (s *Service) EstimateDuration(limit int) time.Duration {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	estimate := 2*time.Second + time.Duration(limit)*100*time.Millisecond
	return min(estimate, 12*time.Second)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
