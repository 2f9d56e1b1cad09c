package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/llm"
	"github.com/mhosigiri/FeedbackAI/internal/metrics"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/resilience"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Options tunes the language model classifier
type Options struct {
	Brand             string
	RequestsPerSecond float64
	Burst             int
	BreakerThreshold  uint32
	BreakerCooldown   time.Duration
}

// LLMClassifier classifies through a language model provider
type LLMClassifier struct {
	provider llm.Provider
	brand    string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[any]
}

var _ Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier creates a classifier that shares one rate limit and one
// circuit breaker across every call to the provider
func NewLLMClassifier(provider llm.Provider, opts Options) *LLMClassifier {
	if opts.Brand == "" {
		opts.Brand = "T-Mobile"
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &LLMClassifier{
		provider: provider,
		brand:    opts.Brand,
		limiter:  rate.NewLimiter(limit, opts.Burst),
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:             "llm",
			FailureThreshold: opts.BreakerThreshold,
			Cooldown:         opts.BreakerCooldown,
		}),
	}
}

func (c *LLMClassifier) Name() string {
	return c.provider.Name()
}

func (c *LLMClassifier) complete(ctx context.Context, req llm.Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrClassification, err)
	}

	content, err := resilience.Execute(c.breaker, func() (string, error) {
		return c.provider.Complete(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrClassification, c.provider.Name(), err)
	}
	return content, nil
}

// Classify labels one post. Malformed fields are coerced, never rejected.
func (c *LLMClassifier) Classify(ctx context.Context, post models.Post) (*models.SentimentResult, error) {
	content, err := c.complete(ctx, llm.Request{
		System: jsonOnlySystem,
		Prompt: postPrompt(c.brand, post),
		JSON:   true,
	})
	if err != nil {
		metrics.Classifications.WithLabelValues("post", "error").Inc()
		return nil, err
	}

	var raw rawSentiment
	if err := decodeObject(content, &raw); err != nil {
		metrics.Classifications.WithLabelValues("post", "invalid").Inc()
		return nil, fmt.Errorf("%w: post %s: %w", models.ErrClassification, post.ID, err)
	}

	result := raw.toResult(post)
	metrics.Classifications.WithLabelValues("post", "ok").Inc()
	logrus.Debugf("Classified %s as %s (%s)", post.ID, result.Sentiment, result.Category)
	return &result, nil
}

// ClassifyCase builds the four workflow stages for a direct submission
func (c *LLMClassifier) ClassifyCase(ctx context.Context, sub models.Submission) (*models.FeedbackAnalysis, error) {
	content, err := c.complete(ctx, llm.Request{
		System: jsonOnlySystem,
		Prompt: casePrompt(c.brand, sub),
		JSON:   true,
	})
	if err != nil {
		metrics.Classifications.WithLabelValues("case", "error").Inc()
		return nil, err
	}

	var raw rawCase
	if err := decodeObject(content, &raw); err != nil {
		metrics.Classifications.WithLabelValues("case", "invalid").Inc()
		return nil, fmt.Errorf("%w: case %s: %w", models.ErrClassification, sub.FeedbackID, err)
	}

	analysis := raw.toAnalysis(sub)
	metrics.Classifications.WithLabelValues("case", "ok").Inc()
	logrus.Debugf("Classified case %s as %s, priority %s", sub.FeedbackID, analysis.Intake.Classification, analysis.Routing.Priority)
	return &analysis, nil
}

// Summarize writes a short narrative for a result set
func (c *LLMClassifier) Summarize(ctx context.Context, results []models.SentimentResult, csi float64) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("%w: nothing to summarize", models.ErrClassification)
	}

	content, err := c.complete(ctx, llm.Request{
		System: jsonOnlySystem,
		Prompt: summaryPrompt(c.brand, results, csi),
		JSON:   true,
	})
	if err != nil {
		metrics.Classifications.WithLabelValues("summary", "error").Inc()
		return "", err
	}

	var raw struct {
		Summary flexString `json:"summary"`
	}
	if err := decodeObject(content, &raw); err != nil || raw.Summary == "" {
		// a plain-text answer is still a usable summary
		text := strings.TrimSpace(content)
		if text == "" || strings.HasPrefix(text, "{") {
			metrics.Classifications.WithLabelValues("summary", "invalid").Inc()
			return "", fmt.Errorf("%w: empty summary", models.ErrClassification)
		}
		raw.Summary = flexString(text)
	}

	metrics.Classifications.WithLabelValues("summary", "ok").Inc()
	return string(raw.Summary), nil
}

// Chat answers one assistant message
func (c *LLMClassifier) Chat(ctx context.Context, message string) (string, error) {
	content, err := c.complete(ctx, llm.Request{
		System: chatSystem(c.brand),
		Prompt: message,
	})
	if err != nil {
		metrics.Classifications.WithLabelValues("chat", "error").Inc()
		return "", fmt.Errorf("%w: %w", models.ErrChatUnavailable, err)
	}

	reply := strings.TrimSpace(content)
	if reply == "" {
		metrics.Classifications.WithLabelValues("chat", "invalid").Inc()
		return "", fmt.Errorf("%w: empty reply", models.ErrChatUnavailable)
	}
	metrics.Classifications.WithLabelValues("chat", "ok").Inc()
	return reply, nil
}
