package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/metrics"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/resilience"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Source interface defines the contract for all data sources. A source may
// return the posts it fetched before failing together with a non-nil error.
type Source interface {
	GetName() string
	FetchPosts(ctx context.Context, query models.SourceQuery) ([]models.Post, error)
	IsEnabled() bool
}

// GuardedSource bounds a source with a timeout and a circuit breaker and
// reports every failure as models.ErrSourceUnavailable
type GuardedSource struct {
	source  Source
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]
}

var _ Source = (*GuardedSource)(nil)

// WithGuard wraps a source for use by the analysis fan-out
func WithGuard(source Source, timeout time.Duration, breaker resilience.BreakerConfig) *GuardedSource {
	if breaker.Name == "" {
		breaker.Name = "source-" + source.GetName()
	}
	return &GuardedSource{
		source:  source,
		timeout: timeout,
		breaker: resilience.NewBreaker(breaker),
	}
}

func (g *GuardedSource) GetName() string {
	return g.source.GetName()
}

func (g *GuardedSource) IsEnabled() bool {
	return g.source.IsEnabled()
}

func (g *GuardedSource) FetchPosts(ctx context.Context, query models.SourceQuery) ([]models.Post, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	posts, err := resilience.Execute(g.breaker, func() ([]models.Post, error) {
		return g.source.FetchPosts(ctx, query)
	})

	metrics.SourcePosts.WithLabelValues(g.GetName()).Add(float64(len(posts)))
	if err != nil {
		metrics.SourceErrors.WithLabelValues(g.GetName()).Inc()
		logrus.Warnf("Source %s failed after %d posts: %v", g.GetName(), len(posts), err)
		return posts, fmt.Errorf("%w: %s: %w", models.ErrSourceUnavailable, g.GetName(), err)
	}
	return posts, nil
}
