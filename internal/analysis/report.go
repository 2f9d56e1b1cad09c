package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/aggregation"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/notifications"
	"github.com/sirupsen/logrus"
)

const maxHighlights = 5

// CaseLister reads the unresolved queue for the digest
type CaseLister interface {
	ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error)
}

// Digest builds the periodic report and sends it through the notifier
type Digest struct {
	service  *Service
	cases    CaseLister
	notifier notifications.NotificationInterface
}

// NewDigest creates a digest runner; cases may be nil
func NewDigest(service *Service, cases CaseLister, notifier notifications.NotificationInterface) *Digest {
	return &Digest{
		service:  service,
		cases:    cases,
		notifier: notifier,
	}
}

// BuildReport analyzes the default query and attaches the unresolved
// queue. A run where every source failed still produces a report.
func (d *Digest) BuildReport(ctx context.Context, period string) (*models.Report, error) {
	cfg := d.service.config
	query := cfg.DefaultQuery

	var results []models.SentimentResult
	var warnings []string
	summary := ""

	resp, err := d.service.Analyze(ctx, models.AnalyzeRequest{Query: query, Limit: cfg.DefaultLimit})
	switch {
	case err == nil:
		results = resp.Sentiments
		warnings = resp.Warnings
		summary = resp.Summary
	case errors.Is(err, models.ErrNoDataAvailable):
		logrus.Warnf("Digest has no source data: %v", err)
		warnings = append(warnings, err.Error())
	default:
		return nil, err
	}

	var unresolved []models.FeedbackAnalysis
	if d.cases != nil {
		unresolved, err = d.cases.ListUnresolved(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list unresolved cases: %w", err)
		}
	}

	report := GenerateReport(period, query, results, unresolved, d.service.now())
	if summary != "" {
		report.Summary = summary
	}
	report.Warnings = warnings
	return report, nil
}

// RunDigest builds the report and sends it
func (d *Digest) RunDigest(ctx context.Context, period string) error {
	start := time.Now()
	logrus.Infof("Starting %s digest", period)

	report, err := d.BuildReport(ctx, period)
	if err != nil {
		return err
	}

	if err := d.notifier.SendReport(ctx, report); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	logrus.Infof("Digest completed in %v (CSI %.0f, %d unresolved cases)", time.Since(start), report.CSIScore, len(report.Unresolved))
	return nil
}

// GenerateReport folds classified results and open cases into a report
func GenerateReport(period, query string, results []models.SentimentResult, unresolved []models.FeedbackAnalysis, now time.Time) *models.Report {
	unique := aggregation.Dedupe(results)
	score := aggregation.CSIScore(unique)

	breakdown := make(map[models.Sentiment]int)
	for _, r := range unique {
		breakdown[r.Sentiment]++
	}

	if unresolved == nil {
		unresolved = []models.FeedbackAnalysis{}
	}

	return &models.Report{
		GeneratedAt:        now.UTC(),
		Period:             period,
		Query:              query,
		CSIScore:           score,
		Band:               aggregation.Band(score),
		TotalSignals:       len(unique),
		IssueCounts:        aggregation.IssueCounts(unique),
		SentimentBreakdown: breakdown,
		Summary:            aggregation.FallbackSummary(unique, score),
		Highlights:         highlights(unique),
		Unresolved:         unresolved,
	}
}

// highlights picks the lowest rated, most confident results
func highlights(results []models.SentimentResult) []models.SentimentResult {
	ranked := append([]models.SentimentResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rating != ranked[j].Rating {
			return ranked[i].Rating < ranked[j].Rating
		}
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if len(ranked) > maxHighlights {
		ranked = ranked[:maxHighlights]
	}
	return ranked
}
