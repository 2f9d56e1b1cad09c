// Package cases persists direct feedback submissions and the workflow cases
// classified from them. A case moves Unclassified -> Open -> Resolved; the
// classification payload is written once and never changes afterwards.
package cases

import (
	"context"
	"sort"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

// Store is the case store contract shared by every backend
type Store interface {
	// CreateSubmission persists a raw submission in the Unclassified state
	CreateSubmission(ctx context.Context, sub models.Submission) error
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	// PendingSubmissions lists submissions still unclassified that were
	// submitted at least olderThan ago, oldest first
	PendingSubmissions(ctx context.Context, olderThan time.Duration) ([]models.Submission, error)
	// RecentSubmissions lists submissions newest first; limit <= 0 means all
	RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error)

	// SaveAnalysis is the single intake write. A second write for the same
	// case fails with models.ErrAlreadyClassified.
	SaveAnalysis(ctx context.Context, analysis models.FeedbackAnalysis) (*models.FeedbackAnalysis, error)
	GetAnalysis(ctx context.Context, id string) (*models.FeedbackAnalysis, error)
	// Resolve marks a case resolved. changed is false when it already was.
	Resolve(ctx context.Context, id string) (analysis *models.FeedbackAnalysis, changed bool, err error)
	// ListAnalyses lists classified cases, most recently analyzed first
	ListAnalyses(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error)
	// ListUnresolved lists Open cases, most recently analyzed first
	ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error)

	Close() error
}

type analysisRecord struct {
	analysis models.FeedbackAnalysis
	seq      uint64
}

type submissionRecord struct {
	submission models.Submission
	seq        uint64
}

// sortAnalyses orders newest first; seq breaks ties within the same second
func sortAnalyses(records []analysisRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].analysis.AnalyzedAt != records[j].analysis.AnalyzedAt {
			return records[i].analysis.AnalyzedAt > records[j].analysis.AnalyzedAt
		}
		return records[i].seq > records[j].seq
	})
}

func sortSubmissions(records []submissionRecord, newestFirst bool) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.submission.SubmittedAt.Equal(b.submission.SubmittedAt) {
			if newestFirst {
				return a.submission.SubmittedAt.After(b.submission.SubmittedAt)
			}
			return a.submission.SubmittedAt.Before(b.submission.SubmittedAt)
		}
		if newestFirst {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
}

// cloneAnalysis copies every slice and pointer so callers cannot mutate
// stored payloads
func cloneAnalysis(a models.FeedbackAnalysis) models.FeedbackAnalysis {
	out := a
	out.Intake.Tags = append([]string(nil), a.Intake.Tags...)
	if a.Sentiment.Score != nil {
		score := *a.Sentiment.Score
		out.Sentiment.Score = &score
	}
	out.Routing.Actions = append([]models.RoutingAction{}, a.Routing.Actions...)
	out.Insights.Flowchart = append([]models.FlowchartStep{}, a.Insights.Flowchart...)
	out.Insights.Cards = append([]models.InsightCard{}, a.Insights.Cards...)
	return out
}

// prepareAnalysis fills the fields owned by the store before the intake write
func prepareAnalysis(analysis models.FeedbackAnalysis, sub models.Submission, now time.Time) models.FeedbackAnalysis {
	out := cloneAnalysis(analysis)
	out.FeedbackID = sub.FeedbackID
	if out.Name == "" {
		out.Name = sub.Name
	}
	if out.Name == "" {
		out.Name = models.DefaultName
	}
	if out.Problem == "" {
		out.Problem = sub.Problem
	}
	out.Resolved = false
	if out.AnalyzedAt == 0 {
		out.AnalyzedAt = now.Unix()
	}
	return out
}
