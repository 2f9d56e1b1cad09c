package classifier

import (
	"context"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

// Classifier turns posts and submissions into validated classifications.
// Implementations are stateless and safe to retry per item.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, post models.Post) (*models.SentimentResult, error)
	// ClassifyCase leaves Resolved and AnalyzedAt for the case store to set
	ClassifyCase(ctx context.Context, sub models.Submission) (*models.FeedbackAnalysis, error)
	Summarize(ctx context.Context, results []models.SentimentResult, csi float64) (string, error)
	Chat(ctx context.Context, message string) (string, error)
}

var cardPalette = []string{models.DefaultCardTone, "#6A1B9A", "#00897B", "#F9A825", "#1565C0"}

func paletteColor(i int) string {
	return cardPalette[i%len(cardPalette)]
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
