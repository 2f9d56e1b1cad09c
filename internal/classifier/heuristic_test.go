package classifier

import (
	"context"
	"testing"

	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicClassify(t *testing.T) {
	tests := []struct {
		text      string
		sentiment models.Sentiment
		rating    int
		category  models.Category
	}{
		{"Loving the upgraded 5G speeds downtown!", models.SentimentPositive, 4, models.CategoryNetworkCoverage},
		{"Coverage dropped again during my commute.", models.SentimentNegative, 2, models.CategoryNetworkCoverage},
		{"Billing got weird this month, anyone else?", models.SentimentNeutral, 3, models.CategoryBilling},
		{"App login failing on iOS 17, terrible", models.SentimentNegative, 1, models.CategoryMobileApp},
		{"Nothing to report", models.SentimentNeutral, 3, models.CategoryOther},
	}

	h := NewHeuristicClassifier()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			post := models.Post{ID: "p", Text: tt.text}
			result, err := h.Classify(context.Background(), post)
			require.NoError(t, err)
			assert.Equal(t, tt.category, result.Category)
			assert.Equal(t, tt.rating, result.Rating)
			assert.Equal(t, tt.sentiment, result.Sentiment)
			assert.LessOrEqual(t, result.Confidence, 0.95)
			assert.GreaterOrEqual(t, result.Confidence, 0.5)
		})
	}
}

func TestHeuristicClassify_InsightText(t *testing.T) {
	h := NewHeuristicClassifier()

	negative, err := h.Classify(context.Background(), models.Post{ID: "n", Text: "Terrible outage, signal is bad"})
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, negative.Sentiment)
	assert.Equal(t, 1, negative.Rating)
	assert.Equal(t, []string{"Negative feedback on network coverage"}, negative.Issues)
	assert.Empty(t, negative.Delights)
	assert.InDelta(t, 0.8, negative.Confidence, 1e-9)

	positive, err := h.Classify(context.Background(), models.Post{ID: "p", Text: "Store staff were awesome and happy to help"})
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, positive.Sentiment)
	assert.Equal(t, []string{"Positive note on store experience"}, positive.Delights)
}

func TestHeuristicClassifyCase(t *testing.T) {
	h := NewHeuristicClassifier()

	analysis, err := h.ClassifyCase(context.Background(), models.Submission{
		FeedbackID: "f-1",
		Problem:    "I was charged twice on my bill",
	})
	require.NoError(t, err)

	assert.Equal(t, "f-1", analysis.FeedbackID)
	assert.Equal(t, models.DefaultName, analysis.Name)
	assert.Equal(t, models.CategoryBilling, analysis.Intake.Classification)
	assert.Equal(t, models.PriorityHigh, analysis.Routing.Priority)
	assert.Equal(t, "Billing Support", analysis.Routing.Team)
	assert.Len(t, analysis.Routing.Actions, 3)
	assert.Equal(t, models.InsightCards, analysis.Insights.Type)
	assert.NotEmpty(t, analysis.Insights.Cards)
	assert.Empty(t, analysis.Insights.Flowchart)
	require.NotNil(t, analysis.Sentiment.Score)
	assert.GreaterOrEqual(t, *analysis.Sentiment.Score, 0.0)
	assert.LessOrEqual(t, *analysis.Sentiment.Score, 1.0)
	assert.Contains(t, analysis.Intake.Tags, "billing")
}

func TestHeuristicClassifyCase_PositiveIsLowPriority(t *testing.T) {
	analysis, err := NewHeuristicClassifier().ClassifyCase(context.Background(), models.Submission{
		FeedbackID: "f-2",
		Name:       "Ana",
		Problem:    "The support agent was amazing, thanks!",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana", analysis.Name)
	assert.Equal(t, models.CategoryCustomerService, analysis.Intake.Classification)
	assert.Equal(t, models.PriorityLow, analysis.Routing.Priority)
	assert.Equal(t, "satisfied", analysis.Sentiment.Tone)
}

func TestHeuristicSummarizeAndChatFail(t *testing.T) {
	h := NewHeuristicClassifier()

	_, err := h.Summarize(context.Background(), nil, 50)
	assert.ErrorIs(t, err, models.ErrClassification)

	_, err = h.Chat(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrChatUnavailable)
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("New SIM card", "sim"))
	assert.False(t, containsWord("simple question", "sim"))
	assert.True(t, containsWord("talked to customer service today", "customer service"))
	assert.True(t, containsWord("5G!", "5g"))
	assert.False(t, containsWord("report", "rep"))
	assert.True(t, containsWord("rep was rude; the report was late", "rep"))
}
