package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected Category
	}{
		{"Billing", CategoryBilling},
		{"  network   coverage ", CategoryNetworkCoverage},
		{"PRICING & PLANS", CategoryPricingPlans},
		{"device and equipment", CategoryDevice},
		{"hardware", CategoryDevice},
		{"app", CategoryMobileApp},
		{"Roaming", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCategory(tt.input))
		})
	}
}

func TestParseCategory_AlwaysInClosedSet(t *testing.T) {
	closed := make(map[Category]bool)
	for _, c := range Categories {
		closed[c] = true
	}
	for _, input := range []string{"5G", "{}", "billing?", "Mobile App ", "store experience"} {
		assert.True(t, closed[ParseCategory(input)], input)
	}
}

func TestParseSentiment(t *testing.T) {
	assert.Equal(t, SentimentPositive, ParseSentiment("Positive"))
	assert.Equal(t, SentimentNegative, ParseSentiment(" negative "))
	assert.Equal(t, SentimentNeutral, ParseSentiment("mixed"))
	assert.Equal(t, SentimentNeutral, ParseSentiment(""))
}

func TestSentiment_Value(t *testing.T) {
	assert.Equal(t, 100.0, SentimentPositive.Value())
	assert.Equal(t, 50.0, SentimentNeutral.Value())
	assert.Equal(t, 0.0, SentimentNegative.Value())
	assert.Equal(t, 50.0, Sentiment("bogus").Value())
}

func TestParseInsightType(t *testing.T) {
	assert.Equal(t, InsightFlowchart, ParseInsightType("Flowchart"))
	assert.Equal(t, InsightCards, ParseInsightType("cards"))
	assert.Equal(t, InsightCards, ParseInsightType("timeline"))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityUrgent, ParsePriority("critical"))
	assert.Equal(t, PriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityNormal, ParsePriority("medium"))
	assert.True(t, PriorityUrgent.Escalated())
	assert.False(t, PriorityNormal.Escalated())
}

func TestFeedbackAnalysis_State(t *testing.T) {
	c := FeedbackAnalysis{}
	assert.Equal(t, StateOpen, c.State())
	c.Resolved = true
	assert.Equal(t, StateResolved, c.State())
}
