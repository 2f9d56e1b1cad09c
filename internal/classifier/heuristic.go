package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/mhosigiri/FeedbackAI/internal/metrics"
	"github.com/mhosigiri/FeedbackAI/internal/models"
)

// categoryKeywords is checked in order, first match wins
var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryNetworkCoverage, []string{"coverage", "tower", "signal", "5g", "4g", "outage", "latency", "network", "data speed"}},
	{models.CategoryCustomerService, []string{"support", "customer service", "rep", "agent", "call center"}},
	{models.CategoryBilling, []string{"bill", "billing", "charge", "charged", "payment", "invoice"}},
	{models.CategoryPricingPlans, []string{"plan", "pricing", "upgrade", "downgrade", "promotion", "offer", "deal"}},
	{models.CategoryDevice, []string{"device", "phone", "tablet", "router", "gateway", "sim"}},
	{models.CategoryStoreExperience, []string{"store", "retail", "in-store", "kiosk"}},
	{models.CategoryMobileApp, []string{"app", "application", "login", "mytmobile"}},
}

var (
	positiveKeywords = []string{"love", "loving", "great", "awesome", "fast", "happy", "excellent", "amazing", "thanks", "clutch"}
	negativeKeywords = []string{"slow", "bad", "terrible", "hate", "angry", "frustrating", "issue", "problem", "outage", "dropped", "failing", "broken"}
	urgentKeywords   = []string{"outage", "no service", "fraud", "charged twice", "stolen", "emergency", "cancel"}
)

var teamByCategory = map[models.Category]string{
	models.CategoryNetworkCoverage: "Network Operations",
	models.CategoryCustomerService: "Customer Care",
	models.CategoryBilling:         "Billing Support",
	models.CategoryPricingPlans:    "Sales & Retention",
	models.CategoryDevice:          "Device Support",
	models.CategoryStoreExperience: "Retail Operations",
	models.CategoryMobileApp:       "Digital Experience",
	models.CategoryOther:           models.DefaultTeam,
}

// HeuristicClassifier labels text with keyword tables. It needs no
// credentials and never fails, so it backs the pipeline when no language
// model is configured.
type HeuristicClassifier struct{}

var _ Classifier = (*HeuristicClassifier)(nil)

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

func (h *HeuristicClassifier) Name() string {
	return "heuristic"
}

func (h *HeuristicClassifier) Classify(ctx context.Context, post models.Post) (*models.SentimentResult, error) {
	rating := heuristicRating(post.Text)
	sentiment := sentimentFromRating(rating)
	category := heuristicCategory(post.Text)

	result := &models.SentimentResult{
		Post:       post,
		Sentiment:  sentiment,
		Confidence: math.Min(0.95, 0.5+math.Abs(float64(rating-3))*0.15),
		Rating:     rating,
		Category:   category,
		Issues:     []string{},
		Delights:   []string{},
	}

	switch sentiment {
	case models.SentimentNegative:
		result.Issues = append(result.Issues, "Negative feedback on "+strings.ToLower(string(category)))
		result.Solution = fmt.Sprintf("Route to %s for follow-up.", teamByCategory[category])
	case models.SentimentPositive:
		result.Delights = append(result.Delights, "Positive note on "+strings.ToLower(string(category)))
	}

	metrics.Classifications.WithLabelValues("post", "heuristic").Inc()
	return result, nil
}

func (h *HeuristicClassifier) ClassifyCase(ctx context.Context, sub models.Submission) (*models.FeedbackAnalysis, error) {
	rating := heuristicRating(sub.Problem)
	sentiment := sentimentFromRating(rating)
	category := heuristicCategory(sub.Problem)
	team := teamByCategory[category]
	score := float64(rating-1) / 4

	priority := models.PriorityNormal
	urgency := "medium"
	switch {
	case matchesAny(sub.Problem, urgentKeywords) || rating == 1:
		priority = models.PriorityHigh
		urgency = "high"
	case sentiment == models.SentimentPositive:
		priority = models.PriorityLow
		urgency = "low"
	}

	name := sub.Name
	if name == "" {
		name = models.DefaultName
	}

	tone := models.DefaultTone
	switch sentiment {
	case models.SentimentNegative:
		tone = "frustrated"
	case models.SentimentPositive:
		tone = "satisfied"
	}

	label := strings.ToLower(string(category))
	analysis := &models.FeedbackAnalysis{
		FeedbackID: sub.FeedbackID,
		Name:       name,
		Problem:    sub.Problem,
		Intake: models.Intake{
			Classification: category,
			Summary:        truncate(strings.TrimSpace(sub.Problem), 140),
			Tags:           heuristicTags(sub.Problem, category),
		},
		Sentiment: models.CaseSentiment{
			Tone:    tone,
			Score:   &score,
			Urgency: urgency,
			Notes:   "Scored from keyword matches.",
		},
		Routing: models.Routing{
			Priority: priority,
			Team:     team,
			Actions: []models.RoutingAction{
				{Step: "Acknowledge the customer", Owner: models.DefaultTeam, Detail: "Confirm receipt and set expectations for a reply."},
				{Step: "Investigate the " + label + " report", Owner: team, Detail: "Reproduce or verify the problem described."},
				{Step: "Close the loop", Owner: team, Detail: "Share the outcome with the customer and resolve the case."},
			},
		},
		Insights: models.Insights{
			Type:      models.InsightCards,
			Flowchart: []models.FlowchartStep{},
			Cards: []models.InsightCard{
				{Title: string(category), Body: fmt.Sprintf("Customer rated the experience %d out of 5.", rating), Color: paletteColor(0)},
				{Title: "Owner", Body: team + " owns the next step.", Color: paletteColor(1)},
			},
		},
	}

	metrics.Classifications.WithLabelValues("case", "heuristic").Inc()
	return analysis, nil
}

// Summarize always fails so callers use the deterministic fallback summary
func (h *HeuristicClassifier) Summarize(ctx context.Context, results []models.SentimentResult, csi float64) (string, error) {
	return "", fmt.Errorf("%w: heuristic classifier does not summarize", models.ErrClassification)
}

func (h *HeuristicClassifier) Chat(ctx context.Context, message string) (string, error) {
	return "", fmt.Errorf("%w: no language model configured", models.ErrChatUnavailable)
}

func heuristicCategory(text string) models.Category {
	for _, entry := range categoryKeywords {
		if matchesAny(text, entry.keywords) {
			return entry.category
		}
	}
	return models.CategoryOther
}

// heuristicRating starts at 3 and moves one point per keyword hit
func heuristicRating(text string) int {
	score := 3
	for _, keyword := range positiveKeywords {
		if containsWord(text, keyword) {
			score++
		}
	}
	for _, keyword := range negativeKeywords {
		if containsWord(text, keyword) {
			score--
		}
	}
	return max(1, min(5, score))
}

func sentimentFromRating(rating int) models.Sentiment {
	switch {
	case rating >= 4:
		return models.SentimentPositive
	case rating <= 2:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

func heuristicTags(text string, category models.Category) []string {
	tags := []string{strings.ToLower(string(category))}
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if len(tags) == 8 {
				return tags
			}
			if containsWord(text, keyword) && keyword != tags[0] {
				tags = append(tags, keyword)
			}
		}
	}
	return tags
}

func matchesAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if containsWord(text, keyword) {
			return true
		}
	}
	return false
}

// containsWord reports a case-insensitive match of keyword on word boundaries,
// so "sim" does not match "simple"
func containsWord(text, keyword string) bool {
	haystack := strings.ToLower(text)
	needle := strings.ToLower(keyword)
	for offset := 0; offset < len(haystack); {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
