package models

import "strings"

// Category is the closed set of feedback topics
type Category string

const (
	CategoryNetworkCoverage Category = "Network Coverage"
	CategoryCustomerService Category = "Customer Service"
	CategoryBilling         Category = "Billing"
	CategoryPricingPlans    Category = "Pricing & Plans"
	CategoryDevice          Category = "Device and Equipment"
	CategoryStoreExperience Category = "Store Experience"
	CategoryMobileApp       Category = "Mobile App"
	CategoryOther           Category = "Other"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryNetworkCoverage,
	CategoryCustomerService,
	CategoryBilling,
	CategoryPricingPlans,
	CategoryDevice,
	CategoryStoreExperience,
	CategoryMobileApp,
	CategoryOther,
}

var categoryAliases = map[string]Category{
	"network":           CategoryNetworkCoverage,
	"coverage":          CategoryNetworkCoverage,
	"network/coverage":  CategoryNetworkCoverage,
	"signal":            CategoryNetworkCoverage,
	"customer support":  CategoryCustomerService,
	"support":           CategoryCustomerService,
	"service":           CategoryCustomerService,
	"billing issue":     CategoryBilling,
	"bill":              CategoryBilling,
	"payments":          CategoryBilling,
	"pricing":           CategoryPricingPlans,
	"plans":             CategoryPricingPlans,
	"pricing and plans": CategoryPricingPlans,
	"device":            CategoryDevice,
	"devices":           CategoryDevice,
	"equipment":         CategoryDevice,
	"hardware":          CategoryDevice,
	"store":             CategoryStoreExperience,
	"retail":            CategoryStoreExperience,
	"app":               CategoryMobileApp,
	"mobile app":        CategoryMobileApp,
	"t-mobile app":      CategoryMobileApp,
}

// ParseCategory maps free text onto the closed set, falling back to Other
func ParseCategory(raw string) Category {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if key == "" {
		return CategoryOther
	}
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// Sentiment is the polarity of a classified item
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps free text onto the sentiment enum, falling back to neutral
func ParseSentiment(raw string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "pos", "happy", "delighted":
		return SentimentPositive
	case "negative", "neg", "unhappy", "angry", "frustrated":
		return SentimentNegative
	}
	return SentimentNeutral
}

// Value is the contribution of a sentiment to the CSI score
func (s Sentiment) Value() float64 {
	switch s {
	case SentimentPositive:
		return 100
	case SentimentNegative:
		return 0
	}
	return 50
}

// InsightType selects which insight list of a case is meaningful
type InsightType string

const (
	InsightFlowchart InsightType = "flowchart"
	InsightCards     InsightType = "cards"
)

// ParseInsightType falls back to cards for anything unrecognized
func ParseInsightType(raw string) InsightType {
	if strings.EqualFold(strings.TrimSpace(raw), string(InsightFlowchart)) {
		return InsightFlowchart
	}
	return InsightCards
}

// Priority is the routing priority of a case
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// ParsePriority falls back to Normal for anything unrecognized
func ParsePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "p3", "p4":
		return PriorityLow
	case "high", "p1":
		return PriorityHigh
	case "urgent", "critical", "p0":
		return PriorityUrgent
	}
	return PriorityNormal
}

// Escalated reports whether a case at this priority should page someone
func (p Priority) Escalated() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// CaseState is the workflow state of a submitted case
type CaseState string

const (
	StateUnclassified CaseState = "unclassified"
	StateOpen         CaseState = "open"
	StateResolved     CaseState = "resolved"
)
