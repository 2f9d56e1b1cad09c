package models

import "time"

// Default workflow values used when the classifier leaves a field empty
const (
	DefaultTeam     = "Customer Care"
	DefaultName     = "Anonymous"
	DefaultTone     = "neutral"
	DefaultCardTone = "#E20074"
)

// FeedbackRequest is the body of a direct feedback submission
type FeedbackRequest struct {
	Text         string `json:"text" validate:"required,max=5000"`
	Author       string `json:"author,omitempty" validate:"max=100"`
	LocationHint string `json:"location_hint,omitempty" validate:"max=100"`
}

// Submission is a raw direct submission, persisted before classification
type Submission struct {
	FeedbackID   string    `json:"feedback_id"`
	Name         string    `json:"name"`
	Problem      string    `json:"problem"`
	LocationHint string    `json:"location_hint,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// FeedbackAnalysis is the workflow case produced for one submission
type FeedbackAnalysis struct {
	FeedbackID string        `json:"feedback_id"`
	Name       string        `json:"name"`
	Problem    string        `json:"problem"`
	Intake     Intake        `json:"intake"`
	Sentiment  CaseSentiment `json:"sentiment"`
	Routing    Routing       `json:"routing"`
	Insights   Insights      `json:"insights"`
	Resolved   bool          `json:"resolved"`
	AnalyzedAt int64         `json:"analyzed_at"` // epoch seconds
}

// State derives the workflow state of a classified case
func (f *FeedbackAnalysis) State() CaseState {
	if f.Resolved {
		return StateResolved
	}
	return StateOpen
}

// Intake is the first workflow stage
type Intake struct {
	Classification Category `json:"classification"`
	Summary        string   `json:"summary"`
	Tags           []string `json:"tags"`
}

// CaseSentiment is the second workflow stage
type CaseSentiment struct {
	Tone    string   `json:"tone"`
	Score   *float64 `json:"score,omitempty"`
	Urgency string   `json:"urgency,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// Routing is the third workflow stage
type Routing struct {
	Priority Priority        `json:"priority"`
	Team     string          `json:"team"`
	Actions  []RoutingAction `json:"actions"`
}

// RoutingAction is one step a team is asked to take
type RoutingAction struct {
	Step   string `json:"step"`
	Owner  string `json:"owner,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Insights is the fourth workflow stage; Type selects the meaningful list
type Insights struct {
	Type      InsightType     `json:"type"`
	Flowchart []FlowchartStep `json:"flowchart"`
	Cards     []InsightCard   `json:"cards"`
}

type FlowchartStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
}

type InsightCard struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Color string `json:"color"`
}

// ChatRequest is a single-turn assistant message
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// ChatResponse is the assistant's reply
type ChatResponse struct {
	Reply string `json:"reply"`
}
