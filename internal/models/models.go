package models

import "time"

// Source identifies the channel a post came from
type Source string

const (
	SourceReddit  Source = "reddit"
	SourceApp     Source = "app"
	SourceTwitter Source = "twitter"
)

// Location is a best-effort place attached to a post
type Location struct {
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Raw       string   `json:"raw,omitempty"` // the text the location was inferred from
}

// HasCoordinates reports whether the location can be placed on a map
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Post represents one unit of feedback from any channel
type Post struct {
	ID        string    `json:"id"` // namespaced per source, e.g. "reddit_abc123"
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	PostedAt  time.Time `json:"posted_at"`
	Source    Source    `json:"source"`
	Permalink string    `json:"permalink,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// SourceQuery is what a connector is asked to fetch
type SourceQuery struct {
	Query        string
	Limit        int
	Subreddits   []string
	Keywords     []string
	LocationHint string
}

// SentimentResult is the classification attached to a post
type SentimentResult struct {
	Post       Post      `json:"post"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Rating     int       `json:"rating"`
	Category   Category  `json:"category"`
	Issues     []string  `json:"issues"`
	Delights   []string  `json:"delights"`
	Solution   string    `json:"solution,omitempty"`
}

// AnalyzeRequest is the input of one analyze call
type AnalyzeRequest struct {
	Query        string   `json:"query" validate:"required,max=200"`
	Limit        int      `json:"limit,omitempty" validate:"min=0,max=100"`
	Subreddits   []string `json:"subreddits,omitempty" validate:"max=10,dive,max=50"`
	Keywords     []string `json:"keywords,omitempty" validate:"max=10,dive,max=50"`
	Sources      []Source `json:"sources,omitempty" validate:"dive,oneof=reddit app twitter"`
	LocationHint string   `json:"location_hint,omitempty" validate:"max=100"`
}

// Marker places one classified post on the map
type Marker struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Key string  `json:"key"`
}

// Timings holds server-side stage latencies in milliseconds
type Timings struct {
	RedditMs   int64 `json:"reddit_ms"`   // external connectors
	FeedbackMs int64 `json:"feedback_ms"` // direct submissions
	LLMMs      int64 `json:"llm_ms"`      // classification and summary
	TotalMs    int64 `json:"total_ms"`
}

// AnalyzeResponse is the aggregate returned for one query
type AnalyzeResponse struct {
	Sentiments  []SentimentResult `json:"sentiments"`
	CSIScore    float64           `json:"csi_score"`
	Summary     string            `json:"summary"`
	IssueCounts map[Category]int  `json:"issue_counts"`
	Markers     []Marker          `json:"markers"`
	Warnings    []string          `json:"warnings,omitempty"`
	Timings     Timings           `json:"timings"`
}

// Report represents a periodic CSI digest
type Report struct {
	GeneratedAt        time.Time          `json:"generated_at"`
	Period             string             `json:"period"` // "daily", "weekly" or "manual"
	Query              string             `json:"query"`
	CSIScore           float64            `json:"csi_score"`
	Band               string             `json:"band"`
	TotalSignals       int                `json:"total_signals"`
	IssueCounts        map[Category]int   `json:"issue_counts"`
	SentimentBreakdown map[Sentiment]int  `json:"sentiment_breakdown"`
	Summary            string             `json:"summary"`
	Highlights         []SentimentResult  `json:"highlights"`
	Unresolved         []FeedbackAnalysis `json:"unresolved"`
	Warnings           []string           `json:"warnings,omitempty"`
}

// Alert represents an urgent notification
type Alert struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // "critical", "urgent", "info"
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Case      *FeedbackAnalysis `json:"case,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
