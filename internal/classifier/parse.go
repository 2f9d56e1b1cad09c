package classifier

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/models"
)

var errNoJSONObject = errors.New("no JSON object in response")

// extractJSON strips code fences and returns the outermost JSON object
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return content[start : end+1], nil
}

func decodeObject(content string, v interface{}) error {
	object, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(object), v); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return nil
}

// flexString accepts a string, a number or a bool
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err == nil && v != nil {
		switch v.(type) {
		case float64, bool:
			*f = flexString(fmt.Sprint(v))
		}
	}
	return nil
}

// flexStrings accepts a list, a single string or null
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var items []interface{}
	if err := json.Unmarshal(data, &items); err == nil {
		var out []string
		for _, item := range items {
			switch v := item.(type) {
			case string:
				if v = strings.TrimSpace(v); v != "" {
					out = append(out, v)
				}
			case float64, bool:
				out = append(out, fmt.Sprint(v))
			case map[string]interface{}:
				for _, key := range []string{"text", "title", "name", "value"} {
					if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
						out = append(out, strings.TrimSpace(s))
						break
					}
				}
			}
		}
		*f = out
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			*f = []string{single}
		}
	}
	return nil
}

// flexFloat accepts a number or a numeric string such as "0.8" or "80%"
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value, f.set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		percent := strings.HasSuffix(s, "%")
		if v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil && !math.IsNaN(v) {
			if percent {
				v /= 100
			}
			f.value, f.set = v, true
		}
	}
	return nil
}

type rawSentiment struct {
	Sentiment  flexString  `json:"sentiment"`
	Confidence flexFloat   `json:"confidence"`
	Rating     flexFloat   `json:"rating"`
	Category   flexString  `json:"category"`
	Issues     flexStrings `json:"issues"`
	Delights   flexStrings `json:"delights"`
	Solution   flexString  `json:"solution"`
}

func (r rawSentiment) toResult(post models.Post) models.SentimentResult {
	sentiment := models.ParseSentiment(string(r.Sentiment))
	confidence := normalizeConfidence(r.Confidence)

	return models.SentimentResult{
		Post:       post,
		Sentiment:  sentiment,
		Confidence: confidence,
		Rating:     normalizeRating(r.Rating, sentiment, confidence),
		Category:   models.ParseCategory(string(r.Category)),
		Issues:     capList(r.Issues, 5),
		Delights:   capList(r.Delights, 5),
		Solution:   string(r.Solution),
	}
}

// normalizeConfidence clamps to [0,1], reading values in (1,100] as percentages
func normalizeConfidence(f flexFloat) float64 {
	if !f.set || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
		return 0
	}
	v := f.value
	if v > 1 && v <= 100 {
		v /= 100
	}
	return math.Max(0, math.Min(1, v))
}

// normalizeRating keeps a 1-5 rating or derives one from the sentiment
func normalizeRating(f flexFloat, sentiment models.Sentiment, confidence float64) int {
	if f.set {
		r := int(math.Round(f.value))
		if r >= 1 && r <= 5 {
			return r
		}
	}
	switch sentiment {
	case models.SentimentPositive:
		if confidence >= 0.8 {
			return 5
		}
		return 4
	case models.SentimentNegative:
		if confidence >= 0.8 {
			return 1
		}
		return 2
	}
	return 3
}

func capList(items []string, n int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if len(out) == n {
			break
		}
		out = append(out, item)
	}
	return out
}

type rawAction struct {
	Step   flexString `json:"step"`
	Owner  flexString `json:"owner"`
	Detail flexString `json:"detail"`
}

func (a *rawAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Step = flexString(strings.TrimSpace(s))
		return nil
	}
	type plain rawAction
	var p plain
	if err := json.Unmarshal(data, &p); err == nil {
		*a = rawAction(p)
	}
	return nil
}

type rawStep struct {
	Title       flexString `json:"title"`
	Description flexString `json:"description"`
	Color       flexString `json:"color"`
}

func (s *rawStep) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		s.Title = flexString(strings.TrimSpace(title))
		return nil
	}
	type plain rawStep
	var p plain
	if err := json.Unmarshal(data, &p); err == nil {
		*s = rawStep(p)
	}
	return nil
}

type rawCard struct {
	Title flexString `json:"title"`
	Body  flexString `json:"body"`
	Color flexString `json:"color"`
}

func (c *rawCard) UnmarshalJSON(data []byte) error {
	var body string
	if err := json.Unmarshal(data, &body); err == nil {
		c.Body = flexString(strings.TrimSpace(body))
		return nil
	}
	type plain rawCard
	var p plain
	if err := json.Unmarshal(data, &p); err == nil {
		*c = rawCard(p)
	}
	return nil
}

type rawCase struct {
	Intake struct {
		Classification flexString  `json:"classification"`
		Summary        flexString  `json:"summary"`
		Tags           flexStrings `json:"tags"`
	} `json:"intake"`
	Sentiment struct {
		Tone    flexString `json:"tone"`
		Score   flexFloat  `json:"score"`
		Urgency flexString `json:"urgency"`
		Notes   flexString `json:"notes"`
	} `json:"sentiment"`
	Routing struct {
		Priority flexString  `json:"priority"`
		Team     flexString  `json:"team"`
		Actions  []rawAction `json:"actions"`
	} `json:"routing"`
	Insights struct {
		Type      flexString `json:"type"`
		Flowchart []rawStep  `json:"flowchart"`
		Cards     []rawCard  `json:"cards"`
	} `json:"insights"`
}

func (r rawCase) toAnalysis(sub models.Submission) models.FeedbackAnalysis {
	analysis := models.FeedbackAnalysis{
		FeedbackID: sub.FeedbackID,
		Name:       sub.Name,
		Problem:    sub.Problem,
		Intake: models.Intake{
			Classification: models.ParseCategory(string(r.Intake.Classification)),
			Summary:        string(r.Intake.Summary),
			Tags:           capList(r.Intake.Tags, 8),
		},
		Sentiment: models.CaseSentiment{
			Tone:    strings.ToLower(string(r.Sentiment.Tone)),
			Urgency: strings.ToLower(string(r.Sentiment.Urgency)),
			Notes:   string(r.Sentiment.Notes),
		},
		Routing: models.Routing{
			Priority: models.ParsePriority(string(r.Routing.Priority)),
			Team:     string(r.Routing.Team),
			Actions:  make([]models.RoutingAction, 0, len(r.Routing.Actions)),
		},
	}

	if analysis.Name == "" {
		analysis.Name = models.DefaultName
	}
	if analysis.Intake.Summary == "" {
		analysis.Intake.Summary = truncate(sub.Problem, 140)
	}
	if analysis.Sentiment.Tone == "" {
		analysis.Sentiment.Tone = models.DefaultTone
	}
	if r.Sentiment.Score.set {
		score := normalizeConfidence(r.Sentiment.Score)
		analysis.Sentiment.Score = &score
	}
	if analysis.Routing.Team == "" {
		analysis.Routing.Team = models.DefaultTeam
	}
	for _, action := range r.Routing.Actions {
		if action.Step == "" {
			continue
		}
		analysis.Routing.Actions = append(analysis.Routing.Actions, models.RoutingAction{
			Step:   string(action.Step),
			Owner:  string(action.Owner),
			Detail: string(action.Detail),
		})
	}

	analysis.Insights = coerceInsights(r)
	return analysis
}

// coerceInsights keeps only the list selected by the type. When the selected
// list is empty and the other is not, the type follows the data.
func coerceInsights(r rawCase) models.Insights {
	var steps []models.FlowchartStep
	for i, step := range r.Insights.Flowchart {
		if step.Title == "" && step.Description == "" {
			continue
		}
		color := string(step.Color)
		if color == "" {
			color = paletteColor(i)
		}
		steps = append(steps, models.FlowchartStep{
			Title:       string(step.Title),
			Description: string(step.Description),
			Color:       color,
		})
	}

	var cards []models.InsightCard
	for i, card := range r.Insights.Cards {
		if card.Title == "" && card.Body == "" {
			continue
		}
		color := string(card.Color)
		if color == "" {
			color = paletteColor(i)
		}
		cards = append(cards, models.InsightCard{
			Title: string(card.Title),
			Body:  string(card.Body),
			Color: color,
		})
	}

	insightType := models.ParseInsightType(string(r.Insights.Type))
	switch {
	case insightType == models.InsightFlowchart && len(steps) == 0 && len(cards) > 0:
		insightType = models.InsightCards
	case insightType == models.InsightCards && len(cards) == 0 && len(steps) > 0:
		insightType = models.InsightFlowchart
	}

	insights := models.Insights{
		Type:      insightType,
		Flowchart: []models.FlowchartStep{},
		Cards:     []models.InsightCard{},
	}
	if insightType == models.InsightFlowchart {
		insights.Flowchart = steps
	} else if cards != nil {
		insights.Cards = cards
	}
	return insights
}
