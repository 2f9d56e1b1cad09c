package classifier

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/models"
)

const jsonOnlySystem = "Respond with valid JSON only. Do not wrap the JSON in code fences."

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func postPrompt(brand string, post models.Post) string {
	location := ""
	if post.Location != nil {
		location = post.Location.Raw
		if post.Location.City != "" {
			location = post.Location.City + ", " + post.Location.State
		}
	}
	payload, _ := json.Marshal(map[string]string{
		"id":       post.ID,
		"source":   string(post.Source),
		"author":   post.Author,
		"location": location,
		"text":     truncate(post.Text, 1200),
	})

	return fmt.Sprintf(`You are an operations analyst for %s reviewing one customer post.
Classify it and return a JSON object with exactly these fields:
  "sentiment": one of "positive", "neutral", "negative"
  "confidence": number between 0 and 1
  "rating": integer from 1 (very negative) to 5 (very positive)
  "category": one of %s
  "issues": array of at most 5 short strings naming problems the customer reports
  "delights": array of at most 5 short strings naming things the customer liked
  "solution": one sentence suggesting what the team could do next
Post: %s`, brand, categoryList(), payload)
}

func casePrompt(brand string, sub models.Submission) string {
	payload, _ := json.Marshal(map[string]string{
		"feedback_id":   sub.FeedbackID,
		"name":          sub.Name,
		"location_hint": sub.LocationHint,
		"problem":       truncate(sub.Problem, 4000),
	})

	return fmt.Sprintf(`You are the customer care workflow engine for %s.
Turn this customer submission into a four stage case and return a JSON object:
{
  "intake": {"classification": one of %s, "summary": "one sentence", "tags": ["up to 8 short tags"]},
  "sentiment": {"tone": "angry|frustrated|neutral|satisfied|happy", "score": number 0 (very unhappy) to 1 (very happy), "urgency": "low|medium|high", "notes": "short note"},
  "routing": {"priority": "Low|Normal|High|Urgent", "team": "owning team", "actions": [{"step": "what to do", "owner": "who", "detail": "how"}]},
  "insights": {"type": "flowchart" or "cards", "flowchart": [{"title": "", "description": "", "color": "#hex"}], "cards": [{"title": "", "body": "", "color": "#hex"}]}
}
Fill only the insight list named by "type".
Submission: %s`, brand, categoryList(), payload)
}

func summaryPrompt(brand string, results []models.SentimentResult, csi float64) string {
	type item struct {
		Sentiment models.Sentiment `json:"sentiment"`
		Category  models.Category  `json:"category"`
		Rating    int              `json:"rating"`
		Text      string           `json:"text"`
	}
	items := make([]item, 0, len(results))
	for _, r := range results {
		items = append(items, item{
			Sentiment: r.Sentiment,
			Category:  r.Category,
			Rating:    r.Rating,
			Text:      truncate(r.Post.Text, 280),
		})
	}
	payload, _ := json.Marshal(items)

	return fmt.Sprintf(`You are an operations analyst for %s.
The customer satisfaction index for these posts is %.0f out of 100.
Write a summary of at most three sentences naming the dominant themes and one recommended focus.
Return a JSON object {"summary": "..."}.
Posts: %s`, brand, csi, payload)
}

func chatSystem(brand string) string {
	return fmt.Sprintf("You are a helpful %s customer experience assistant. "+
		"Answer in plain text, briefly, and suggest a next step when the customer describes a problem.", brand)
}
