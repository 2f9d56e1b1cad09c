package sources

import (
	"context"
	"strings"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

// SubmissionReader lists recent direct submissions, newest first
type SubmissionReader interface {
	RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error)
}

// FeedbackSource exposes direct submissions to the analysis fan-out
type FeedbackSource struct {
	reader SubmissionReader
}

func NewFeedbackSource(reader SubmissionReader) *FeedbackSource {
	return &FeedbackSource{reader: reader}
}

func (f *FeedbackSource) GetName() string {
	return string(models.SourceApp)
}

func (f *FeedbackSource) IsEnabled() bool {
	return f.reader != nil
}

// FetchPosts returns submissions as posts. The free-text query is not
// applied; keywords, when given, must appear in the problem text.
func (f *FeedbackSource) FetchPosts(ctx context.Context, query models.SourceQuery) ([]models.Post, error) {
	if !f.IsEnabled() {
		return nil, nil
	}

	// over-fetch so keyword filtering can still fill the limit
	fetch := query.Limit
	if len(query.Keywords) > 0 {
		fetch *= 4
	}

	submissions, err := f.reader.RecentSubmissions(ctx, fetch)
	if err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(submissions))
	for _, sub := range submissions {
		if len(query.Keywords) > 0 && !containsAnyFold(sub.Problem, query.Keywords) {
			continue
		}

		author := sub.Name
		if author == "" {
			author = models.DefaultName
		}
		hint := sub.LocationHint
		if hint == "" {
			hint = query.LocationHint
		}

		posts = append(posts, models.Post{
			ID:       "app_" + sub.FeedbackID,
			Text:     sub.Problem,
			Author:   author,
			PostedAt: sub.SubmittedAt,
			Source:   models.SourceApp,
			Location: InferLocation(sub.Problem, hint),
		})
		if query.Limit > 0 && len(posts) == query.Limit {
			break
		}
	}

	return posts, nil
}

func containsAnyFold(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
