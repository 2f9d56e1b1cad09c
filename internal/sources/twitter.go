package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultTwitterAPIURL = "https://api.twitter.com"

// TwitterSource implements Twitter/X API source
type TwitterSource struct {
	bearerToken string
	brand       string
	apiURL      string
	client      *resty.Client
}

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type twitterTweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

type twitterUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Location string `json:"location"`
}

// NewTwitterSource creates a new Twitter source
func NewTwitterSource(bearerToken, brand string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		brand:       brand,
		apiURL:      defaultTwitterAPIURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "FeedbackAI/1.0"),
	}
}

// SetBaseURL overrides the API base URL
func (t *TwitterSource) SetBaseURL(apiURL string) *TwitterSource {
	if apiURL != "" {
		t.apiURL = strings.TrimRight(apiURL, "/")
	}
	return t
}

func (t *TwitterSource) GetName() string {
	return string(models.SourceTwitter)
}

func (t *TwitterSource) IsEnabled() bool {
	return t.bearerToken != ""
}

func (t *TwitterSource) FetchPosts(ctx context.Context, query models.SourceQuery) ([]models.Post, error) {
	if !t.IsEnabled() {
		logrus.Debug("Twitter source disabled - missing bearer token")
		return nil, nil
	}

	// recent search accepts 10 to 100 results per page
	maxResults := query.Limit
	if maxResults < 10 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		SetQueryParams(map[string]string{
			"query":        t.buildSearchQuery(query),
			"max_results":  strconv.Itoa(maxResults),
			"tweet.fields": "created_at,author_id",
			"expansions":   "author_id",
			"user.fields":  "username,location",
		}).
		Get(t.apiURL + "/2/tweets/search/recent")
	if err != nil {
		return nil, err
	}

	// fail fast on rate limits so other sources are not blocked
	if resp.StatusCode() == 429 {
		logrus.Warnf("Twitter API rate limit hit, resets at %s", resp.Header().Get("x-rate-limit-reset"))
		return nil, fmt.Errorf("twitter API rate limited")
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	users := make(map[string]twitterUser, len(searchResp.Includes.Users))
	for _, user := range searchResp.Includes.Users {
		users[user.ID] = user
	}

	posts := make([]models.Post, 0, len(searchResp.Data))
	for _, tweet := range searchResp.Data {
		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Debugf("Failed to parse Twitter timestamp %q: %v", tweet.CreatedAt, err)
			createdAt = time.Now().UTC()
		}

		author := "anonymous"
		user, ok := users[tweet.AuthorID]
		if ok && user.Username != "" {
			author = user.Username
		}

		posts = append(posts, models.Post{
			ID:        "twitter_" + tweet.ID,
			Text:      tweet.Text,
			Author:    author,
			PostedAt:  createdAt.UTC(),
			Source:    models.SourceTwitter,
			Permalink: fmt.Sprintf("https://twitter.com/i/status/%s", tweet.ID),
			Location:  InferLocation(tweet.Text, query.LocationHint, user.Location),
		})
		if query.Limit > 0 && len(posts) == query.Limit {
			break
		}
	}

	logrus.Infof("Twitter API returned %d posts", len(posts))
	return posts, nil
}

// buildSearchQuery pins the brand as an exact phrase and drops retweets
func (t *TwitterSource) buildSearchQuery(query models.SourceQuery) string {
	terms := SearchTerms(query.Query, query.Keywords)
	return strings.TrimSpace(fmt.Sprintf("%q %s -is:retweet", t.brand, terms))
}
