package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultRedditAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultRedditAPIURL  = "https://oauth.reddit.com"
)

// RedditSource implements Reddit API source
type RedditSource struct {
	clientID     string
	clientSecret string
	userAgent    string
	brand        string
	timeWindow   string
	authURL      string
	apiURL       string
	client       *resty.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Title           string  `json:"title"`
	Selftext        string  `json:"selftext"`
	Author          string  `json:"author"`
	Subreddit       string  `json:"subreddit"`
	Permalink       string  `json:"permalink"`
	Created         float64 `json:"created_utc"`
	LinkFlairText   string  `json:"link_flair_text"`
	AuthorFlairText string  `json:"author_flair_text"`
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(clientID, clientSecret, userAgent, brand string) *RedditSource {
	if userAgent == "" {
		userAgent = "FeedbackAI/1.0"
	}
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		brand:        brand,
		timeWindow:   "day",
		authURL:      defaultRedditAuthURL,
		apiURL:       defaultRedditAPIURL,
		client:       resty.New().SetTimeout(30 * time.Second),
	}
}

// SetEndpoints overrides the token and API base URLs
func (r *RedditSource) SetEndpoints(authURL, apiURL string) *RedditSource {
	if authURL != "" {
		r.authURL = authURL
	}
	if apiURL != "" {
		r.apiURL = strings.TrimRight(apiURL, "/")
	}
	return r
}

// SetTimeWindow sets the search window (hour, day, week, month, year, all)
func (r *RedditSource) SetTimeWindow(window string) *RedditSource {
	if window != "" {
		r.timeWindow = window
	}
	return r
}

func (r *RedditSource) GetName() string {
	return string(models.SourceReddit)
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) FetchPosts(ctx context.Context, query models.SourceQuery) ([]models.Post, error) {
	if !r.IsEnabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	token, err := r.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	if len(query.Subreddits) == 0 {
		return r.search(ctx, token, "", query)
	}

	var allPosts []models.Post
	for _, subreddit := range query.Subreddits {
		posts, err := r.search(ctx, token, subreddit, query)
		allPosts = append(allPosts, posts...)
		if err != nil {
			return allPosts, fmt.Errorf("subreddit %s: %w", subreddit, err)
		}
		if query.Limit > 0 && len(allPosts) >= query.Limit {
			break
		}
	}

	if query.Limit > 0 && len(allPosts) > query.Limit {
		allPosts = allPosts[:query.Limit]
	}
	return allPosts, nil
}

// token returns a cached access token, requesting a new one when it is close
// to expiry. The lock is not held across the network call.
func (r *RedditSource) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.accessToken != "" && time.Now().Before(r.expiresAt) {
		token := r.accessToken
		r.mu.Unlock()
		return token, nil
	}
	r.mu.Unlock()

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.authURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return "", err
	}
	if authResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	expiresIn := time.Duration(authResp.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}

	r.mu.Lock()
	r.accessToken = authResp.AccessToken
	r.expiresAt = time.Now().Add(expiresIn - time.Minute)
	r.mu.Unlock()

	logrus.Debug("Obtained Reddit access token")
	return authResp.AccessToken, nil
}

func (r *RedditSource) search(ctx context.Context, token, subreddit string, query models.SourceQuery) ([]models.Post, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q %s", r.brand, SearchTerms(query.Query, query.Keywords)))
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("sort", "new")
	params.Set("t", r.timeWindow)
	params.Set("include_facets", "false")

	searchURL := r.apiURL + "/search"
	if subreddit != "" {
		searchURL = fmt.Sprintf("%s/r/%s/search", r.apiURL, url.PathEscape(subreddit))
		params.Set("restrict_sr", "1")
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("User-Agent", r.userAgent).
		SetHeader("Accept", "application/json").
		SetQueryParamsFromValues(params).
		Get(searchURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == 401 {
		r.mu.Lock()
		r.accessToken = ""
		r.mu.Unlock()
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var searchResp redditSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Reddit response: %w", err)
	}

	return r.toPosts(searchResp, query), nil
}

func (r *RedditSource) toPosts(searchResp redditSearchResponse, query models.SourceQuery) []models.Post {
	brand := strings.ToLower(r.brand)
	posts := make([]models.Post, 0, len(searchResp.Data.Children))

	for i, child := range searchResp.Data.Children {
		node := child.Data
		text := strings.TrimSpace(node.Title + "\n\n" + node.Selftext)

		// search results can match on comments or flair only
		if !strings.Contains(strings.ToLower(text), brand) {
			continue
		}

		id := node.ID
		if id == "" {
			id = node.Name
		}
		if id == "" {
			id = strconv.Itoa(i)
		}

		author := node.Author
		if author == "" {
			author = "anonymous"
		}

		postedAt := time.Now().UTC()
		if node.Created > 0 {
			postedAt = time.Unix(int64(node.Created), 0).UTC()
		}

		post := models.Post{
			ID:       "reddit_" + id,
			Text:     text,
			Author:   author,
			PostedAt: postedAt,
			Source:   models.SourceReddit,
			Location: InferLocation(text, query.LocationHint, node.LinkFlairText, node.AuthorFlairText),
		}
		if node.Permalink != "" {
			post.Permalink = "https://reddit.com" + node.Permalink
		}
		posts = append(posts, post)
	}

	logrus.Infof("Parsed %d Reddit posts from listing", len(posts))
	return posts
}

// SearchTerms appends keywords missing from the query as an OR group
func SearchTerms(query string, keywords []string) string {
	query = strings.TrimSpace(query)
	lowered := strings.ToLower(query)

	var extra []string
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || strings.Contains(lowered, strings.ToLower(keyword)) {
			continue
		}
		extra = append(extra, keyword)
	}

	switch len(extra) {
	case 0:
		return query
	case 1:
		return strings.TrimSpace(query + " " + extra[0])
	}
	return strings.TrimSpace(query + " (" + strings.Join(extra, " OR ") + ")")
}
