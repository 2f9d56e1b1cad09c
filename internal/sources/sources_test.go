package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRedditSource_GetName(t *testing.T) {
	source := NewRedditSource("client_id", "client_secret", "", "T-Mobile")
	assert.Equal(t, "reddit", source.GetName())
}

func TestRedditSource_IsEnabled(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		expected     bool
	}{
		{
			name:         "Both credentials provided",
			clientID:     "client_id",
			clientSecret: "client_secret",
			expected:     true,
		},
		{
			name:         "Missing client ID",
			clientID:     "",
			clientSecret: "client_secret",
			expected:     false,
		},
		{
			name:         "Missing client secret",
			clientID:     "client_id",
			clientSecret: "",
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRedditSource(tt.clientID, tt.clientSecret, "", "T-Mobile")
			assert.Equal(t, tt.expected, source.IsEnabled())
		})
	}
}

const redditListing = `{"data":{"children":[
	{"data":{"id":"a1","title":"T-Mobile 5G in Dallas is fast","selftext":"","author":"alice","created_utc":1700000000,"permalink":"/r/tmobile/comments/a1/"}},
	{"data":{"id":"a2","title":"Unrelated carrier post","selftext":"nothing here","author":"bob","created_utc":1700000001}},
	{"data":{"id":"a3","title":"Billing mess","selftext":"t-mobile charged me twice","author":"","created_utc":1700000002,"author_flair_text":"Seattle"}}
]}}`

func newRedditServer(t *testing.T, tokenCalls *int32, lastQuery *string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if lastQuery != nil {
			*lastQuery = r.URL.RawQuery
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(redditListing))
	})
	mux.HandleFunc("/r/broken/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/r/tmobile/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
		w.Write([]byte(redditListing))
	})
	return httptest.NewServer(mux)
}

func TestRedditSource_FetchPosts(t *testing.T) {
	var tokenCalls int32
	var rawQuery string
	server := newRedditServer(t, &tokenCalls, &rawQuery)
	defer server.Close()

	source := NewRedditSource("id", "secret", "test-agent", "T-Mobile").
		SetEndpoints(server.URL+"/api/v1/access_token", server.URL)

	posts, err := source.FetchPosts(context.Background(), models.SourceQuery{Query: "5G", Limit: 5})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "reddit_a1", posts[0].ID)
	assert.Equal(t, "alice", posts[0].Author)
	assert.Equal(t, "https://reddit.com/r/tmobile/comments/a1/", posts[0].Permalink)
	assert.Equal(t, models.SourceReddit, posts[0].Source)
	require.True(t, posts[0].Location.HasCoordinates())
	assert.Equal(t, "Dallas", posts[0].Location.City)

	assert.Equal(t, "anonymous", posts[1].Author)
	assert.Equal(t, "Seattle", posts[1].Location.City)
	assert.Empty(t, posts[1].Permalink)

	assert.Contains(t, rawQuery, "sort=new")
	assert.Contains(t, rawQuery, "t=day")

	// the token is cached between calls
	_, err = source.FetchPosts(context.Background(), models.SourceQuery{Query: "5G", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestRedditSource_PartialResultsOnSubredditFailure(t *testing.T) {
	var tokenCalls int32
	server := newRedditServer(t, &tokenCalls, nil)
	defer server.Close()

	source := NewRedditSource("id", "secret", "", "T-Mobile").
		SetEndpoints(server.URL+"/api/v1/access_token", server.URL)

	posts, err := source.FetchPosts(context.Background(), models.SourceQuery{
		Query:      "billing",
		Limit:      10,
		Subreddits: []string{"tmobile", "broken"},
	})

	require.Error(t, err)
	assert.Len(t, posts, 2)
}

func TestRedditSource_Disabled(t *testing.T) {
	posts, err := NewRedditSource("", "", "", "T-Mobile").FetchPosts(context.Background(), models.SourceQuery{Query: "x", Limit: 1})
	assert.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, "5G", SearchTerms(" 5G ", nil))
	assert.Equal(t, "5G coverage", SearchTerms("5G", []string{"coverage", "5g"}))
	assert.Equal(t, "5G (coverage OR tower)", SearchTerms("5G", []string{"coverage", " ", "tower"}))
}

func TestTwitterSource_FetchPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer bearer", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		assert.Contains(t, r.URL.Query().Get("query"), `"T-Mobile"`)
		assert.Contains(t, r.URL.Query().Get("query"), "-is:retweet")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data":[
				{"id":"1","text":"T-Mobile outage again","author_id":"u1","created_at":"2024-05-01T10:00:00Z"},
				{"id":"2","text":"T-Mobile store was great","author_id":"u2","created_at":"bad"}
			],
			"includes":{"users":[{"id":"u1","username":"carol","location":"Houston, TX"}]}
		}`))
	}))
	defer server.Close()

	source := NewTwitterSource("bearer", "T-Mobile").SetBaseURL(server.URL)
	posts, err := source.FetchPosts(context.Background(), models.SourceQuery{Query: "outage", Limit: 3})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "twitter_1", posts[0].ID)
	assert.Equal(t, "carol", posts[0].Author)
	assert.Equal(t, "Houston", posts[0].Location.City)
	assert.Equal(t, "anonymous", posts[1].Author)
	assert.False(t, posts[1].PostedAt.IsZero())
}

func TestTwitterSource_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewTwitterSource("bearer", "T-Mobile").SetBaseURL(server.URL).
		FetchPosts(context.Background(), models.SourceQuery{Query: "x", Limit: 5})
	assert.ErrorContains(t, err, "rate limited")
}

// MockSubmissionReader is a mock implementation of SubmissionReader
type MockSubmissionReader struct {
	mock.Mock
}

func (m *MockSubmissionReader) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	args := m.Called(ctx, limit)
	if subs := args.Get(0); subs != nil {
		return subs.([]models.Submission), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestFeedbackSource_FetchPosts(t *testing.T) {
	now := time.Now().UTC()
	reader := new(MockSubmissionReader)
	reader.On("RecentSubmissions", mock.Anything, 8).Return([]models.Submission{
		{FeedbackID: "f1", Name: "Dee", Problem: "No signal in Miami", SubmittedAt: now},
		{FeedbackID: "f2", Problem: "Bill is too high", SubmittedAt: now, LocationHint: "Austin"},
		{FeedbackID: "f3", Problem: "Signal drops at home", SubmittedAt: now},
	}, nil)

	source := NewFeedbackSource(reader)
	posts, err := source.FetchPosts(context.Background(), models.SourceQuery{Query: "anything", Limit: 2, Keywords: []string{"signal"}})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "app_f1", posts[0].ID)
	assert.Equal(t, models.SourceApp, posts[0].Source)
	assert.Equal(t, "Miami", posts[0].Location.City)
	assert.Equal(t, "app_f3", posts[1].ID)
	assert.Equal(t, models.DefaultName, posts[1].Author)
	reader.AssertExpectations(t)
}

func TestFeedbackSource_NoKeywords(t *testing.T) {
	reader := new(MockSubmissionReader)
	reader.On("RecentSubmissions", mock.Anything, 5).Return([]models.Submission{
		{FeedbackID: "f2", Problem: "Bill is too high", LocationHint: "Austin"},
	}, nil)

	posts, err := NewFeedbackSource(reader).FetchPosts(context.Background(), models.SourceQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Austin", posts[0].Location.Raw)
	assert.False(t, posts[0].Location.HasCoordinates())
}

func TestInferLocation(t *testing.T) {
	loc := InferLocation("Dropped calls all over NYC", "")
	require.NotNil(t, loc)
	assert.Equal(t, "New York", loc.City)
	assert.Equal(t, "NY", loc.State)
	assert.True(t, loc.HasCoordinates())

	loc = InferLocation("no city here", "", "Chicago flair")
	require.NotNil(t, loc)
	assert.Equal(t, "Chicago", loc.City)

	assert.Nil(t, InferLocation("Dallasite problems", ""))

	loc = InferLocation("nothing", " rural Ohio ")
	require.NotNil(t, loc)
	assert.Equal(t, "rural Ohio", loc.Raw)

	// results never share coordinate pointers
	a := InferLocation("dallas", "")
	b := InferLocation("dallas", "")
	*a.Latitude = 0
	assert.Equal(t, 32.7767, *b.Latitude)
}

type stubSource struct {
	posts []models.Post
	err   error
	calls int32
	delay time.Duration
}

func (s *stubSource) GetName() string { return "stub" }
func (s *stubSource) IsEnabled() bool { return true }
func (s *stubSource) FetchPosts(ctx context.Context, query models.SourceQuery) ([]models.Post, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return s.posts, ctx.Err()
		}
	}
	return s.posts, s.err
}

func TestGuardedSource_WrapsErrorsKeepsPartialResults(t *testing.T) {
	stub := &stubSource{posts: []models.Post{{ID: "reddit_1"}}, err: errors.New("boom")}
	guarded := WithGuard(stub, time.Second, resilience.BreakerConfig{FailureThreshold: 3})

	posts, err := guarded.FetchPosts(context.Background(), models.SourceQuery{})
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	assert.Len(t, posts, 1)
	assert.Equal(t, "stub", guarded.GetName())
}

func TestGuardedSource_Timeout(t *testing.T) {
	stub := &stubSource{delay: time.Second}
	guarded := WithGuard(stub, 20*time.Millisecond, resilience.BreakerConfig{})

	_, err := guarded.FetchPosts(context.Background(), models.SourceQuery{})
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardedSource_BreakerOpens(t *testing.T) {
	stub := &stubSource{err: errors.New("down")}
	guarded := WithGuard(stub, time.Second, resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})

	for i := 0; i < 4; i++ {
		_, err := guarded.FetchPosts(context.Background(), models.SourceQuery{})
		assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.calls))
}
