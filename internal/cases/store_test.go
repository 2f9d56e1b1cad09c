package cases

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mapStorage is an in-memory storage.StorageInterface
type mapStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMapStorage() *mapStorage {
	return &mapStorage{objects: make(map[string][]byte)}
}

func (m *mapStorage) Store(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = append([]byte(nil), data...)
	return nil
}

func (m *mapStorage) Retrieve(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *mapStorage) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *mapStorage) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

// MockStorage is a mock implementation of storage.StorageInterface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, name string, data []byte) error {
	args := m.Called(ctx, name, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if names := args.Get(0); names != nil {
		return names.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"blob": func(t *testing.T) Store {
			s, err := NewBlobStore(context.Background(), newMapStorage())
			require.NoError(t, err)
			return s
		},
	}

	if dsn := os.Getenv("FEEDBACK_TEST_DATABASE_URL"); dsn != "" {
		factories["postgres"] = func(t *testing.T) Store {
			s, err := NewPostgresStore(context.Background(), dsn)
			require.NoError(t, err)
			_, err = s.db.Exec("TRUNCATE feedback_submissions CASCADE")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}
	}
	return factories
}

func newSubmission(problem string) models.Submission {
	return models.Submission{
		FeedbackID:  uuid.NewString(),
		Name:        "Jordan",
		Problem:     problem,
		SubmittedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func classified(sub models.Submission, priority models.Priority) models.FeedbackAnalysis {
	return models.FeedbackAnalysis{
		FeedbackID: sub.FeedbackID,
		Intake:     models.Intake{Classification: models.CategoryMobileApp, Summary: "App crash", Tags: []string{"app"}},
		Sentiment:  models.CaseSentiment{Tone: "frustrated"},
		Routing:    models.Routing{Priority: priority, Team: "Digital Experience", Actions: []models.RoutingAction{{Step: "Triage"}}},
		Insights:   models.Insights{Type: models.InsightCards, Flowchart: []models.FlowchartStep{}, Cards: []models.InsightCard{{Title: "t", Body: "b", Color: "#E20074"}}},
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			sub := newSubmission("App crashes on bill view")
			require.NoError(t, store.CreateSubmission(ctx, sub))

			_, err := store.GetAnalysis(ctx, sub.FeedbackID)
			assert.ErrorIs(t, err, models.ErrCaseNotClassified)

			_, _, err = store.Resolve(ctx, sub.FeedbackID)
			assert.ErrorIs(t, err, models.ErrCaseNotClassified)

			saved, err := store.SaveAnalysis(ctx, classified(sub, models.PriorityHigh))
			require.NoError(t, err)
			assert.Equal(t, "Jordan", saved.Name)
			assert.Equal(t, sub.Problem, saved.Problem)
			assert.False(t, saved.Resolved)
			assert.NotZero(t, saved.AnalyzedAt)
			assert.Equal(t, models.StateOpen, saved.State())

			_, err = store.SaveAnalysis(ctx, classified(sub, models.PriorityLow))
			assert.ErrorIs(t, err, models.ErrAlreadyClassified)

			got, err := store.GetAnalysis(ctx, sub.FeedbackID)
			require.NoError(t, err)
			assert.Equal(t, models.PriorityHigh, got.Routing.Priority)

			unresolved, err := store.ListUnresolved(ctx, 10)
			require.NoError(t, err)
			require.Len(t, unresolved, 1)

			resolved, changed, err := store.Resolve(ctx, sub.FeedbackID)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.True(t, resolved.Resolved)

			again, changed, err := store.Resolve(ctx, sub.FeedbackID)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.True(t, again.Resolved)
			assert.Equal(t, models.StateResolved, again.State())

			unresolved, err = store.ListUnresolved(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, unresolved)

			all, err := store.ListAnalyses(ctx, 10)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.True(t, all[0].Resolved)
		})
	}
}

func TestStore_UnknownCase(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			_, err := store.GetAnalysis(ctx, "missing")
			assert.ErrorIs(t, err, models.ErrCaseNotFound)

			_, _, err = store.Resolve(ctx, "missing")
			assert.ErrorIs(t, err, models.ErrCaseNotFound)

			_, err = store.SaveAnalysis(ctx, models.FeedbackAnalysis{FeedbackID: "missing"})
			assert.ErrorIs(t, err, models.ErrCaseNotFound)

			_, err = store.GetSubmission(ctx, "missing")
			assert.ErrorIs(t, err, models.ErrCaseNotFound)
		})
	}
}

func TestStore_ListOrderingAndLimits(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			var ids []string
			for i := 0; i < 4; i++ {
				sub := newSubmission("problem")
				sub.SubmittedAt = time.Now().UTC().Add(time.Duration(i-10) * time.Minute)
				require.NoError(t, store.CreateSubmission(ctx, sub))

				analysis := classified(sub, models.PriorityNormal)
				analysis.AnalyzedAt = int64(1_700_000_000 + i)
				_, err := store.SaveAnalysis(ctx, analysis)
				require.NoError(t, err)
				ids = append(ids, sub.FeedbackID)
			}

			_, _, err := store.Resolve(ctx, ids[3])
			require.NoError(t, err)

			unresolved, err := store.ListUnresolved(ctx, 2)
			require.NoError(t, err)
			require.Len(t, unresolved, 2)
			assert.Equal(t, ids[2], unresolved[0].FeedbackID)
			assert.Equal(t, ids[1], unresolved[1].FeedbackID)
			for _, a := range unresolved {
				assert.False(t, a.Resolved)
			}

			all, err := store.ListAnalyses(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, ids[3], all[0].FeedbackID)

			recent, err := store.RecentSubmissions(ctx, 3)
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, ids[3], recent[0].FeedbackID)
		})
	}
}

func TestStore_PendingSubmissions(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			old := newSubmission("old and unclassified")
			old.SubmittedAt = time.Now().UTC().Add(-10 * time.Minute)
			fresh := newSubmission("just arrived")
			fresh.SubmittedAt = time.Now().UTC()
			done := newSubmission("already classified")
			done.SubmittedAt = time.Now().UTC().Add(-20 * time.Minute)

			for _, sub := range []models.Submission{old, fresh, done} {
				require.NoError(t, store.CreateSubmission(ctx, sub))
			}
			_, err := store.SaveAnalysis(ctx, classified(done, models.PriorityLow))
			require.NoError(t, err)

			pending, err := store.PendingSubmissions(ctx, 2*time.Minute)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, old.FeedbackID, pending[0].FeedbackID)
		})
	}
}

func TestStore_ConcurrentIntakeWritesOnce(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			sub := newSubmission("race")
			require.NoError(t, store.CreateSubmission(ctx, sub))

			var wg sync.WaitGroup
			var mu sync.Mutex
			wins, dupes := 0, 0
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.SaveAnalysis(ctx, classified(sub, models.PriorityNormal))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, models.ErrAlreadyClassified):
						dupes++
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, wins)
			assert.Equal(t, 7, dupes)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sub := newSubmission("copy")
	require.NoError(t, store.CreateSubmission(ctx, sub))
	saved, err := store.SaveAnalysis(ctx, classified(sub, models.PriorityNormal))
	require.NoError(t, err)

	saved.Intake.Tags[0] = "mutated"
	saved.Routing.Priority = models.PriorityUrgent

	got, err := store.GetAnalysis(ctx, sub.FeedbackID)
	require.NoError(t, err)
	assert.Equal(t, "app", got.Intake.Tags[0])
	assert.Equal(t, models.PriorityNormal, got.Routing.Priority)
}

func TestBlobStore_ReloadsState(t *testing.T) {
	ctx := context.Background()
	backend := newMapStorage()

	first, err := NewBlobStore(ctx, backend)
	require.NoError(t, err)
	sub := newSubmission("persist me")
	pending := newSubmission("still pending")
	require.NoError(t, first.CreateSubmission(ctx, sub))
	require.NoError(t, first.CreateSubmission(ctx, pending))
	_, err = first.SaveAnalysis(ctx, classified(sub, models.PriorityHigh))
	require.NoError(t, err)
	_, _, err = first.Resolve(ctx, sub.FeedbackID)
	require.NoError(t, err)

	second, err := NewBlobStore(ctx, backend)
	require.NoError(t, err)

	got, err := second.GetAnalysis(ctx, sub.FeedbackID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)

	_, err = second.GetAnalysis(ctx, pending.FeedbackID)
	assert.ErrorIs(t, err, models.ErrCaseNotClassified)
}

func TestBlobStore_RollsBackFailedWrites(t *testing.T) {
	ctx := context.Background()
	backend := new(MockStorage)
	backend.On("List", mock.Anything, mock.Anything).Return([]string{}, nil)
	backend.On("Store", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, submissionPrefix)
	}), mock.Anything).Return(nil)
	backend.On("Store", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, analysisPrefix)
	}), mock.Anything).Return(errors.New("throttled"))

	store, err := NewBlobStore(ctx, backend)
	require.NoError(t, err)

	sub := newSubmission("rollback")
	require.NoError(t, store.CreateSubmission(ctx, sub))

	_, err = store.SaveAnalysis(ctx, classified(sub, models.PriorityNormal))
	assert.ErrorIs(t, err, models.ErrStoreWrite)

	// the failed intake write left the case unclassified so it can be retried
	_, err = store.GetAnalysis(ctx, sub.FeedbackID)
	assert.ErrorIs(t, err, models.ErrCaseNotClassified)
	pending, err := store.PendingSubmissions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestBlobStore_FailedSubmissionIsNotKept(t *testing.T) {
	ctx := context.Background()
	backend := new(MockStorage)
	backend.On("List", mock.Anything, mock.Anything).Return([]string{}, nil)
	backend.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("unavailable"))

	store, err := NewBlobStore(ctx, backend)
	require.NoError(t, err)

	sub := newSubmission("lost?")
	err = store.CreateSubmission(ctx, sub)
	assert.ErrorIs(t, err, models.ErrStoreWrite)

	_, err = store.GetSubmission(ctx, sub.FeedbackID)
	assert.ErrorIs(t, err, models.ErrCaseNotFound)
}
