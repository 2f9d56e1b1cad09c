package cases

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/mhosigiri/FeedbackAI/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	submissionPrefix = "submissions/"
	analysisPrefix   = "analyses/"
)

// BlobStore writes every case through to object storage and serves reads
// from memory. State is loaded from storage once at start-up.
type BlobStore struct {
	mem     *MemoryStore
	storage storage.StorageInterface
}

var _ Store = (*BlobStore)(nil)

// NewBlobStore loads persisted submissions and analyses from storage
func NewBlobStore(ctx context.Context, backend storage.StorageInterface) (*BlobStore, error) {
	s := &BlobStore{
		mem:     NewMemoryStore(),
		storage: backend,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BlobStore) load(ctx context.Context) error {
	names, err := s.storage.List(ctx, submissionPrefix)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}
	submissions := 0
	for _, name := range names {
		var sub models.Submission
		if err := s.read(ctx, name, &sub); err != nil {
			logrus.Warnf("Skipping unreadable submission %s: %v", name, err)
			continue
		}
		s.mem.restoreSubmission(sub)
		submissions++
	}

	names, err = s.storage.List(ctx, analysisPrefix)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}
	loaded := 0
	for _, name := range names {
		var analysis models.FeedbackAnalysis
		if err := s.read(ctx, name, &analysis); err != nil {
			logrus.Warnf("Skipping unreadable analysis %s: %v", name, err)
			continue
		}
		s.mem.restoreAnalysis(analysis)
		loaded++
	}

	logrus.Infof("Loaded %d submissions and %d analyses from storage", submissions, loaded)
	return nil
}

func (s *BlobStore) read(ctx context.Context, name string, v interface{}) error {
	data, err := s.storage.Retrieve(ctx, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *BlobStore) write(ctx context.Context, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.storage.Store(ctx, name, data)
}

func submissionKey(id string) string {
	return submissionPrefix + strings.ReplaceAll(id, "/", "_") + ".json"
}

func analysisKey(id string) string {
	return analysisPrefix + strings.ReplaceAll(id, "/", "_") + ".json"
}

func (s *BlobStore) CreateSubmission(ctx context.Context, sub models.Submission) error {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.mem.now().UTC()
	}
	if err := s.mem.CreateSubmission(ctx, sub); err != nil {
		return err
	}
	if err := s.write(ctx, submissionKey(sub.FeedbackID), sub); err != nil {
		s.mem.removeSubmission(sub.FeedbackID)
		return fmt.Errorf("%w: %w", models.ErrStoreWrite, err)
	}
	return nil
}

func (s *BlobStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	return s.mem.GetSubmission(ctx, id)
}

func (s *BlobStore) PendingSubmissions(ctx context.Context, olderThan time.Duration) ([]models.Submission, error) {
	return s.mem.PendingSubmissions(ctx, olderThan)
}

func (s *BlobStore) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	return s.mem.RecentSubmissions(ctx, limit)
}

// SaveAnalysis claims the intake slot in memory first so concurrent writers
// see models.ErrAlreadyClassified, then persists it
func (s *BlobStore) SaveAnalysis(ctx context.Context, analysis models.FeedbackAnalysis) (*models.FeedbackAnalysis, error) {
	saved, err := s.mem.SaveAnalysis(ctx, analysis)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, analysisKey(saved.FeedbackID), saved); err != nil {
		s.mem.removeAnalysis(saved.FeedbackID)
		return nil, fmt.Errorf("%w: %w", models.ErrStoreWrite, err)
	}
	return saved, nil
}

func (s *BlobStore) GetAnalysis(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	return s.mem.GetAnalysis(ctx, id)
}

func (s *BlobStore) Resolve(ctx context.Context, id string) (*models.FeedbackAnalysis, bool, error) {
	resolved, changed, err := s.mem.Resolve(ctx, id)
	if err != nil || !changed {
		return resolved, changed, err
	}
	if err := s.write(ctx, analysisKey(id), resolved); err != nil {
		s.mem.unresolve(id)
		return nil, false, fmt.Errorf("%w: %w", models.ErrStoreWrite, err)
	}
	return resolved, true, nil
}

func (s *BlobStore) ListAnalyses(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	return s.mem.ListAnalyses(ctx, limit)
}

func (s *BlobStore) ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	return s.mem.ListUnresolved(ctx, limit)
}

func (s *BlobStore) Close() error {
	return nil
}
