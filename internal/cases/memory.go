package cases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

// MemoryStore keeps cases in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]submissionRecord
	analyses    map[string]analysisRecord
	seq         uint64
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]submissionRecord),
		analyses:    make(map[string]analysisRecord),
		now:         time.Now,
	}
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, sub models.Submission) error {
	if sub.FeedbackID == "" {
		return fmt.Errorf("%w: feedback id is required", models.ErrInvalidSubmission)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[sub.FeedbackID]; exists {
		return fmt.Errorf("%w: duplicate feedback id %s", models.ErrStoreWrite, sub.FeedbackID)
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now().UTC()
	}
	s.seq++
	s.submissions[sub.FeedbackID] = submissionRecord{submission: sub, seq: s.seq}
	return nil
}

func (s *MemoryStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.submissions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, id)
	}
	sub := record.submission
	return &sub, nil
}

func (s *MemoryStore) PendingSubmissions(ctx context.Context, olderThan time.Duration) ([]models.Submission, error) {
	cutoff := s.now().Add(-olderThan)

	s.mu.RLock()
	var records []submissionRecord
	for id, record := range s.submissions {
		if _, classified := s.analyses[id]; classified {
			continue
		}
		if record.submission.SubmittedAt.After(cutoff) {
			continue
		}
		records = append(records, record)
	}
	s.mu.RUnlock()

	sortSubmissions(records, false)
	return submissionsOf(records, 0), nil
}

func (s *MemoryStore) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	s.mu.RLock()
	records := make([]submissionRecord, 0, len(s.submissions))
	for _, record := range s.submissions {
		records = append(records, record)
	}
	s.mu.RUnlock()

	sortSubmissions(records, true)
	return submissionsOf(records, limit), nil
}

func (s *MemoryStore) SaveAnalysis(ctx context.Context, analysis models.FeedbackAnalysis) (*models.FeedbackAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[analysis.FeedbackID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, analysis.FeedbackID)
	}
	if _, exists := s.analyses[analysis.FeedbackID]; exists {
		return nil, fmt.Errorf("%w: %s", models.ErrAlreadyClassified, analysis.FeedbackID)
	}

	saved := prepareAnalysis(analysis, sub.submission, s.now())
	s.seq++
	s.analyses[saved.FeedbackID] = analysisRecord{analysis: saved, seq: s.seq}

	out := cloneAnalysis(saved)
	return &out, nil
}

func (s *MemoryStore) GetAnalysis(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAnalysisLocked(id)
}

func (s *MemoryStore) getAnalysisLocked(id string) (*models.FeedbackAnalysis, error) {
	record, ok := s.analyses[id]
	if !ok {
		if _, submitted := s.submissions[id]; submitted {
			return nil, fmt.Errorf("%w: %s", models.ErrCaseNotClassified, id)
		}
		return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, id)
	}
	out := cloneAnalysis(record.analysis)
	return &out, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, id string) (*models.FeedbackAnalysis, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.analyses[id]
	if !ok {
		_, err := s.getAnalysisLocked(id)
		return nil, false, err
	}

	changed := !record.analysis.Resolved
	if changed {
		record.analysis.Resolved = true
		s.analyses[id] = record
	}
	out := cloneAnalysis(record.analysis)
	return &out, changed, nil
}

func (s *MemoryStore) ListAnalyses(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	return s.list(limit, false), nil
}

func (s *MemoryStore) ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	return s.list(limit, true), nil
}

func (s *MemoryStore) list(limit int, unresolvedOnly bool) []models.FeedbackAnalysis {
	s.mu.RLock()
	records := make([]analysisRecord, 0, len(s.analyses))
	for _, record := range s.analyses {
		if unresolvedOnly && record.analysis.Resolved {
			continue
		}
		records = append(records, record)
	}
	s.mu.RUnlock()

	sortAnalyses(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	out := make([]models.FeedbackAnalysis, 0, len(records))
	for _, record := range records {
		out = append(out, cloneAnalysis(record.analysis))
	}
	return out
}

func (s *MemoryStore) Close() error {
	return nil
}

// restoreSubmission and restoreAnalysis load persisted state without the
// write-path checks
func (s *MemoryStore) restoreSubmission(sub models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.submissions[sub.FeedbackID] = submissionRecord{submission: sub, seq: s.seq}
}

func (s *MemoryStore) restoreAnalysis(analysis models.FeedbackAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.analyses[analysis.FeedbackID] = analysisRecord{analysis: cloneAnalysis(analysis), seq: s.seq}
}

func (s *MemoryStore) removeSubmission(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submissions, id)
}

func (s *MemoryStore) removeAnalysis(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.analyses, id)
}

func (s *MemoryStore) unresolve(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.analyses[id]; ok {
		record.analysis.Resolved = false
		s.analyses[id] = record
	}
}

func submissionsOf(records []submissionRecord, limit int) []models.Submission {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]models.Submission, 0, len(records))
	for _, record := range records {
		out = append(out, record.submission)
	}
	return out
}
