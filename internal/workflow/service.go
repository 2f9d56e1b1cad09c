// Package workflow drives direct submissions through the case pipeline:
// intake, queued classification, the single case write and resolution.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mhosigiri/FeedbackAI/internal/cases"
	"github.com/mhosigiri/FeedbackAI/internal/classifier"
	"github.com/mhosigiri/FeedbackAI/internal/metrics"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
)

// Service handles submission intake and case classification
type Service struct {
	store        cases.Store
	classifier   classifier.Classifier
	fallback     classifier.Classifier
	queue        TaskQueue
	pendingGrace time.Duration
	now          func() time.Time

	inFlight sync.Map
}

// NewService wires the pipeline. fallback may be nil; when set it classifies
// a case the primary classifier could not.
func NewService(store cases.Store, primary, fallback classifier.Classifier, queue TaskQueue, pendingGrace time.Duration) *Service {
	return &Service{
		store:        store,
		classifier:   primary,
		fallback:     fallback,
		queue:        queue,
		pendingGrace: pendingGrace,
		now:          time.Now,
	}
}

// Submit persists a submission in the Unclassified state and queues its
// classification. A failed enqueue is not an error; the pending sweep
// picks the submission up.
func (s *Service) Submit(ctx context.Context, req models.FeedbackRequest) (*models.Submission, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", models.ErrInvalidSubmission)
	}

	name := strings.TrimSpace(req.Author)
	if name == "" {
		name = models.DefaultName
	}

	sub := models.Submission{
		FeedbackID:   uuid.NewString(),
		Name:         name,
		Problem:      text,
		LocationHint: strings.TrimSpace(req.LocationHint),
		SubmittedAt:  s.now().UTC(),
	}

	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, models.ErrStoreWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrStoreWrite, err)
	}
	metrics.CasesSubmitted.Inc()

	logrus.WithField("feedback_id", sub.FeedbackID).Info("Feedback submitted")

	if err := s.queue.Enqueue(ctx, &ClassifyTask{FeedbackID: sub.FeedbackID}); err != nil {
		logrus.Warnf("Failed to enqueue classification of %s, leaving it for the sweep: %v", sub.FeedbackID, err)
	}

	return &sub, nil
}

// Process classifies one submission and performs the intake write. It is
// safe to call more than once for the same case.
func (s *Service) Process(ctx context.Context, task *ClassifyTask) error {
	id := task.FeedbackID
	if _, busy := s.inFlight.LoadOrStore(id, struct{}{}); busy {
		logrus.Debugf("Classification of %s already in flight", id)
		return nil
	}
	defer s.inFlight.Delete(id)

	_, err := s.store.GetAnalysis(ctx, id)
	switch {
	case err == nil:
		logrus.Debugf("Case %s already classified, skipping", id)
		return nil
	case !errors.Is(err, models.ErrCaseNotClassified):
		return err
	}

	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return err
	}

	analysis, err := s.classify(ctx, *sub)
	if err != nil {
		return err
	}

	saved, err := s.store.SaveAnalysis(ctx, *analysis)
	if errors.Is(err, models.ErrAlreadyClassified) {
		logrus.Debugf("Case %s was classified concurrently", id)
		return nil
	}
	if err != nil {
		return err
	}
	metrics.CasesClassified.Inc()

	logrus.WithFields(logrus.Fields{
		"feedback_id":    id,
		"classification": saved.Intake.Classification,
		"priority":       saved.Routing.Priority,
	}).Info("Case classified")
	return nil
}

func (s *Service) classify(ctx context.Context, sub models.Submission) (*models.FeedbackAnalysis, error) {
	analysis, err := s.classifier.ClassifyCase(ctx, sub)
	if err == nil || s.fallback == nil {
		return analysis, err
	}

	logrus.Warnf("%s classifier failed for %s, using %s: %v", s.classifier.Name(), sub.FeedbackID, s.fallback.Name(), err)
	return s.fallback.ClassifyCase(ctx, sub)
}

// SweepPending re-enqueues submissions left Unclassified past the grace
// period and returns how many were queued
func (s *Service) SweepPending(ctx context.Context) (int, error) {
	pending, err := s.store.PendingSubmissions(ctx, s.pendingGrace)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, sub := range pending {
		if err := s.queue.Enqueue(ctx, &ClassifyTask{FeedbackID: sub.FeedbackID}); err != nil {
			logrus.Warnf("Sweep could not enqueue %s: %v", sub.FeedbackID, err)
			continue
		}
		queued++
	}

	if queued > 0 {
		logrus.Infof("Re-enqueued %d pending submissions", queued)
	}
	return queued, nil
}

// Resolve closes a case; resolving a resolved case is a no-op
func (s *Service) Resolve(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	analysis, changed, err := s.store.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.CasesResolved.Inc()
		logrus.WithField("feedback_id", id).Info("Case resolved")
	}
	return analysis, nil
}

func (s *Service) GetAnalysis(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	return s.store.GetAnalysis(ctx, id)
}

func (s *Service) ListAnalyses(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	return s.store.ListAnalyses(ctx, limit)
}

// ListUnresolved returns Open cases, most recently analyzed first
func (s *Service) ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	return s.store.ListUnresolved(ctx, limit)
}

// Queue exposes the task queue so callers can report whether it is async
func (s *Service) Queue() TaskQueue {
	return s.queue
}
