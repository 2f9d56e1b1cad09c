package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/metrics"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
)

// Alerter sends urgent-case alerts
type Alerter interface {
	SendAlert(ctx context.Context, alert *models.Alert) error
}

// UnresolvedLister is the read side of the unresolved queue
type UnresolvedLister interface {
	ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error)
}

// Poller watches the unresolved queue and alerts on escalated cases the
// first time they appear. The first poll only records what is already open.
type Poller struct {
	lister  UnresolvedLister
	alerter Alerter

	mu     sync.Mutex
	seen   map[string]struct{}
	primed bool
	now    func() time.Time
}

func NewPoller(lister UnresolvedLister, alerter Alerter) *Poller {
	return &Poller{
		lister:  lister,
		alerter: alerter,
		seen:    make(map[string]struct{}),
		now:     time.Now,
	}
}

// Poll reads the unresolved queue once and returns the alerts it sent
func (p *Poller) Poll(ctx context.Context) ([]models.Alert, error) {
	open, err := p.lister.ListUnresolved(ctx, 0)
	if err != nil {
		return nil, err
	}
	metrics.UnresolvedCases.Set(float64(len(open)))

	p.mu.Lock()
	current := make(map[string]struct{}, len(open))
	var fresh []models.FeedbackAnalysis
	for _, c := range open {
		current[c.FeedbackID] = struct{}{}
		if _, ok := p.seen[c.FeedbackID]; ok {
			continue
		}
		if p.primed && c.Routing.Priority.Escalated() {
			fresh = append(fresh, c)
		}
	}
	// resolved cases drop out so the set stays bounded
	p.seen = current
	primed := p.primed
	p.primed = true
	p.mu.Unlock()

	if !primed {
		logrus.Infof("Unresolved queue primed with %d open cases", len(open))
		return nil, nil
	}

	alerts := make([]models.Alert, 0, len(fresh))
	for i := range fresh {
		alert := newCaseAlert(&fresh[i], p.now())
		if p.alerter != nil {
			if err := p.alerter.SendAlert(ctx, &alert); err != nil {
				logrus.Errorf("Failed to send alert for case %s: %v", alert.Case.FeedbackID, err)
				continue
			}
		}
		alerts = append(alerts, alert)
	}

	if len(alerts) > 0 {
		logrus.Infof("Sent %d urgent case alerts", len(alerts))
	}
	return alerts, nil
}

func newCaseAlert(c *models.FeedbackAnalysis, now time.Time) models.Alert {
	alertType := "urgent"
	if c.Routing.Priority == models.PriorityUrgent {
		alertType = "critical"
	}

	return models.Alert{
		ID:        "case_" + c.FeedbackID,
		Type:      alertType,
		Title:     fmt.Sprintf("%s priority %s case for %s", c.Routing.Priority, c.Intake.Classification, c.Routing.Team),
		Message:   c.Intake.Summary,
		Case:      c,
		CreatedAt: now.UTC(),
	}
}
