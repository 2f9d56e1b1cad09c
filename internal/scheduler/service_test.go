package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// countingPoller counts polls; the cron runner calls it from its own goroutine
type countingPoller struct {
	calls atomic.Int32
}

func (p *countingPoller) Poll(ctx context.Context) ([]models.Alert, error) {
	p.calls.Add(1)
	return nil, nil
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) SweepPending(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

type MockDigest struct {
	mock.Mock
}

func (m *MockDigest) RunDigest(ctx context.Context, period string) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func TestStart_DigestUsesPeriod(t *testing.T) {
	digest := new(MockDigest)
	digest.On("RunDigest", mock.Anything, "weekly").Return(nil)

	service, err := NewService(&config.Config{TimeZone: "UTC", ReportSchedule: "weekly", PollInterval: time.Minute}, digest, nil, nil)
	require.NoError(t, err)
	require.NoError(t, service.Start())
	defer service.Stop()

	entries := service.cron.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()
	digest.AssertExpectations(t)
}

func TestDigestSchedule(t *testing.T) {
	assert.Equal(t, "0 0 9 * * *", DigestSchedule("daily"))
	assert.Equal(t, "0 0 9 * * MON", DigestSchedule("weekly"))
	assert.Empty(t, DigestSchedule("off"))
}

func TestNewService_InvalidTimeZone(t *testing.T) {
	_, err := NewService(&config.Config{TimeZone: "Mars/Olympus"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestStart_RegistersJobs(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		sweep    time.Duration
		jobs     int
	}{
		{name: "digest off", schedule: "off", sweep: time.Minute, jobs: 2},
		{name: "daily digest", schedule: "daily", sweep: time.Minute, jobs: 3},
		{name: "sweep disabled", schedule: "weekly", sweep: 0, jobs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				TimeZone:       "UTC",
				ReportSchedule: tt.schedule,
				PollInterval:   time.Hour,
				SweepInterval:  tt.sweep,
			}

			poller := &countingPoller{}
			service, err := NewService(cfg, new(MockDigest), poller, &countingSweeper{})
			require.NoError(t, err)
			require.NoError(t, service.Start())
			defer service.Stop()

			assert.Equal(t, tt.jobs, service.Jobs())
			assert.Eventually(t, func() bool {
				return poller.calls.Load() > 0
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestStart_RunsPollAndSweep(t *testing.T) {
	cfg := &config.Config{
		TimeZone:       "UTC",
		ReportSchedule: "off",
		PollInterval:   time.Second,
		SweepInterval:  time.Second,
	}

	poller := &countingPoller{}
	sweeper := &countingSweeper{}

	service, err := NewService(cfg, nil, poller, sweeper)
	require.NoError(t, err)
	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() > 0 && poller.calls.Load() > 1
	}, 3*time.Second, 50*time.Millisecond)
}
