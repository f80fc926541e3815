package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebudget/internal/models"
	"timebudget/internal/progress"
	"timebudget/internal/repository"
)

// fakeSessionRepo mirrors the store contract: the session insert and the
// conditional decrement succeed or fail together, the decrement clamps at
// zero and derives completion, and completed tasks match nothing.
type fakeSessionRepo struct {
	tasks    map[string]*models.Task
	sessions []models.WorkSession
	failures int // transient errors to return before succeeding
	calls    int
}

func (f *fakeSessionRepo) Record(_ context.Context, s *models.WorkSession) (*models.Task, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}

	t, ok := f.tasks[s.TaskID]
	if !ok || t.OwnerID != s.OwnerID {
		return nil, repository.ErrNotFound
	}
	if t.Completed {
		return nil, repository.ErrTaskCompleted
	}

	t.RemainingHours -= s.Duration
	if t.RemainingHours <= 0 {
		t.RemainingHours = 0
		t.Completed = true
	}
	t.UpdatedAt = s.CreatedAt
	f.sessions = append(f.sessions, *s)
	copied := *t
	return &copied, nil
}

func (f *fakeSessionRepo) ListByOwner(_ context.Context, ownerID int64, taskID string) ([]models.WorkSession, error) {
	var out []models.WorkSession
	for _, s := range f.sessions {
		if s.OwnerID == ownerID && (taskID == "" || s.TaskID == taskID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func newFixture(remaining float64) (*fakeSessionRepo, *sessionService) {
	repo := &fakeSessionRepo{tasks: map[string]*models.Task{
		"t1": {ID: "t1", OwnerID: 1, Title: "write report", EstimatedHours: 4, RemainingHours: remaining},
	}}
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return repo, svc
}

func request(duration float64) models.RecordSessionRequest {
	return models.RecordSessionRequest{
		TaskID:    "t1",
		StartTime: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
		Duration:  duration,
	}
}

func TestRecordValidation(t *testing.T) {
	_, svc := newFixture(4)
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	earlier := start.Add(-time.Hour)

	tests := []struct {
		name  string
		input models.RecordSessionRequest
	}{
		{"missing task id", models.RecordSessionRequest{StartTime: start, Duration: 1}},
		{"missing start", models.RecordSessionRequest{TaskID: "t1", Duration: 1}},
		{"zero duration", models.RecordSessionRequest{TaskID: "t1", StartTime: start}},
		{"negative duration", models.RecordSessionRequest{TaskID: "t1", StartTime: start, Duration: -2}},
		{"end before start", models.RecordSessionRequest{TaskID: "t1", StartTime: start, EndTime: &earlier, Duration: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Record(context.Background(), 1, tt.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRecordDerivesDurationFromInterval(t *testing.T) {
	repo, svc := newFixture(4)

	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	// the client-reported figure disagrees with the interval and loses
	session, task, err := svc.Record(context.Background(), 1, models.RecordSessionRequest{
		TaskID: "t1", StartTime: start, EndTime: &end, Duration: 8,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, session.Duration, 1e-9)
	assert.InDelta(t, 2.5, task.RemainingHours, 1e-9)
	require.Len(t, repo.sessions, 1)
}

func TestRecordScenario(t *testing.T) {
	_, svc := newFixture(4)

	_, task, err := svc.Record(context.Background(), 1, request(1.5))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, task.RemainingHours, 1e-9)
	assert.False(t, task.Completed)
	assert.InDelta(t, 37.5, task.Progress.Percent, 1e-9)

	_, task, err = svc.Record(context.Background(), 1, request(3.0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, task.RemainingHours)
	assert.True(t, task.Completed)
	assert.InDelta(t, 100, task.Progress.Percent, 1e-9)
	assert.Equal(t, progress.StatusDone, task.Progress.Status)
}

func TestRecordOrderIndependentUnderBudget(t *testing.T) {
	durations := []float64{0.5, 1.0, 1.5}
	orders := [][]int{{0, 1, 2}, {2, 0, 1}, {1, 2, 0}}

	for _, order := range orders {
		_, svc := newFixture(4)
		var task *models.Task
		var err error
		for _, i := range order {
			_, task, err = svc.Record(context.Background(), 1, request(durations[i]))
			require.NoError(t, err)
		}
		assert.InDelta(t, 1.0, task.RemainingHours, 1e-9)
		assert.False(t, task.Completed)
	}
}

func TestRecordNeverGoesNegative(t *testing.T) {
	_, svc := newFixture(4)

	_, task, err := svc.Record(context.Background(), 1, request(100))
	require.NoError(t, err)
	assert.Equal(t, 0.0, task.RemainingHours)
	assert.True(t, task.Completed)
}

func TestRecordOnCompletedTask(t *testing.T) {
	repo, svc := newFixture(4)
	repo.tasks["t1"].Completed = true

	_, _, err := svc.Record(context.Background(), 1, request(1))
	assert.ErrorIs(t, err, repository.ErrTaskCompleted)
	assert.Empty(t, repo.sessions)
	assert.Equal(t, 4.0, repo.tasks["t1"].RemainingHours)
}

func TestRecordUnknownOrForeignTask(t *testing.T) {
	repo, svc := newFixture(4)

	_, _, err := svc.Record(context.Background(), 2, request(1))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	input := request(1)
	input.TaskID = "nope"
	_, _, err = svc.Record(context.Background(), 1, input)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, repo.sessions)
}

func TestRecordRetriesTransientFailures(t *testing.T) {
	repo, svc := newFixture(4)
	repo.failures = 2

	_, task, err := svc.Record(context.Background(), 1, request(1))
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)
	assert.InDelta(t, 3.0, task.RemainingHours, 1e-9)
	require.Len(t, repo.sessions, 1)
}

func TestRecordGivesUpAfterBudget(t *testing.T) {
	repo, svc := newFixture(4)
	repo.failures = 10

	_, _, err := svc.Record(context.Background(), 1, request(1))
	require.Error(t, err)
	assert.Equal(t, recordAttempts, repo.calls)
	assert.Empty(t, repo.sessions)
}

func TestRecordDoesNotRetryNotFound(t *testing.T) {
	repo, svc := newFixture(4)

	input := request(1)
	input.TaskID = "nope"
	_, _, err := svc.Record(context.Background(), 1, input)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, repo.calls)
}
