package rollover

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebudget/internal/models"
	"timebudget/internal/utils"
)

// fakeTaskRepo keeps the uniqueness rule the store enforces: one
// continuation per (source task, target day).
type fakeTaskRepo struct {
	tasks  []models.Task
	rolled map[string]bool // sourceID + day
}

func newFakeTaskRepo(tasks ...models.Task) *fakeTaskRepo {
	return &fakeTaskRepo{tasks: tasks, rolled: map[string]bool{}}
}

func (f *fakeTaskRepo) FindRolloverSources(_ context.Context, ownerID int64, from, to time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.OwnerID == ownerID && !t.Completed && t.RemainingHours > 0 &&
			!t.TargetDate.Before(from) && !t.TargetDate.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) InsertContinuation(_ context.Context, t *models.Task) (bool, error) {
	key := *t.RolledFrom + "@" + t.TargetDate.Format("2006-01-02")
	if f.rolled[key] {
		return false, nil
	}
	f.rolled[key] = true
	f.tasks = append(f.tasks, *t)
	return true, nil
}

type fakeUserRepo struct{ ids []int64 }

func (f *fakeUserRepo) ListIDs(context.Context) ([]int64, error) { return f.ids, nil }

var (
	asOf      = time.Date(2024, 3, 16, 8, 30, 0, 0, time.UTC)
	yesterday = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

func sourceTask(id string, owner int64, remaining float64, completed bool) models.Task {
	return models.Task{
		ID:             id,
		OwnerID:        owner,
		Title:          "write report",
		Description:    "quarterly numbers",
		EstimatedHours: 4,
		RemainingHours: remaining,
		Completed:      completed,
		TargetDate:     yesterday,
		Tags:           []string{"work"},
	}
}

func newService(repo *fakeTaskRepo) *rolloverService {
	svc := NewService(repo, &fakeUserRepo{})
	svc.now = func() time.Time { return asOf }
	return svc
}

func TestRunCarriesUnfinishedTasksForward(t *testing.T) {
	repo := newFakeTaskRepo(sourceTask("t1", 1, 2.5, false))
	svc := newService(repo)

	result, err := svc.Run(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SourcesConsidered)
	require.Len(t, result.Created, 1)

	cont := result.Created[0]
	assert.Equal(t, "write report (Continued)", cont.Title)
	assert.Equal(t, "quarterly numbers", cont.Description)
	assert.Equal(t, 2.5, cont.EstimatedHours)
	assert.Equal(t, 2.5, cont.RemainingHours)
	assert.False(t, cont.Completed)
	assert.Equal(t, utils.NoonOfDay(asOf), cont.TargetDate)
	assert.Equal(t, []string{"work"}, cont.Tags)
	require.NotNil(t, cont.RolledFrom)
	assert.Equal(t, "t1", *cont.RolledFrom)
	assert.NotEqual(t, "t1", cont.ID)
}

func TestRunIsIdempotent(t *testing.T) {
	repo := newFakeTaskRepo(sourceTask("t1", 1, 2.5, false))
	svc := newService(repo)

	first, err := svc.Run(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := svc.Run(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 1, second.SourcesConsidered)
}

func TestRunSkipsFinishedTasks(t *testing.T) {
	repo := newFakeTaskRepo(
		sourceTask("done", 1, 0, true),
		sourceTask("manually-done", 1, 3, true),
		sourceTask("drained", 1, 0, false),
		sourceTask("open", 1, 1.5, false),
	)
	svc := newService(repo)

	result, err := svc.Run(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SourcesConsidered)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "open", *result.Created[0].RolledFrom)
}

func TestRunIgnoresOtherOwnersAndDays(t *testing.T) {
	older := sourceTask("old", 1, 2, false)
	older.TargetDate = yesterday.AddDate(0, 0, -1)
	repo := newFakeTaskRepo(
		sourceTask("foreign", 2, 2, false),
		older,
	)
	svc := newService(repo)

	result, err := svc.Run(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Zero(t, result.SourcesConsidered)
	assert.Empty(t, result.Created)
}

func TestSweepRunsEveryUser(t *testing.T) {
	repo := newFakeTaskRepo(
		sourceTask("u1", 1, 2, false),
		sourceTask("u2", 2, 3, false),
	)
	svc := NewService(repo, &fakeUserRepo{ids: []int64{1, 2}})
	svc.now = func() time.Time { return asOf }

	require.NoError(t, svc.Sweep(context.Background(), asOf))
	assert.True(t, repo.rolled["u1@2024-03-16"])
	assert.True(t, repo.rolled["u2@2024-03-16"])
}
