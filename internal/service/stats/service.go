package stats

import (
	"context"
	"math"
	"time"

	"timebudget/internal/models"
)

// Aggregation windows mirror the dashboard: a rolling week and month.
const (
	weekWindow  = 7 * 24 * time.Hour
	monthWindow = 30 * 24 * time.Hour
)

type taskRepository interface {
	CountByOwner(ctx context.Context, ownerID int64) (total, completed int, err error)
	CountCompletedSince(ctx context.Context, ownerID int64, since time.Time) (int, error)
}

type sessionRepository interface {
	HoursSince(ctx context.Context, ownerID int64, since time.Time) (float64, error)
}

type statsService struct {
	tasks    taskRepository
	sessions sessionRepository
	now      func() time.Time
}

func NewService(t taskRepository, s sessionRepository) *statsService {
	return &statsService{tasks: t, sessions: s, now: time.Now}
}

// Compute aggregates the owner's logged hours and completion counts. It only
// reads what the recorder and rollover produced; nothing here feeds back into
// them.
func (s *statsService) Compute(ctx context.Context, ownerID int64) (*models.Stats, error) {
	now := s.now().UTC()
	weekAgo := now.Add(-weekWindow)
	monthAgo := now.Add(-monthWindow)

	weeklyHours, err := s.sessions.HoursSince(ctx, ownerID, weekAgo)
	if err != nil {
		return nil, err
	}
	monthlyHours, err := s.sessions.HoursSince(ctx, ownerID, monthAgo)
	if err != nil {
		return nil, err
	}
	completedThisWeek, err := s.tasks.CountCompletedSince(ctx, ownerID, weekAgo)
	if err != nil {
		return nil, err
	}
	total, completed, err := s.tasks.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var rate float64
	if total > 0 {
		rate = float64(completed) / float64(total) * 100
	}

	return &models.Stats{
		WeeklyHours:            round(weeklyHours, 2),
		MonthlyHours:           round(monthlyHours, 2),
		CompletedTasksThisWeek: completedThisWeek,
		TotalTasks:             total,
		CompletedTasks:         completed,
		CompletionRate:         round(rate, 1),
	}, nil
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
