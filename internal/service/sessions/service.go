package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timebudget/internal/models"
	"timebudget/internal/progress"
	"timebudget/internal/repository"
)

var ErrValidation = errors.New("invalid session input")

// recordAttempts bounds internal retries of the atomic record unit on
// transient store failures. Retrying is safe: the unit either committed or
// left nothing behind.
const recordAttempts = 3

type sessionRepository interface {
	Record(ctx context.Context, s *models.WorkSession) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID int64, taskID string) ([]models.WorkSession, error)
}

type sessionService struct {
	repo sessionRepository
	now  func() time.Time
}

func NewService(r sessionRepository) *sessionService {
	return &sessionService{repo: r, now: time.Now}
}

// Record persists a finished work session and applies its duration to the
// owning task. When the client supplies an end time the duration is
// recomputed from the interval server-side; the client-reported figure is
// only trusted for sessions saved with the timer still open.
func (s *sessionService) Record(ctx context.Context, ownerID int64, input models.RecordSessionRequest) (*models.WorkSession, *models.Task, error) {
	if input.TaskID == "" {
		return nil, nil, fmt.Errorf("%w: task id is required", ErrValidation)
	}
	if input.StartTime.IsZero() {
		return nil, nil, fmt.Errorf("%w: start time is required", ErrValidation)
	}

	duration := input.Duration
	if input.EndTime != nil {
		if input.EndTime.Before(input.StartTime) {
			return nil, nil, fmt.Errorf("%w: end time precedes start time", ErrValidation)
		}
		duration = input.EndTime.Sub(input.StartTime).Hours()
	}
	if duration <= 0 {
		return nil, nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	session := &models.WorkSession{
		ID:        uuid.New().String(),
		TaskID:    input.TaskID,
		OwnerID:   ownerID,
		StartTime: input.StartTime.UTC(),
		EndTime:   input.EndTime,
		Duration:  duration,
		CreatedAt: s.now().UTC(),
	}

	var task *models.Task
	var err error
	for attempt := 1; attempt <= recordAttempts; attempt++ {
		task, err = s.repo.Record(ctx, session)
		if err == nil || !retryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	if err != nil {
		return nil, nil, err
	}

	task.Progress = progress.Describe(task.EstimatedHours, task.RemainingHours, task.Completed)
	return session, task, nil
}

func (s *sessionService) List(ctx context.Context, ownerID int64, taskID string) ([]models.WorkSession, error) {
	return s.repo.ListByOwner(ctx, ownerID, taskID)
}

func retryable(err error) bool {
	return !errors.Is(err, repository.ErrNotFound) &&
		!errors.Is(err, repository.ErrTaskCompleted) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
