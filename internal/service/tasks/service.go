package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timebudget/internal/models"
	"timebudget/internal/progress"
	"timebudget/internal/utils"
)

var ErrValidation = errors.New("invalid task input")

const targetDateLayout = "2006-01-02"

type taskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id string, ownerID int64) (*models.Task, error)
	Update(ctx context.Context, id string, ownerID int64, req models.UpdateTaskRequest, now time.Time) (*models.Task, error)
	Delete(ctx context.Context, id string, ownerID int64) error
	ListForDay(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Task, error)
	ListForRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Task, error)
}

type sessionRepository interface {
	ListByTaskIDs(ctx context.Context, ownerID int64, taskIDs []string) (map[string][]models.WorkSession, error)
}

type taskService struct {
	repo     taskRepository
	sessions sessionRepository
	now      func() time.Time
}

func NewService(r taskRepository, s sessionRepository) *taskService {
	return &taskService{repo: r, sessions: s, now: time.Now}
}

func (s *taskService) Create(ctx context.Context, ownerID int64, input models.CreateTaskRequest) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.EstimatedHours <= 0 {
		return nil, fmt.Errorf("%w: estimated hours must be positive", ErrValidation)
	}
	targetDate, err := time.Parse(targetDateLayout, input.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("%w: target date must be YYYY-MM-DD", ErrValidation)
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		EstimatedHours: input.EstimatedHours,
		RemainingHours: input.EstimatedHours,
		Completed:      false,
		TargetDate:     utils.NoonOfDay(targetDate),
		Tags:           normalizeTags(input.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	decorate(task)
	return task, nil
}

// Update applies a manual patch: toggling completed, adjusting remaining
// hours, or both. Marking a task complete deliberately leaves its remaining
// hours alone; the flag is an override, not a derived value.
func (s *taskService) Update(ctx context.Context, id string, ownerID int64, input models.UpdateTaskRequest) (*models.Task, error) {
	if input.RemainingHours != nil && *input.RemainingHours < 0 {
		return nil, fmt.Errorf("%w: remaining hours cannot be negative", ErrValidation)
	}
	if input.Completed == nil && input.RemainingHours == nil {
		task, err := s.repo.GetByID(ctx, id, ownerID)
		if err != nil {
			return nil, err
		}
		decorate(task)
		return task, nil
	}

	task, err := s.repo.Update(ctx, id, ownerID, input, s.now().UTC())
	if err != nil {
		return nil, err
	}
	decorate(task)
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, id string, ownerID int64) error {
	return s.repo.Delete(ctx, id, ownerID)
}

// ListForDay returns the owner's tasks for one calendar day with their
// recorded sessions attached.
func (s *taskService) ListForDay(ctx context.Context, ownerID int64, date time.Time) ([]models.Task, error) {
	from, to := utils.DayWindow(date)
	tasks, err := s.repo.ListForDay(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	byTask, err := s.sessions.ListByTaskIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}

	for i := range tasks {
		tasks[i].Sessions = byTask[tasks[i].ID]
		decorate(&tasks[i])
	}
	return tasks, nil
}

// ListForRange returns the owner's tasks scheduled inside [start, end] in
// target-date order, sessions omitted.
func (s *taskService) ListForRange(ctx context.Context, ownerID int64, start, end time.Time) ([]models.Task, error) {
	from := utils.StartOfDay(start)
	to := utils.EndOfDay(end)
	tasks, err := s.repo.ListForRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		decorate(&tasks[i])
	}
	return tasks, nil
}

func decorate(t *models.Task) {
	t.Progress = progress.Describe(t.EstimatedHours, t.RemainingHours, t.Completed)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
