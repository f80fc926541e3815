package rollover

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"timebudget/internal/models"
	"timebudget/internal/progress"
	"timebudget/internal/utils"
)

const continuedSuffix = " (Continued)"

type taskRepository interface {
	FindRolloverSources(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Task, error)
	InsertContinuation(ctx context.Context, t *models.Task) (bool, error)
}

type userRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

type rolloverService struct {
	tasks taskRepository
	users userRepository
	now   func() time.Time
}

func NewService(t taskRepository, u userRepository) *rolloverService {
	return &rolloverService{tasks: t, users: u, now: time.Now}
}

// Run carries the owner's unfinished tasks from the day before asOf into
// asOf's day. Each source task gets at most one continuation per day: the
// store's uniqueness constraint absorbs repeated or racing invocations, so
// a second call for the same day creates nothing. Source tasks are left
// untouched; the continuation's back-reference is what marks them rolled.
func (s *rolloverService) Run(ctx context.Context, ownerID int64, asOf time.Time) (*models.RolloverResult, error) {
	from, to := utils.DayWindow(asOf.UTC().AddDate(0, 0, -1))

	sources, err := s.tasks.FindRolloverSources(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}

	result := &models.RolloverResult{
		Created:           []models.Task{},
		SourcesConsidered: len(sources),
	}

	now := s.now().UTC()
	for _, src := range sources {
		srcID := src.ID
		cont := models.Task{
			ID:          uuid.New().String(),
			OwnerID:     ownerID,
			Title:       src.Title + continuedSuffix,
			Description: src.Description,
			// the continuation's budget is exactly what was left
			EstimatedHours: src.RemainingHours,
			RemainingHours: src.RemainingHours,
			Completed:      false,
			TargetDate:     utils.NoonOfDay(asOf),
			Tags:           append([]string(nil), src.Tags...),
			RolledFrom:     &srcID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		inserted, err := s.tasks.InsertContinuation(ctx, &cont)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// already rolled for this day, by us or by a racing call
			continue
		}
		cont.Progress = progress.Describe(cont.EstimatedHours, cont.RemainingHours, cont.Completed)
		result.Created = append(result.Created, cont)
	}
	return result, nil
}

// Sweep runs rollover for every user. The scheduled job calls this; a
// failing user does not stop the sweep.
func (s *rolloverService) Sweep(ctx context.Context, asOf time.Time) error {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		result, err := s.Run(ctx, id, asOf)
		if err != nil {
			log.Printf("rollover sweep: user %d: %v", id, err)
			continue
		}
		if len(result.Created) > 0 {
			log.Printf("rollover sweep: user %d: carried %d of %d tasks forward",
				id, len(result.Created), result.SourcesConsidered)
		}
	}
	return nil
}
