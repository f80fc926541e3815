package models

import (
	"time"

	"timebudget/internal/progress"
)

// Task is a unit of planned work with an effort budget, scheduled for one day.
// RemainingHours starts at EstimatedHours and only shrinks as sessions are
// recorded. RolledFrom points at the source task when this task was created by
// the daily rollover.
type Task struct {
	ID             string          `json:"id"`
	OwnerID        int64           `json:"owner_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	EstimatedHours float64         `json:"estimated_hours"`
	RemainingHours float64         `json:"remaining_hours"`
	Completed      bool            `json:"completed"`
	TargetDate     time.Time       `json:"target_date"`
	Tags           []string        `json:"tags"`
	RolledFrom     *string         `json:"rolled_from,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Sessions       []WorkSession   `json:"work_sessions,omitempty"`
	Progress       progress.Report `json:"progress"`
}

// WorkSession is a single timed interval of work applied against one task.
// Sessions are append-only: created once, never mutated or deleted.
type WorkSession struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	OwnerID   int64      `json:"owner_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  float64    `json:"duration"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateTaskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EstimatedHours float64  `json:"estimated_hours"`
	TargetDate     string   `json:"target_date"` // YYYY-MM-DD
	Tags           []string `json:"tags"`
}

// UpdateTaskRequest patches a task. Nil fields are left untouched; toggling
// Completed never changes RemainingHours and vice versa.
type UpdateTaskRequest struct {
	Completed      *bool    `json:"completed"`
	RemainingHours *float64 `json:"remaining_hours"`
}

type RecordSessionRequest struct {
	TaskID    string     `json:"task_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  float64    `json:"duration"`
}

type RolloverResult struct {
	Created           []Task `json:"tasks"`
	SourcesConsidered int    `json:"original_tasks"`
}

type Stats struct {
	WeeklyHours            float64 `json:"weekly_hours"`
	MonthlyHours           float64 `json:"monthly_hours"`
	CompletedTasksThisWeek int     `json:"completed_tasks_this_week"`
	TotalTasks             int     `json:"total_tasks"`
	CompletedTasks         int     `json:"completed_tasks"`
	CompletionRate         float64 `json:"completion_rate"`
}
