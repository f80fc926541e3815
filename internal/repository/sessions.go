package repository

import (
	"context"
	"errors"
	"time"

	"timebudget/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var sessionColumns = []string{
	"id", "task_id", "owner_id", "start_time", "end_time", "duration", "created_at",
}

type SessionRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record inserts the session and applies its duration to the owning task in
// one transaction. The decrement is a single conditional UPDATE so the new
// remaining value is computed by the store against the row's current state,
// never from a value read earlier; concurrent recordings cannot lose updates.
// A completed task matches no row and the whole unit rolls back.
func (r *SessionRepository) Record(ctx context.Context, s *models.WorkSession) (*models.Task, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query, args, err := r.builder.
		Insert("work_sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.TaskID, s.OwnerID, s.StartTime, s.EndTime, s.Duration, s.CreatedAt).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return nil, err
	}

	query, args, err = r.builder.
		Update("tasks").
		Set("remaining_hours", squirrel.Expr("GREATEST(remaining_hours - ?, 0)", s.Duration)).
		Set("completed", squirrel.Expr("remaining_hours - ? <= 0", s.Duration)).
		Set("updated_at", s.CreatedAt).
		Where(squirrel.Eq{"id": s.TaskID, "owner_id": s.OwnerID, "completed": false}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, err
	}

	task, err := scanTask(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMiss(ctx, tx, s.TaskID, s.OwnerID)
		}
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

// classifyMiss decides why the conditional update matched nothing.
func (r *SessionRepository) classifyMiss(ctx context.Context, tx pgx.Tx, taskID string, ownerID int64) error {
	query, args, err := r.builder.
		Select("completed").
		From("tasks").
		Where(squirrel.Eq{"id": taskID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return err
	}

	var completed bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&completed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if completed {
		return ErrTaskCompleted
	}
	return ErrNotFound
}

// ListByOwner returns the owner's sessions, most recent first, optionally
// narrowed to one task.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID int64, taskID string) ([]models.WorkSession, error) {
	sel := r.builder.
		Select(sessionColumns...).
		From("work_sessions").
		Where(squirrel.Eq{"owner_id": ownerID}).
		OrderBy("start_time DESC")
	if taskID != "" {
		sel = sel.Where(squirrel.Eq{"task_id": taskID})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	return r.querySessions(ctx, query, args)
}

// ListByTaskIDs fetches sessions for a batch of tasks keyed by task id.
func (r *SessionRepository) ListByTaskIDs(ctx context.Context, ownerID int64, taskIDs []string) (map[string][]models.WorkSession, error) {
	if len(taskIDs) == 0 {
		return map[string][]models.WorkSession{}, nil
	}

	query, args, err := r.builder.
		Select(sessionColumns...).
		From("work_sessions").
		Where(squirrel.Eq{"owner_id": ownerID, "task_id": taskIDs}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	sessions, err := r.querySessions(ctx, query, args)
	if err != nil {
		return nil, err
	}

	byTask := make(map[string][]models.WorkSession, len(taskIDs))
	for _, s := range sessions {
		byTask[s.TaskID] = append(byTask[s.TaskID], s)
	}
	return byTask, nil
}

// HoursSince sums logged durations starting at or after the cutoff.
func (r *SessionRepository) HoursSince(ctx context.Context, ownerID int64, since time.Time) (float64, error) {
	query, args, err := r.builder.
		Select("COALESCE(SUM(duration), 0)").
		From("work_sessions").
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.GtOrEq{"start_time": since}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var hours float64
	err = r.db.QueryRow(ctx, query, args...).Scan(&hours)
	return hours, err
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args []interface{}) ([]models.WorkSession, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.WorkSession
	for rows.Next() {
		var s models.WorkSession
		if err := rows.Scan(&s.ID, &s.TaskID, &s.OwnerID, &s.StartTime, &s.EndTime, &s.Duration, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
