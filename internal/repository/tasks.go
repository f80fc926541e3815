package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"timebudget/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var taskColumns = []string{
	"id", "owner_id", "title", "description", "estimated_hours",
	"remaining_hours", "completed", "target_date", "tags", "rolled_from",
	"created_at", "updated_at",
}

func columnList() string {
	return strings.Join(taskColumns, ", ")
}

type TaskRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.EstimatedHours,
		&t.RemainingHours, &t.Completed, &t.TargetDate, &t.Tags, &t.RolledFrom,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	query, args, err := r.builder.
		Insert("tasks").
		Columns(taskColumns...).
		Values(t.ID, t.OwnerID, t.Title, t.Description, t.EstimatedHours,
			t.RemainingHours, t.Completed, t.TargetDate, t.Tags, t.RolledFrom,
			t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string, ownerID int64) (*models.Task, error) {
	query, args, err := r.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTask(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListForDay returns the owner's tasks targeted inside [from, to], newest
// creation first.
func (r *TaskRepository) ListForDay(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Task, error) {
	return r.listBetween(ctx, ownerID, from, to, "created_at DESC")
}

// ListForRange returns the owner's tasks targeted inside [from, to] in
// schedule order.
func (r *TaskRepository) ListForRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Task, error) {
	return r.listBetween(ctx, ownerID, from, to, "target_date ASC")
}

func (r *TaskRepository) listBetween(ctx context.Context, ownerID int64, from, to time.Time, orderBy string) ([]models.Task, error) {
	query, args, err := r.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.GtOrEq{"target_date": from}).
		Where(squirrel.LtOrEq{"target_date": to}).
		OrderBy(orderBy).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update patches completed and/or remaining_hours. Nil fields stay untouched.
func (r *TaskRepository) Update(ctx context.Context, id string, ownerID int64, req models.UpdateTaskRequest, now time.Time) (*models.Task, error) {
	update := r.builder.
		Update("tasks").
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		Suffix("RETURNING " + columnList())

	if req.Completed != nil {
		update = update.Set("completed", *req.Completed)
	}
	if req.RemainingHours != nil {
		update = update.Set("remaining_hours", *req.RemainingHours)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTask(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string, ownerID int64) error {
	query, args, err := r.builder.
		Delete("tasks").
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindRolloverSources returns the owner's unfinished tasks targeted inside
// [from, to]: not completed and with effort budget still left.
func (r *TaskRepository) FindRolloverSources(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Task, error) {
	query, args, err := r.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"owner_id": ownerID, "completed": false}).
		Where(squirrel.Gt{"remaining_hours": 0}).
		Where(squirrel.GtOrEq{"target_date": from}).
		Where(squirrel.LtOrEq{"target_date": to}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// InsertContinuation inserts a rollover continuation. The unique constraint
// on (rolled_from, target_date) makes this the idempotency point: a second
// attempt for the same source task and day inserts nothing and reports false.
func (r *TaskRepository) InsertContinuation(ctx context.Context, t *models.Task) (bool, error) {
	query, args, err := r.builder.
		Insert("tasks").
		Columns(taskColumns...).
		Values(t.ID, t.OwnerID, t.Title, t.Description, t.EstimatedHours,
			t.RemainingHours, t.Completed, t.TargetDate, t.Tags, t.RolledFrom,
			t.CreatedAt, t.UpdatedAt).
		Suffix("ON CONFLICT ON CONSTRAINT tasks_rollover_once DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TaskRepository) CountByOwner(ctx context.Context, ownerID int64) (total, completed int, err error) {
	query, args, err := r.builder.
		Select("COUNT(*)", "COUNT(*) FILTER (WHERE completed)").
		From("tasks").
		Where(squirrel.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return 0, 0, err
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&total, &completed)
	return total, completed, err
}

func (r *TaskRepository) CountCompletedSince(ctx context.Context, ownerID int64, since time.Time) (int, error) {
	query, args, err := r.builder.
		Select("COUNT(*)").
		From("tasks").
		Where(squirrel.Eq{"owner_id": ownerID, "completed": true}).
		Where(squirrel.GtOrEq{"updated_at": since}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}
