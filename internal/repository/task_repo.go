package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskhub/internal/model"
)

// TaskFilter narrows task list queries. Predicates are pushed into the
// SQL WHERE clause so no unbounded result set is loaded and filtered in
// memory. OwnedBy matches tasks the user is assignee or creator of.
type TaskFilter struct {
	AssigneeID *int
	CreatorID  *int
	ProjectID  *int
	Status     *string
	OwnedBy    *int
}

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `
        id, title, description, due_date, status, assigned_to, project_id, created_by, created_at, updated_at
`

func (r *TaskRepository) GetByID(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var t model.Task
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.Status,
		&t.AssignedTo,
		&t.ProjectID,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to query task", zap.Int("task_id", id), zap.Error(err))
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (r *TaskRepository) List(ctx context.Context, f TaskFilter) ([]model.Task, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.AssigneeID != nil {
		where = append(where, "assigned_to = "+arg(*f.AssigneeID))
	}
	if f.CreatorID != nil {
		where = append(where, "created_by = "+arg(*f.CreatorID))
	}
	if f.ProjectID != nil {
		where = append(where, "project_id = "+arg(*f.ProjectID))
	}
	if f.Status != nil {
		where = append(where, "status = "+arg(*f.Status))
	}
	if f.OwnedBy != nil {
		p := arg(*f.OwnedBy)
		where = append(where, "(assigned_to = "+p+" OR created_by = "+p+")")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.DueDate,
			&t.Status,
			&t.AssignedTo,
			&t.ProjectID,
			&t.CreatedBy,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) (int, error) {
	query := `
        INSERT INTO tasks (title, description, due_date, status, assigned_to, project_id, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.AssignedTo,
		t.ProjectID,
		t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return 0, fmt.Errorf("insert task: %w", err)
	}
	r.logger.Info("Task created", zap.Int("task_id", t.ID), zap.Int("assigned_to", t.AssignedTo))
	return t.ID, nil
}

// Update overwrites all mutable fields of the task row. The status log
// for plain updates is written by the caller, which knows the prior
// stored status.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	query := `
        UPDATE tasks
        SET title = $2, description = $3, due_date = $4, status = $5,
            assigned_to = $6, project_id = $7, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.AssignedTo,
		t.ProjectID,
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Int("task_id", t.ID), zap.Error(err))
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateStatusWithLog writes the new status and appends the transition
// record in one transaction. Either both rows change or neither does.
func (r *TaskRepository) UpdateStatusWithLog(ctx context.Context, taskID int, oldStatus, newStatus string, changedBy int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		taskID, newStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update task status", zap.Int("task_id", taskID), zap.Error(err))
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO task_logs (task_id, old_status, new_status, changed_by) VALUES ($1, $2, $3, $4)`,
		taskID, oldStatus, newStatus, changedBy,
	)
	if err != nil {
		r.logger.Error("Failed to insert status log", zap.Int("task_id", taskID), zap.Error(err))
		return fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	r.logger.Info("Task status updated",
		zap.Int("task_id", taskID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", newStatus),
	)
	return nil
}

// DeleteWithLogs removes the log rows first, then the task, in one
// transaction. On any failure both deletions roll back.
func (r *TaskRepository) DeleteWithLogs(ctx context.Context, taskID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin task delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_logs WHERE task_id = $1`, taskID); err != nil {
		r.logger.Error("Failed to delete task logs", zap.Int("task_id", taskID), zap.Error(err))
		return fmt.Errorf("delete task logs: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int("task_id", taskID), zap.Error(err))
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit task delete: %w", err)
	}
	r.logger.Info("Task deleted", zap.Int("task_id", taskID))
	return nil
}

// StatusCounts aggregates the user's assigned tasks by status at the
// store level for the dashboard summary.
func (r *TaskRepository) StatusCounts(ctx context.Context, assigneeID int) (map[string]int, error) {
	query := `
        SELECT status, COUNT(*)
        FROM tasks
        WHERE assigned_to = $1
        GROUP BY status
    `
	rows, err := r.db.Query(ctx, query, assigneeID)
	if err != nil {
		r.logger.Error("Failed to count tasks by status", zap.Int("user_id", assigneeID), zap.Error(err))
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
