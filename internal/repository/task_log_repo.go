package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskhub/internal/model"
)

// TaskLogRepository appends and reads status transition records. Rows
// are never updated or deleted here; the only deletion path is the
// task delete transaction in TaskRepository.
type TaskLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskLogRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskLogRepository {
	return &TaskLogRepository{db: db, logger: logger}
}

func (r *TaskLogRepository) Insert(ctx context.Context, l *model.TaskLog) error {
	query := `
        INSERT INTO task_logs (task_id, old_status, new_status, changed_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id, changed_at
    `
	err := r.db.QueryRow(ctx, query,
		l.TaskID,
		l.OldStatus,
		l.NewStatus,
		l.ChangedBy,
	).Scan(&l.ID, &l.ChangedAt)
	if err != nil {
		r.logger.Error("Failed to insert task log", zap.Int("task_id", l.TaskID), zap.Error(err))
		return fmt.Errorf("insert task log: %w", err)
	}
	return nil
}

// ListByTask returns the task's transition history in chronological
// order with the acting user's display name resolved.
func (r *TaskLogRepository) ListByTask(ctx context.Context, taskID int) ([]model.TaskLog, error) {
	query := `
        SELECT l.id, l.task_id, l.old_status, l.new_status, l.changed_at, l.changed_by,
               u.first_name || ' ' || u.last_name AS changed_by_name
        FROM task_logs l
        JOIN users u ON u.id = l.changed_by
        WHERE l.task_id = $1
        ORDER BY l.changed_at ASC, l.id ASC
    `
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to list task logs", zap.Int("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("list task logs: %w", err)
	}
	defer rows.Close()

	logs := []model.TaskLog{}
	for rows.Next() {
		var l model.TaskLog
		if err := rows.Scan(
			&l.ID,
			&l.TaskID,
			&l.OldStatus,
			&l.NewStatus,
			&l.ChangedAt,
			&l.ChangedBy,
			&l.ChangedByName,
		); err != nil {
			return nil, fmt.Errorf("scan task log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
