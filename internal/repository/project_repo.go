package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskhub/internal/model"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

const projectColumns = `
        p.id, p.name, p.description, p.start_date, p.end_date, p.created_by,
        (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS task_count
`

func (r *ProjectRepository) GetByID(ctx context.Context, id int) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`

	var p model.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedBy,
		&p.TaskCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to query project", zap.Int("project_id", id), zap.Error(err))
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p ORDER BY p.name`
	return r.queryProjects(ctx, query)
}

func (r *ProjectRepository) ListByCreator(ctx context.Context, creatorID int) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.created_by = $1 ORDER BY p.name`
	return r.queryProjects(ctx, query, creatorID)
}

func (r *ProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.StartDate,
			&p.EndDate,
			&p.CreatedBy,
			&p.TaskCount,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int, error) {
	query := `
        INSERT INTO projects (name, description, start_date, end_date, created_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.StartDate,
		p.EndDate,
		p.CreatedBy,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return 0, fmt.Errorf("insert project: %w", err)
	}
	r.logger.Info("Project created", zap.Int("project_id", id))
	return id, nil
}

// Update overwrites the mutable fields. Creator and id never change.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	query := `
        UPDATE projects
        SET name = $2, description = $3, start_date = $4, end_date = $5
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, p.ID, p.Name, p.Description, p.StartDate, p.EndDate)
	if err != nil {
		r.logger.Error("Failed to update project", zap.Int("project_id", p.ID), zap.Error(err))
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes a project. Deletion is rejected while tasks still
// reference the project.
func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	var taskCount int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = $1`, id).Scan(&taskCount)
	if err != nil {
		r.logger.Error("Failed to count project tasks", zap.Int("project_id", id), zap.Error(err))
		return fmt.Errorf("count project tasks: %w", err)
	}
	if taskCount > 0 {
		return model.ErrProjectHasTasks
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Int("project_id", id), zap.Error(err))
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	r.logger.Info("Project deleted", zap.Int("project_id", id))
	return nil
}
