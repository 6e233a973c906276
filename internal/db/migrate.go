package db

import (
	_ "embed"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/01_create_users.up.sql
var createUsersUp string

//go:embed migrations/02_create_projects.up.sql
var createProjectsUp string

//go:embed migrations/03_create_tasks.up.sql
var createTasksUp string

//go:embed migrations/04_create_task_logs.up.sql
var createTaskLogsUp string

// Migrate applies the schema. Every statement is idempotent, so it is
// safe to run on each startup; it is invoked exactly once from main,
// never from the request path.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	logger.Debug("running migrations")

	steps := []struct {
		name string
		sql  string
	}{
		{"users", createUsersUp},
		{"projects", createProjectsUp},
		{"tasks", createTasksUp},
		{"task_logs", createTaskLogsUp},
	}

	for _, step := range steps {
		if _, err := pool.Exec(ctx, step.sql); err != nil {
			return fmt.Errorf("apply %s migration: %w", step.name, err)
		}
	}

	logger.Debug("migrations finished")
	return nil
}
