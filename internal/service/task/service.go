package task

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/metrics"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// Store is the persistence surface the service needs. Satisfied by
// repository.TaskRepository and by fakes in tests.
type Store interface {
	GetByID(ctx context.Context, id int) (*model.Task, error)
	List(ctx context.Context, f repository.TaskFilter) ([]model.Task, error)
	Insert(ctx context.Context, t *model.Task) (int, error)
	Update(ctx context.Context, t *model.Task) error
	UpdateStatusWithLog(ctx context.Context, taskID int, oldStatus, newStatus string, changedBy int) error
	DeleteWithLogs(ctx context.Context, taskID int) error
	StatusCounts(ctx context.Context, assigneeID int) (map[string]int, error)
}

type LogStore interface {
	Insert(ctx context.Context, l *model.TaskLog) error
	ListByTask(ctx context.Context, taskID int) ([]model.TaskLog, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
}

type ProjectStore interface {
	GetByID(ctx context.Context, id int) (*model.Project, error)
}

type Service struct {
	tasks    Store
	logs     LogStore
	users    UserStore
	projects ProjectStore
	logger   *zap.Logger
}

func NewService(tasks Store, logs LogStore, users UserStore, projects ProjectStore, logger *zap.Logger) *Service {
	return &Service{tasks: tasks, logs: logs, users: users, projects: projects, logger: logger}
}

// Input carries the mutable task fields for create and update.
type Input struct {
	Title       string
	Description string
	DueDate     time.Time
	AssignedTo  int
	ProjectID   *int
}

// WarnLogFailed is the warning surfaced when a task write committed but
// the status log append did not. The primary write is not rolled back.
const WarnLogFailed = "task saved but failed to record status change log"

// Create inserts the task with status Pending and appends the initial
// nil→Pending log entry. A log append failure is reported as a warning
// next to the successful creation, not as a failure.
func (s *Service) Create(ctx context.Context, principal model.Principal, in Input) (*model.Task, string, error) {
	fe := validateTask(in)
	if len(fe) > 0 {
		return nil, "", fe
	}

	t := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      model.StatusPending,
		AssignedTo:  in.AssignedTo,
		ProjectID:   in.ProjectID,
		CreatedBy:   principal.UserID,
	}

	if _, err := s.tasks.Insert(ctx, t); err != nil {
		return nil, "", err
	}

	warn := ""
	log := &model.TaskLog{
		TaskID:    t.ID,
		OldStatus: nil,
		NewStatus: model.StatusPending,
		ChangedBy: principal.UserID,
	}
	if err := s.logs.Insert(ctx, log); err != nil {
		s.logger.Warn("Task created but initial log insert failed",
			zap.Int("task_id", t.ID),
			zap.Error(err),
		)
		warn = WarnLogFailed
	}

	s.resolveRelations(ctx, t)
	return t, warn, nil
}

// Get returns the task with assignee, creator, and project resolved.
// Viewable by its assignee, its creator, or any admin.
func (s *Service) Get(ctx context.Context, principal model.Principal, id int) (*model.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanViewTask(t) {
		return nil, model.ErrForbidden
	}
	s.resolveRelations(ctx, t)
	return t, nil
}

// ListFilter narrows List. Non-admin principals are always restricted
// to tasks they are assignee or creator of, on top of these filters.
type ListFilter struct {
	Status     *string
	ProjectID  *int
	AssigneeID *int
	CreatorID  *int
}

func (s *Service) List(ctx context.Context, principal model.Principal, f ListFilter) ([]model.Task, error) {
	if f.Status != nil && !model.ValidStatus(*f.Status) {
		return nil, model.FieldErrors{"status": "Invalid status value"}
	}

	repoFilter := repository.TaskFilter{
		Status:     f.Status,
		ProjectID:  f.ProjectID,
		AssigneeID: f.AssigneeID,
		CreatorID:  f.CreatorID,
	}
	if !principal.IsAdmin() {
		owned := principal.UserID
		repoFilter.OwnedBy = &owned
	}

	tasks, err := s.tasks.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		s.resolveRelations(ctx, &tasks[i])
	}
	return tasks, nil
}

// Update validates and overwrites the task's mutable fields. When the
// stored status differs from the submitted one a transition log entry
// is appended; a log failure is a warning, not a failure.
func (s *Service) Update(ctx context.Context, principal model.Principal, id int, in Input, status string) (*model.Task, string, error) {
	fe := validateTask(in)
	if !model.ValidStatus(status) {
		fe["status"] = "Invalid status value"
	}
	if len(fe) > 0 {
		return nil, "", fe
	}

	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !principal.CanViewTask(current) {
		return nil, "", model.ErrForbidden
	}

	t := &model.Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      status,
		AssignedTo:  in.AssignedTo,
		ProjectID:   in.ProjectID,
		CreatedBy:   current.CreatedBy,
		CreatedAt:   current.CreatedAt,
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, "", err
	}

	warn := ""
	if current.Status != status {
		old := current.Status
		log := &model.TaskLog{
			TaskID:    id,
			OldStatus: &old,
			NewStatus: status,
			ChangedBy: principal.UserID,
		}
		if err := s.logs.Insert(ctx, log); err != nil {
			s.logger.Warn("Task updated but status log insert failed",
				zap.Int("task_id", id),
				zap.Error(err),
			)
			warn = WarnLogFailed
		} else {
			metrics.StatusTransitionCount.WithLabelValues(old, status).Inc()
		}
	}

	s.resolveRelations(ctx, t)
	return t, warn, nil
}

// UpdateStatus writes the new status and the transition log atomically.
// The log entry is written even when the status is unchanged;
// re-asserting a status is still an auditable act.
func (s *Service) UpdateStatus(ctx context.Context, principal model.Principal, id int, newStatus string) (*model.Task, error) {
	if !model.ValidStatus(newStatus) {
		return nil, model.FieldErrors{"status": "Invalid status value"}
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanViewTask(t) {
		return nil, model.ErrForbidden
	}

	oldStatus := t.Status
	if err := s.tasks.UpdateStatusWithLog(ctx, id, oldStatus, newStatus, principal.UserID); err != nil {
		return nil, err
	}
	metrics.StatusTransitionCount.WithLabelValues(oldStatus, newStatus).Inc()

	t.Status = newStatus
	s.resolveRelations(ctx, t)
	return t, nil
}

// Delete removes the task and all its log rows in one transaction.
// Deletable by its creator or any admin.
func (s *Service) Delete(ctx context.Context, principal model.Principal, id int) error {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !principal.CanDeleteTask(t) {
		return model.ErrForbidden
	}
	return s.tasks.DeleteWithLogs(ctx, id)
}

// Logs returns the task's transition history, oldest first. Same
// visibility rule as the task itself.
func (s *Service) Logs(ctx context.Context, principal model.Principal, taskID int) ([]model.TaskLog, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !principal.CanViewTask(t) {
		return nil, model.ErrForbidden
	}
	return s.logs.ListByTask(ctx, taskID)
}

// Summary holds the dashboard counts over the user's assigned tasks.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// Dashboard is the landing-page payload: the principal's assigned and
// created tasks plus status counts. Optional project/status filters
// are applied in the store query.
type Dashboard struct {
	AssignedTasks []model.Task `json:"assigned_tasks"`
	CreatedTasks  []model.Task `json:"created_tasks"`
	Summary       Summary      `json:"summary"`
}

func (s *Service) GetDashboard(ctx context.Context, principal model.Principal, projectID *int, status *string) (*Dashboard, error) {
	if status != nil && !model.ValidStatus(*status) {
		return nil, model.FieldErrors{"status": "Invalid status value"}
	}

	userID := principal.UserID

	assigned, err := s.tasks.List(ctx, repository.TaskFilter{
		AssigneeID: &userID,
		ProjectID:  projectID,
		Status:     status,
	})
	if err != nil {
		return nil, err
	}
	created, err := s.tasks.List(ctx, repository.TaskFilter{
		CreatorID: &userID,
		ProjectID: projectID,
		Status:    status,
	})
	if err != nil {
		return nil, err
	}

	counts, err := s.tasks.StatusCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		AssignedTasks: assigned,
		CreatedTasks:  created,
		Summary: Summary{
			Pending:    counts[model.StatusPending],
			InProgress: counts[model.StatusInProgress],
			Completed:  counts[model.StatusCompleted],
		},
	}
	d.Summary.Total = d.Summary.Pending + d.Summary.InProgress + d.Summary.Completed

	for i := range d.AssignedTasks {
		s.resolveRelations(ctx, &d.AssignedTasks[i])
	}
	for i := range d.CreatedTasks {
		s.resolveRelations(ctx, &d.CreatedTasks[i])
	}
	return d, nil
}

// resolveRelations attaches assignee, creator, and project. A missing
// reference leaves the relation nil rather than failing the read.
func (s *Service) resolveRelations(ctx context.Context, t *model.Task) {
	if assignee, err := s.users.GetByID(ctx, t.AssignedTo); err == nil {
		t.Assignee = assignee
	}
	if creator, err := s.users.GetByID(ctx, t.CreatedBy); err == nil {
		t.Creator = creator
	}
	if t.ProjectID != nil {
		if project, err := s.projects.GetByID(ctx, *t.ProjectID); err == nil {
			t.Project = project
		}
	}
}

func validateTask(in Input) model.FieldErrors {
	fe := model.FieldErrors{}

	if strings.TrimSpace(in.Title) == "" {
		fe["title"] = "Task title is required"
	} else if len(in.Title) < 2 || len(in.Title) > 100 {
		fe["title"] = "Task title must be between 2 and 100 characters"
	}

	if len(in.Description) > 500 {
		fe["description"] = "Task description cannot exceed 500 characters"
	}

	if in.DueDate.IsZero() {
		fe["dueDate"] = "Due date is required"
	}

	if in.AssignedTo <= 0 {
		fe["assignedTo"] = "Assignee is required"
	}
	return fe
}
