package project

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/model"
)

// Store is the persistence surface the service needs. Satisfied by
// repository.ProjectRepository and by fakes in tests.
type Store interface {
	GetByID(ctx context.Context, id int) (*model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	ListByCreator(ctx context.Context, creatorID int) ([]model.Project, error)
	Insert(ctx context.Context, p *model.Project) (int, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id int) error
}

// UserStore resolves creator references on reads.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
}

type Service struct {
	projects Store
	users    UserStore
	logger   *zap.Logger
}

func NewService(projects Store, users UserStore, logger *zap.Logger) *Service {
	return &Service{projects: projects, users: users, logger: logger}
}

// Create inserts a project. Admin only; validation failures return
// model.FieldErrors with no write.
func (s *Service) Create(ctx context.Context, principal model.Principal, name, description string, startDate, endDate *time.Time) (*model.Project, error) {
	if !principal.IsAdmin() {
		return nil, model.ErrForbidden
	}

	fe := validateProject(name, startDate, endDate)
	if len(fe) > 0 {
		return nil, fe
	}

	p := &model.Project{
		Name:        name,
		Description: description,
		StartDate:   startDate,
		EndDate:     endDate,
		CreatedBy:   principal.UserID,
	}

	id, err := s.projects.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id

	s.logger.Info("Project created", zap.Int("project_id", id), zap.Int("created_by", principal.UserID))
	return p, nil
}

// Get returns the project with its creator resolved. A dangling
// creator reference yields a nil relation.
func (s *Service) Get(ctx context.Context, id int) (*model.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveCreator(ctx, p)
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]model.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		s.resolveCreator(ctx, &projects[i])
	}
	return projects, nil
}

func (s *Service) ListByCreator(ctx context.Context, creatorID int) ([]model.Project, error) {
	projects, err := s.projects.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		s.resolveCreator(ctx, &projects[i])
	}
	return projects, nil
}

// Update re-validates the full record and overwrites the mutable
// fields. Admin only; creator and id never change.
func (s *Service) Update(ctx context.Context, principal model.Principal, id int, name, description string, startDate, endDate *time.Time) (*model.Project, error) {
	if !principal.IsAdmin() {
		return nil, model.ErrForbidden
	}

	fe := validateProject(name, startDate, endDate)
	if len(fe) > 0 {
		return nil, fe
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = name
	p.Description = description
	p.StartDate = startDate
	p.EndDate = endDate

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a project. Admin only. Deletion is rejected with
// model.ErrProjectHasTasks while tasks still reference the project.
func (s *Service) Delete(ctx context.Context, principal model.Principal, id int) error {
	if !principal.IsAdmin() {
		return model.ErrForbidden
	}
	return s.projects.Delete(ctx, id)
}

func (s *Service) resolveCreator(ctx context.Context, p *model.Project) {
	creator, err := s.users.GetByID(ctx, p.CreatedBy)
	if err != nil {
		return
	}
	p.Creator = creator
}

func validateProject(name string, startDate, endDate *time.Time) model.FieldErrors {
	fe := model.FieldErrors{}

	if strings.TrimSpace(name) == "" {
		fe["name"] = "Project name is required"
	} else if len(name) < 2 || len(name) > 100 {
		fe["name"] = "Project name must be between 2 and 100 characters"
	}

	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		fe["endDate"] = "End date must be after start date"
	}
	return fe
}
