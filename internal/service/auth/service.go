package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/util"
)

// UserStore is the persistence surface the service needs. Satisfied by
// repository.UserRepository and by fakes in tests.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Insert(ctx context.Context, u *model.User) (int, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	List(ctx context.Context) ([]model.User, error)
}

type Service struct {
	users  UserStore
	logger *zap.Logger
}

func NewService(users UserStore, logger *zap.Logger) *Service {
	return &Service{users: users, logger: logger}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`)

// Register validates the input and creates a user with role "user".
// Returns model.FieldErrors when validation fails; nothing is written
// in that case.
func (s *Service) Register(ctx context.Context, firstName, lastName, email, password, confirmPassword string) (*model.User, error) {
	fe := validateRegistration(firstName, lastName, email, password, confirmPassword)
	if len(fe) > 0 {
		return nil, fe
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, model.FieldErrors{"email": "Email already exists"}
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}

	id, err := s.users.Insert(ctx, u)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, model.FieldErrors{"email": "Email already exists"}
		}
		return nil, err
	}
	u.ID = id

	s.logger.Info("User registered", zap.Int("user_id", id))
	return u, nil
}

// Login verifies credentials. Unknown email and wrong password produce
// the same ErrInvalidCredentials so neither is revealed.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin provisions the fixed admin account if it does not exist
// yet and promotes its role. Idempotent; run once at startup.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if u.Role == model.RoleAdmin {
			return nil
		}
		u.Role = model.RoleAdmin
		return s.users.Update(ctx, u)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if _, err := s.users.Insert(ctx, admin); err != nil {
		return err
	}

	s.logger.Info("Admin account provisioned", zap.String("email", email))
	return nil
}

func (s *Service) GetUser(ctx context.Context, id int) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers is admin-only.
func (s *Service) ListUsers(ctx context.Context, p model.Principal) ([]model.User, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	return s.users.List(ctx)
}

// UpdateProfile changes the principal's own name and email. Role and
// password are untouched.
func (s *Service) UpdateProfile(ctx context.Context, p model.Principal, firstName, lastName, email string) (*model.User, error) {
	fe := model.FieldErrors{}
	validateName(fe, "firstName", "First name", firstName)
	validateName(fe, "lastName", "Last name", lastName)
	validateEmail(fe, email)
	if len(fe) > 0 {
		return nil, fe
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	u.FirstName = firstName
	u.LastName = lastName
	u.Email = email

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, model.FieldErrors{"email": "Email already exists"}
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password before writing the new
// hash.
func (s *Service) ChangePassword(ctx context.Context, p model.Principal, currentPassword, newPassword, confirmPassword string) error {
	fe := model.FieldErrors{}
	if strings.TrimSpace(newPassword) == "" {
		fe["newPassword"] = "Password is required"
	} else if len(newPassword) < 6 {
		fe["newPassword"] = "Password must be at least 6 characters"
	}
	if newPassword != confirmPassword {
		fe["confirmPassword"] = "Passwords do not match"
	}
	if len(fe) > 0 {
		return fe
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if !util.CheckPassword(currentPassword, u.PasswordHash) {
		return model.ErrInvalidCredentials
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, p.UserID, hash)
}

func validateRegistration(firstName, lastName, email, password, confirmPassword string) model.FieldErrors {
	fe := model.FieldErrors{}
	validateName(fe, "firstName", "First name", firstName)
	validateName(fe, "lastName", "Last name", lastName)
	validateEmail(fe, email)

	if strings.TrimSpace(password) == "" {
		fe["password"] = "Password is required"
	} else if len(password) < 6 {
		fe["password"] = "Password must be at least 6 characters"
	}

	if strings.TrimSpace(confirmPassword) == "" {
		fe["confirmPassword"] = "Confirm password is required"
	} else if password != confirmPassword {
		fe["confirmPassword"] = "Passwords do not match"
	}
	return fe
}

func validateName(fe model.FieldErrors, field, label, value string) {
	if strings.TrimSpace(value) == "" {
		fe[field] = label + " is required"
	} else if len(value) < 2 || len(value) > 50 {
		fe[field] = label + " must be between 2 and 50 characters"
	}
}

func validateEmail(fe model.FieldErrors, email string) {
	if strings.TrimSpace(email) == "" {
		fe["email"] = "Email is required"
	} else if !emailPattern.MatchString(email) {
		fe["email"] = "Invalid email format"
	}
}
