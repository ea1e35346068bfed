package user

import (
	"context"
	"crypto/rand"
	stdErrors "errors"
	"log/slog"
	"math/big"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
)

const temporaryPasswordLength = 12

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	ErrUsernameTaken    = errors.NewConflictError("username already exists", errors.ErrCodeUsernameTaken)
	ErrEmailTaken       = errors.NewConflictError("email already in use", errors.ErrCodeEmailTaken)
	ErrSelfModification = errors.NewStateError("you cannot perform this action on your own account", errors.ErrCodeSelfModification)
	ErrUserReferenced   = errors.NewStateError("user is referenced by inspections, messages or reminders; deactivate instead", errors.ErrCodeUserReferenced)
	ErrWrongPassword    = errors.NewValidationError("current password is incorrect", errors.ErrCodeWrongPassword)
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	UpdatePassword(ctx context.Context, id int64, hash string, changedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int64, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) Me(ctx context.Context, actor *auth.Actor) (*User, error) {
	return s.get(ctx, actor.ID)
}

func (s *Service) UpdateMe(ctx context.Context, actor *auth.Actor, dto UpdateProfileDTO) (*User, error) {
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	fields, err := s.profileFields(ctx, actor.ID, dto)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor.ID, fields)
}

func (s *Service) ChangePassword(ctx context.Context, actor *auth.Actor, dto ChangePasswordDTO) error {
	if appErr := dto.Validate(); appErr != nil {
		return appErr
	}

	u, err := s.get(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return ErrWrongPassword
	}

	if err := s.setPassword(ctx, u.ID, dto.NewPassword); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", u.ID)
	return nil
}

func (s *Service) Contacts(ctx context.Context, actor *auth.Actor) ([]Contact, error) {
	users, err := s.repo.List(ctx, ListFilter{ExcludeID: actor.ID})
	if err != nil {
		return nil, errors.NewStorageError("failed to list contacts", err)
	}
	contacts := make([]Contact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, u.ToContact())
	}
	return contacts, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Actor, filter ListFilter) ([]*User, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	if filter.Role != "" && !auth.ValidRole(filter.Role) {
		return nil, errors.NewValidationFieldError("role", "role must be inspector or manager", errors.ErrCodeInvalidRole)
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewStorageError("failed to list users", err)
	}
	return users, nil
}

// ListInspectors returns active inspectors for the assignment picker.
func (s *Service) ListInspectors(ctx context.Context, actor *auth.Actor) ([]*User, error) {
	return s.List(ctx, actor, ListFilter{Role: auth.RoleInspector})
}

func (s *Service) Get(ctx context.Context, actor *auth.Actor, id int64) (*User, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateUserDTO) (*CreatedUser, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	taken, err := s.repo.UsernameExists(ctx, dto.Username)
	if err != nil {
		return nil, errors.NewStorageError("failed to check username", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.repo.EmailExists(ctx, dto.Email, 0)
	if err != nil {
		return nil, errors.NewStorageError("failed to check email", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	password := dto.Password
	generated := ""
	if password == "" {
		if generated, err = GeneratePassword(); err != nil {
			return nil, errors.NewInternalError("failed to generate password", err)
		}
		password = generated
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Username:        dto.Username,
		Email:           dto.Email,
		FullName:        dto.FullName,
		Role:            dto.Role,
		PasswordHash:    hash,
		Phone:           dto.Phone,
		YearsExperience: dto.YearsExperience,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.NewStorageError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "staff_id", u.StaffID, "role", u.Role, "created_by", actor.ID)
	return &CreatedUser{User: u, TemporaryPassword: generated}, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Actor, id int64, dto UpdateUserDTO) (*User, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	fields, err := s.profileFields(ctx, id, dto.UpdateProfileDTO)
	if err != nil {
		return nil, err
	}
	if dto.Role != nil {
		if id == actor.ID && *dto.Role != actor.Role {
			return nil, ErrSelfModification
		}
		fields["role"] = *dto.Role
	}
	return s.apply(ctx, id, fields)
}

func (s *Service) SetActive(ctx context.Context, actor *auth.Actor, id int64, dto SetActiveDTO) (*User, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if id == actor.ID {
		return nil, ErrSelfModification
	}

	u, err := s.apply(ctx, id, map[string]interface{}{"is_active": *dto.IsActive})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user activation changed", "user_id", id, "is_active", u.IsActive, "changed_by", actor.ID)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := auth.RequireManager(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return ErrSelfModification
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return errors.NewStorageError("failed to check user references", err)
	}
	if refs > 0 {
		return ErrUserReferenced
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.NewStorageError("failed to delete user", err)
	}
	s.logger.Info("user deleted", "user_id", id, "deleted_by", actor.ID)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, actor *auth.Actor, id int64, dto ResetPasswordDTO) (*PasswordReset, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	password := dto.NewPassword
	reset := &PasswordReset{UserID: id}
	if password == "" {
		generated, err := GeneratePassword()
		if err != nil {
			return nil, errors.NewInternalError("failed to generate password", err)
		}
		password = generated
		reset.TemporaryPassword = generated
	}

	if err := s.setPassword(ctx, id, password); err != nil {
		return nil, err
	}
	s.logger.Info("password reset", "user_id", id, "reset_by", actor.ID)
	return reset, nil
}

func (s *Service) get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.NewStorageError("failed to load user", err)
	}
	return u, nil
}

func (s *Service) profileFields(ctx context.Context, id int64, dto UpdateProfileDTO) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if dto.Email != nil {
		taken, err := s.repo.EmailExists(ctx, *dto.Email, id)
		if err != nil {
			return nil, errors.NewStorageError("failed to check email", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
		fields["email"] = *dto.Email
	}
	if dto.FullName != nil {
		fields["full_name"] = *dto.FullName
	}
	if dto.Phone != nil {
		fields["phone"] = *dto.Phone
	}
	if dto.YearsExperience != nil {
		fields["years_experience"] = *dto.YearsExperience
	}
	return fields, nil
}

func (s *Service) apply(ctx context.Context, id int64, fields map[string]interface{}) (*User, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if appErr, ok := errors.IsAppError(err); ok {
				return nil, appErr
			}
			return nil, errors.NewStorageError("failed to update user", err)
		}
	}
	return s.get(ctx, id)
}

func (s *Service) setPassword(ctx context.Context, id int64, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return errors.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash, time.Now().UTC()); err != nil {
		return errors.NewStorageError("failed to update password", err)
	}
	return nil
}

// GeneratePassword returns a random temporary password without look-alike characters.
func GeneratePassword() (string, error) {
	buf := make([]byte, temporaryPasswordLength)
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
