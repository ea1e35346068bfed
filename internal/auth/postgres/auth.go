package postgres

import (
	"context"
	stdErrors "errors"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// GetCredentials matches the identifier against username first, then staff id.
func (r *Repository) GetCredentials(ctx context.Context, identifier string) (*auth.Credentials, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("username = ?", identifier).First(&u).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).Where("staff_id = ?", identifier).First(&u).Error
	}
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}

	return &auth.Credentials{
		UserID:       u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
	}, nil
}

func (r *Repository) GetActiveActor(ctx context.Context, userID int64) (*auth.Actor, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "username", "full_name", "role").
		Where("id = ? AND is_active = ?", userID, true).
		First(&u).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}

	return &auth.Actor{ID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}, nil
}
