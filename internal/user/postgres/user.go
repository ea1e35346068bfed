package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements user.Repository using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if filter.ExcludeID > 0 {
		q = q.Where("id <> ?", filter.ExcludeID)
	}

	var rows []userDatamodel.User
	if err := q.Order("full_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*user.User, 0, len(rows))
	for i := range rows {
		users = append(users, user.FromDataModel(&rows[i]))
	}
	return users, nil
}

// Create assigns the next staff id inside the insert transaction.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var staffIDs []string
		if err := tx.Model(&userDatamodel.User{}).Pluck("staff_id", &staffIDs).Error; err != nil {
			return err
		}
		u.StaffID = user.NextStaffID(staffIDs)

		row := user.ToDataModel(u)
		if err := tx.Create(row).Error; err != nil {
			if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.NewConflictError("username, email or staff id already exists", errors.ErrCodeUsernameTaken)
			}
			return err
		}
		*u = *user.FromDataModel(row)
		return nil
	})
}

func (r *UserRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).Updates(fields).Error
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.NewConflictError("email already in use", errors.ErrCodeEmailTaken)
	}
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string, changedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":        hash,
			"last_password_change": changedAt,
			"updated_at":           changedAt,
		}).Error
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&userDatamodel.User{}, id).Error
}

// CountReferences sums rows in other tables that point at the user.
func (r *UserRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	db := r.db.WithContext(ctx)
	var total int64

	var n int64
	if err := db.Model(&inspectionDatamodel.Inspection{}).
		Where("inspector_id = ? OR assigned_by = ?", id, id).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n

	if err := db.Model(&messageDatamodel.Message{}).
		Where("sender_id = ? OR receiver_id = ?", id, id).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n

	if err := db.Model(&reminderDatamodel.Reminder{}).
		Where("user_id = ?", id).Count(&n).Error; err != nil {
		return 0, err
	}
	return total + n, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("LOWER(email) = ?", email)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}
