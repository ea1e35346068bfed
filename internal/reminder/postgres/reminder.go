package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
	"github.com/frahmantamala/inspection-workflow/internal/reminder"
	"gorm.io/gorm"
)

type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) reminder.Repository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, row *reminderDatamodel.Reminder) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *ReminderRepository) GetByID(ctx context.Context, id int64) (*reminderDatamodel.Reminder, error) {
	var row reminderDatamodel.Reminder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ReminderRepository) ListForUser(ctx context.Context, userID int64) ([]*reminderDatamodel.Reminder, error) {
	var rows []*reminderDatamodel.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("remind_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReminderRepository) ListDue(ctx context.Context, userID int64, now time.Time) ([]*reminderDatamodel.Reminder, error) {
	var rows []*reminderDatamodel.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND remind_at <= ?", userID, reminder.StatusPending, now).
		Order("remind_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReminderRepository) Dismiss(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&reminderDatamodel.Reminder{}).
		Where("id = ? AND status <> ?", id, reminder.StatusDismissed).
		Update("status", reminder.StatusDismissed).Error
}

func (r *ReminderRepository) ListPendingDue(ctx context.Context, now time.Time, limit int) ([]*reminderDatamodel.Reminder, error) {
	var rows []*reminderDatamodel.Reminder
	q := r.db.WithContext(ctx).
		Where("status = ? AND remind_at <= ?", reminder.StatusPending, now).
		Order("remind_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// MarkSent is conditional on the row still being pending, so two workers
// never both claim the same reminder.
func (r *ReminderRepository) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&reminderDatamodel.Reminder{}).
		Where("id = ? AND status = ?", id, reminder.StatusPending).
		Updates(map[string]interface{}{
			"status":  reminder.StatusSent,
			"sent_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ReminderRepository) InspectionTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	var rows []struct {
		ID    int64
		Title string
	}
	err := r.db.WithContext(ctx).Model(&inspectionDatamodel.Inspection{}).
		Select("id, title").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	titles := make(map[int64]string, len(rows))
	for _, row := range rows {
		titles[row.ID] = row.Title
	}
	return titles, nil
}
