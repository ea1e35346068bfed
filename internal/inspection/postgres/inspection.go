package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	"gorm.io/gorm"
)

var orderClauses = map[inspection.Order]string{
	inspection.OrderScheduledDesc: "scheduled_date DESC, created_at DESC",
	inspection.OrderScheduledAsc:  "scheduled_date ASC, created_at ASC",
	inspection.OrderCreatedDesc:   "created_at DESC, id DESC",
	inspection.OrderCompletedDesc: "completion_date DESC, id DESC",
	inspection.OrderSubmittedAsc:  "submitted_at ASC, id ASC",
}

type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) inspection.Repository {
	return &InspectionRepository{db: db}
}

// scoped is the single place the visibility rule reaches SQL.
func (r *InspectionRepository) scoped(ctx context.Context, scope inspection.Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&inspectionDatamodel.Inspection{})
	if !scope.All() {
		q = q.Where("inspector_id = ?", scope.InspectorID())
	}
	return q
}

func windowed(q *gorm.DB, column string, w inspection.Window) *gorm.DB {
	if w.From != nil {
		q = q.Where(column+" >= ?", *w.From)
	}
	if w.To != nil {
		q = q.Where(column+" < ?", *w.To)
	}
	return q
}

func (r *InspectionRepository) Create(ctx context.Context, row *inspectionDatamodel.Inspection) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *InspectionRepository) GetByID(ctx context.Context, id int64, scope inspection.Scope) (*inspectionDatamodel.Inspection, error) {
	var row inspectionDatamodel.Inspection
	err := r.scoped(ctx, scope).Where("id = ?", id).First(&row).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *InspectionRepository) List(ctx context.Context, q inspection.ListQuery) ([]*inspectionDatamodel.Inspection, error) {
	query := windowed(r.scoped(ctx, q.Scope), "scheduled_date", q.Scheduled)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if len(q.ExcludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", q.ExcludeStatuses)
	}
	if order, ok := orderClauses[q.Order]; ok {
		query = query.Order(order)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []*inspectionDatamodel.Inspection
	err := query.Find(&rows).Error
	return rows, err
}

// SaveTransition is a conditional update on id, status and version. Zero
// affected rows means another request got there first.
func (r *InspectionRepository) SaveTransition(ctx context.Context, row *inspectionDatamodel.Inspection, fromStatus string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&inspectionDatamodel.Inspection{}).
		Where("id = ? AND status = ? AND version = ?", row.ID, fromStatus, row.Version).
		Updates(map[string]interface{}{
			"status":                 row.Status,
			"completion_date":        row.CompletionDate,
			"notes":                  row.Notes,
			"report_findings":        row.ReportFindings,
			"report_recommendations": row.ReportRecommendations,
			"pdf_report_path":        row.PDFReportPath,
			"submitted_at":           row.SubmittedAt,
			"rejection_reason":       row.RejectionReason,
			"rejection_feedback":     row.RejectionFeedback,
			"rejection_count":        row.RejectionCount,
			"last_rejected_at":       row.LastRejectedAt,
			"version":                row.Version + 1,
			"updated_at":             now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inspection.ErrStaleInspection
	}
	row.Version++
	row.UpdatedAt = now
	return nil
}

func (r *InspectionRepository) CountWindow(ctx context.Context, scope inspection.Scope, w inspection.Window) (inspection.WindowCounts, error) {
	var counts inspection.WindowCounts

	if err := windowed(r.scoped(ctx, scope), "created_at", w).
		Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := windowed(r.scoped(ctx, scope), "completion_date", w).
		Where("status = ?", inspection.StatusCompleted).
		Count(&counts.Completed).Error; err != nil {
		return counts, err
	}
	if err := windowed(r.scoped(ctx, scope), "scheduled_date", w).
		Where("status = ?", inspection.StatusScheduled).
		Count(&counts.Scheduled).Error; err != nil {
		return counts, err
	}
	if err := windowed(r.scoped(ctx, scope), "created_at", w).
		Where("status = ?", inspection.StatusPendingReview).
		Count(&counts.PendingReview).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

func (r *InspectionRepository) CountByStatus(ctx context.Context, scope inspection.Scope) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := r.scoped(ctx, scope).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

func (r *InspectionRepository) GetInspector(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, auth.RoleInspector).First(&u).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *InspectionRepository) InspectorNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	var rows []struct {
		ID       int64
		FullName string
	}
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Select("id, full_name").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.FullName
	}
	return names, nil
}

// DeleteAll clears reminders, inspection-scoped messages and inspections in one transaction.
func (r *InspectionRepository) DeleteAll(ctx context.Context) (inspection.ClearResult, error) {
	var res inspection.ClearResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("1 = 1").Delete(&reminderDatamodel.Reminder{})
		if del.Error != nil {
			return del.Error
		}
		res.Reminders = del.RowsAffected

		del = tx.Where("inspection_id IS NOT NULL").Delete(&messageDatamodel.Message{})
		if del.Error != nil {
			return del.Error
		}
		res.Messages = del.RowsAffected

		del = tx.Where("1 = 1").Delete(&inspectionDatamodel.Inspection{})
		if del.Error != nil {
			return del.Error
		}
		res.Inspections = del.RowsAffected
		return nil
	})
	if err != nil {
		return inspection.ClearResult{}, err
	}
	return res, nil
}
