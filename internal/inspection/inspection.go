package inspection

import (
	"fmt"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
)

const (
	StatusScheduled     = "scheduled"
	StatusPendingReview = "pending_review"
	StatusCompleted     = "completed"
	StatusRejected      = "rejected"
)

var Statuses = []string{StatusScheduled, StatusPendingReview, StatusCompleted, StatusRejected}

var (
	ErrInspectionNotFound      = errors.NewNotFoundError("inspection not found", errors.ErrCodeInspectionNotFound)
	ErrInspectorNotFound       = errors.NewNotFoundError("inspector not found", errors.ErrCodeInspectorNotFound)
	ErrInvalidInspectionStatus = errors.NewStateError("operation not allowed in the current inspection status", errors.ErrCodeInvalidInspectionStatus)
	ErrStaleInspection         = errors.NewStateError("inspection was modified concurrently, reload and retry", errors.ErrCodeStaleInspection)
	ErrReportNotFound          = errors.NewNotFoundError("PDF report not found for this inspection", errors.ErrCodeReportNotFound)
)

type Inspection struct {
	ID                    int64      `json:"id"`
	Title                 string     `json:"title"`
	Location              string     `json:"location"`
	EquipmentID           *string    `json:"equipment_id,omitempty"`
	EquipmentType         *string    `json:"equipment_type,omitempty"`
	Status                string     `json:"status"`
	ScheduledDate         time.Time  `json:"scheduled_date"`
	CompletionDate        *time.Time `json:"completion_date,omitempty"`
	Notes                 string     `json:"notes"`
	InspectorID           int64      `json:"inspector_id"`
	InspectorName         string     `json:"inspector,omitempty"`
	AssignedBy            int64      `json:"assigned_by"`
	ReportFindings        *string    `json:"report_findings,omitempty"`
	ReportRecommendations *string    `json:"report_recommendations,omitempty"`
	PDFReportPath         *string    `json:"pdf_report_path,omitempty"`
	SubmittedAt           *time.Time `json:"submitted_at,omitempty"`
	RejectionReason       *string    `json:"rejection_reason,omitempty"`
	RejectionFeedback     *string    `json:"rejection_feedback,omitempty"`
	RejectionCount        int        `json:"rejection_count"`
	LastRejectedAt        *time.Time `json:"last_rejected_at,omitempty"`
	Version               int64      `json:"version"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func NewInspection(managerID int64, dto AssignDTO, scheduled time.Time) *Inspection {
	now := time.Now()
	return &Inspection{
		Title:         dto.Title,
		Location:      dto.Location,
		EquipmentID:   dto.EquipmentID,
		EquipmentType: dto.EquipmentType,
		Status:        StatusScheduled,
		ScheduledDate: scheduled,
		Notes:         dto.Notes,
		InspectorID:   dto.InspectorID,
		AssignedBy:    managerID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (i *Inspection) CanBeSubmitted() bool {
	return i.Status == StatusScheduled || i.Status == StatusRejected || i.Status == StatusPendingReview
}

func (i *Inspection) CanBeReviewed() bool {
	return i.Status == StatusPendingReview
}

// Submit moves the inspection into review. A nil pdfRef keeps the report already on file.
func (i *Inspection) Submit(findings, recommendations, notes string, pdfRef *string, now time.Time) error {
	if !i.CanBeSubmitted() {
		return ErrInvalidInspectionStatus
	}
	i.Status = StatusPendingReview
	i.ReportFindings = &findings
	i.ReportRecommendations = &recommendations
	if notes != "" {
		i.Notes = notes
	}
	if pdfRef != nil {
		i.PDFReportPath = pdfRef
	}
	i.SubmittedAt = &now
	i.UpdatedAt = now
	return nil
}

func (i *Inspection) Approve(notes string, now time.Time) error {
	if !i.CanBeReviewed() {
		return ErrInvalidInspectionStatus
	}
	i.Status = StatusCompleted
	if i.CompletionDate == nil {
		today := startOfDay(now)
		i.CompletionDate = &today
	}
	if notes != "" {
		i.Notes += fmt.Sprintf("\n[Manager Approved: %s]", notes)
	}
	i.UpdatedAt = now
	return nil
}

func (i *Inspection) Reject(reason, feedback string, now time.Time) error {
	if !i.CanBeReviewed() {
		return ErrInvalidInspectionStatus
	}
	i.Status = StatusRejected
	i.RejectionReason = &reason
	if feedback != "" {
		i.RejectionFeedback = &feedback
		i.Notes += fmt.Sprintf("\n[Manager Rejected: %s - %s]", reason, feedback)
	} else {
		i.RejectionFeedback = nil
		i.Notes += fmt.Sprintf("\n[Manager Rejected: %s]", reason)
	}
	i.RejectionCount++
	i.LastRejectedAt = &now
	i.UpdatedAt = now
	return nil
}

func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ToDataModel(i *Inspection) *inspectionDatamodel.Inspection {
	return &inspectionDatamodel.Inspection{
		ID:                    i.ID,
		Title:                 i.Title,
		Location:              i.Location,
		EquipmentID:           i.EquipmentID,
		EquipmentType:         i.EquipmentType,
		Status:                i.Status,
		ScheduledDate:         i.ScheduledDate,
		CompletionDate:        i.CompletionDate,
		Notes:                 i.Notes,
		InspectorID:           i.InspectorID,
		AssignedBy:            i.AssignedBy,
		ReportFindings:        i.ReportFindings,
		ReportRecommendations: i.ReportRecommendations,
		PDFReportPath:         i.PDFReportPath,
		SubmittedAt:           i.SubmittedAt,
		RejectionReason:       i.RejectionReason,
		RejectionFeedback:     i.RejectionFeedback,
		RejectionCount:        i.RejectionCount,
		LastRejectedAt:        i.LastRejectedAt,
		Version:               i.Version,
		CreatedAt:             i.CreatedAt,
		UpdatedAt:             i.UpdatedAt,
	}
}

func FromDataModel(i *inspectionDatamodel.Inspection) *Inspection {
	return &Inspection{
		ID:                    i.ID,
		Title:                 i.Title,
		Location:              i.Location,
		EquipmentID:           i.EquipmentID,
		EquipmentType:         i.EquipmentType,
		Status:                i.Status,
		ScheduledDate:         i.ScheduledDate,
		CompletionDate:        i.CompletionDate,
		Notes:                 i.Notes,
		InspectorID:           i.InspectorID,
		AssignedBy:            i.AssignedBy,
		ReportFindings:        i.ReportFindings,
		ReportRecommendations: i.ReportRecommendations,
		PDFReportPath:         i.PDFReportPath,
		SubmittedAt:           i.SubmittedAt,
		RejectionReason:       i.RejectionReason,
		RejectionFeedback:     i.RejectionFeedback,
		RejectionCount:        i.RejectionCount,
		LastRejectedAt:        i.LastRejectedAt,
		Version:               i.Version,
		CreatedAt:             i.CreatedAt,
		UpdatedAt:             i.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*inspectionDatamodel.Inspection) []*Inspection {
	result := make([]*Inspection, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
