package inspection

import "time"

type Inspection struct {
	ID                    int64      `gorm:"primaryKey"`
	Title                 string     `gorm:"column:title;not null"`
	Location              string     `gorm:"column:location;not null"`
	EquipmentID           *string    `gorm:"column:equipment_id"`
	EquipmentType         *string    `gorm:"column:equipment_type"`
	Status                string     `gorm:"column:status;not null;index"`
	ScheduledDate         time.Time  `gorm:"column:scheduled_date;not null"`
	CompletionDate        *time.Time `gorm:"column:completion_date"`
	Notes                 string     `gorm:"column:notes"`
	InspectorID           int64      `gorm:"column:inspector_id;not null;index"`
	AssignedBy            int64      `gorm:"column:assigned_by;not null"`
	ReportFindings        *string    `gorm:"column:report_findings"`
	ReportRecommendations *string    `gorm:"column:report_recommendations"`
	PDFReportPath         *string    `gorm:"column:pdf_report_path"`
	SubmittedAt           *time.Time `gorm:"column:submitted_at"`
	RejectionReason       *string    `gorm:"column:rejection_reason"`
	RejectionFeedback     *string    `gorm:"column:rejection_feedback"`
	RejectionCount        int        `gorm:"column:rejection_count;not null;default:0"`
	LastRejectedAt        *time.Time `gorm:"column:last_rejected_at"`
	Version               int64      `gorm:"column:version;not null;default:1"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Inspection) TableName() string {
	return "inspections"
}
