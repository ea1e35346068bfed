package inspection

import (
	"io"
	"path"
	"strings"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/core/common/validation"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

type AssignDTO struct {
	InspectorID   int64   `json:"inspector_id"`
	Title         string  `json:"title"`
	Location      string  `json:"location"`
	EquipmentID   *string `json:"equipment_id"`
	EquipmentType *string `json:"equipment_type"`
	ScheduledDate string  `json:"scheduled_date"`
	Notes         string  `json:"notes"`
}

type SubmitDTO struct {
	Findings        string `json:"findings"`
	Recommendations string `json:"recommendations"`
	Notes           string `json:"notes"`
}

// ReportFile is an uploaded PDF report. Body is read once.
type ReportFile struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

type ApproveDTO struct {
	Notes string `json:"notes"`
}

type RejectDTO struct {
	Reason   string `json:"reason"`
	Feedback string `json:"feedback"`
}

// HistoryFilter narrows a listing by scheduled month/year and status.
// A month without a year means that month of the current year.
type HistoryFilter struct {
	Month  int
	Year   int
	Status string
}

type ListResponse struct {
	TotalCount  int           `json:"total_count"`
	Inspections []*Inspection `json:"inspections"`
}

type ClearResult struct {
	Reminders   int64 `json:"reminders"`
	Messages    int64 `json:"messages"`
	Inspections int64 `json:"inspections"`
}

// ParseDate accepts RFC 3339 and the shorter ISO 8601 forms, in local time.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d *AssignDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Location = strings.TrimSpace(d.Location)
	d.Notes = strings.TrimSpace(d.Notes)
	d.ScheduledDate = strings.TrimSpace(d.ScheduledDate)
	d.EquipmentID = trimOptional(d.EquipmentID)
	d.EquipmentType = trimOptional(d.EquipmentType)
}

func (d AssignDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("inspector_id", d.InspectorID).Required().Positive()
	v.Field("title", d.Title).Required().MaxLength(255)
	v.Field("location", d.Location).Required().MaxLength(255)
	v.Field("scheduled_date", d.ScheduledDate).Required().Custom(func(value interface{}) *errors.AppError {
		if s, _ := value.(string); s != "" {
			if _, ok := ParseDate(s); !ok {
				return errors.NewValidationFieldError("scheduled_date", "scheduled_date must be an ISO 8601 date", errors.ErrCodeInvalidDate)
			}
		}
		return nil
	})
	return v.Validate()
}

func (d *SubmitDTO) Normalize() {
	d.Findings = strings.TrimSpace(d.Findings)
	d.Recommendations = strings.TrimSpace(d.Recommendations)
	d.Notes = strings.TrimSpace(d.Notes)
}

func (d SubmitDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("findings", d.Findings).Required()
	v.Field("recommendations", d.Recommendations).Required()
	return v.Validate()
}

func (f *ReportFile) Validate() *errors.AppError {
	if f == nil {
		return nil
	}
	if !strings.EqualFold(path.Ext(f.Filename), ".pdf") {
		return errors.NewValidationFieldError("pdf_file", "report must be a PDF file", errors.ErrCodeValidationFailed)
	}
	return nil
}

func (d *RejectDTO) Normalize() {
	d.Reason = strings.TrimSpace(d.Reason)
	d.Feedback = strings.TrimSpace(d.Feedback)
}

func (d RejectDTO) Validate() *errors.AppError {
	if d.Reason == "" {
		return errors.NewValidationFieldError("reason", "rejection reason is required", errors.ErrCodeRejectionReason)
	}
	v := validation.NewValidator()
	v.Field("reason", d.Reason).MaxLength(500)
	return v.Validate()
}

func (f HistoryFilter) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("month", f.Month).Custom(func(value interface{}) *errors.AppError {
		if m, _ := value.(int); m < 0 || m > 12 {
			return errors.NewValidationFieldError("month", "month must be between 1 and 12", errors.ErrCodeInvalidDate)
		}
		return nil
	})
	v.Field("year", f.Year).Min(0)
	if f.Status != "all" {
		v.Field("status", f.Status).OneOf(errors.ErrCodeInvalidStatus, Statuses...)
	}
	return v.Validate()
}

// ScheduledRange turns month/year into a half-open scheduled_date range.
func (f HistoryFilter) ScheduledRange(now time.Time) Window {
	year := f.Year
	if year == 0 {
		if f.Month == 0 {
			return Window{}
		}
		year = now.Year()
	}
	var from, to time.Time
	if f.Month == 0 {
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		to = from.AddDate(1, 0, 0)
	} else {
		from = time.Date(year, time.Month(f.Month), 1, 0, 0, 0, 0, now.Location())
		to = from.AddDate(0, 1, 0)
	}
	return Window{From: &from, To: &to}
}

// Statuses returns the status filter, or nil for "all".
func (f HistoryFilter) Statuses() []string {
	if f.Status == "" || f.Status == "all" {
		return nil
	}
	return []string{f.Status}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
