package reminder

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/core/common/validation"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
)

type CreateDTO struct {
	InspectionID int64  `json:"inspection_id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	RemindAt     string `json:"remind_at"`
}

type ListResponse struct {
	TotalCount int         `json:"total_count"`
	Reminders  []*Reminder `json:"reminders"`
}

type FireResult struct {
	Fired int `json:"fired"`
}

// ParseFireTime accepts the ISO 8601 forms inspection dates accept.
func ParseFireTime(raw string) (time.Time, error) {
	t, ok := inspection.ParseDate(raw)
	if !ok {
		return time.Time{}, errors.ErrInvalidFireTime
	}
	return t, nil
}

func (d *CreateDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Message = strings.TrimSpace(d.Message)
	d.RemindAt = strings.TrimSpace(d.RemindAt)
}

func (d CreateDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("inspection_id", d.InspectionID).Required().Positive()
	v.Field("title", d.Title).Required().MaxLength(255)
	v.Field("message", d.Message).MaxLength(2000)
	v.Field("remind_at", d.RemindAt).Required()
	return v.Validate()
}
