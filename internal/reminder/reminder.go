package reminder

import (
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
)

const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDismissed = "dismissed"
)

var ErrReminderNotFound = errors.NewNotFoundError("reminder not found", errors.ErrCodeReminderNotFound)

type Reminder struct {
	ID              int64      `json:"id"`
	InspectionID    int64      `json:"inspection_id"`
	InspectionTitle string     `json:"inspection_title,omitempty"`
	UserID          int64      `json:"user_id"`
	Title           string     `json:"title"`
	Message         string     `json:"message,omitempty"`
	RemindAt        time.Time  `json:"remind_at"`
	Status          string     `json:"status"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewReminder(userID int64, dto CreateDTO, remindAt time.Time) *Reminder {
	return &Reminder{
		InspectionID: dto.InspectionID,
		UserID:       userID,
		Title:        dto.Title,
		Message:      dto.Message,
		RemindAt:     remindAt,
		Status:       StatusPending,
	}
}

// Due reports whether a pending reminder should fire at now.
func (r *Reminder) Due(now time.Time) bool {
	return r.Status == StatusPending && !r.RemindAt.After(now)
}

// Dismiss is allowed from pending and sent. Dismissing twice changes nothing.
func (r *Reminder) Dismiss() bool {
	if r.Status == StatusDismissed {
		return false
	}
	r.Status = StatusDismissed
	return true
}

func (r *Reminder) MarkSent(now time.Time) {
	r.Status = StatusSent
	r.SentAt = &now
}

func ToDataModel(r *Reminder) *reminderDatamodel.Reminder {
	return &reminderDatamodel.Reminder{
		ID:           r.ID,
		InspectionID: r.InspectionID,
		UserID:       r.UserID,
		Title:        r.Title,
		Message:      r.Message,
		RemindAt:     r.RemindAt,
		Status:       r.Status,
		SentAt:       r.SentAt,
		CreatedAt:    r.CreatedAt,
	}
}

func FromDataModel(row *reminderDatamodel.Reminder) *Reminder {
	return &Reminder{
		ID:           row.ID,
		InspectionID: row.InspectionID,
		UserID:       row.UserID,
		Title:        row.Title,
		Message:      row.Message,
		RemindAt:     row.RemindAt,
		Status:       row.Status,
		SentAt:       row.SentAt,
		CreatedAt:    row.CreatedAt,
	}
}

func FromDataModelSlice(rows []*reminderDatamodel.Reminder) []*Reminder {
	out := make([]*Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
