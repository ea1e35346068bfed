package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInspectionAssigned  = "inspection.assigned"
	EventTypeInspectionSubmitted = "inspection.submitted"
	EventTypeInspectionApproved  = "inspection.approved"
	EventTypeInspectionRejected  = "inspection.rejected"
	EventTypeReminderDue         = "reminder.due"
)

// InspectionEvent covers every lifecycle transition; Type tells them apart.
type InspectionEvent struct {
	BaseEvent
	InspectionID   int64  `json:"inspection_id"`
	InspectorID    int64  `json:"inspector_id"`
	ActorID        int64  `json:"actor_id"`
	Status         string `json:"status"`
	RejectionCount int    `json:"rejection_count"`
	Reason         string `json:"reason,omitempty"`
}

func NewInspectionEvent(eventType string, inspectionID, inspectorID, actorID int64, status string, rejectionCount int, reason string) *InspectionEvent {
	return &InspectionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"inspection_id":   inspectionID,
				"inspector_id":    inspectorID,
				"actor_id":        actorID,
				"status":          status,
				"rejection_count": rejectionCount,
				"reason":          reason,
			},
		},
		InspectionID:   inspectionID,
		InspectorID:    inspectorID,
		ActorID:        actorID,
		Status:         status,
		RejectionCount: rejectionCount,
		Reason:         reason,
	}
}

type ReminderDueEvent struct {
	BaseEvent
	ReminderID   int64     `json:"reminder_id"`
	InspectionID int64     `json:"inspection_id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	RemindAt     time.Time `json:"remind_at"`
}

func NewReminderDueEvent(reminderID, inspectionID, userID int64, title, message string, remindAt time.Time) *ReminderDueEvent {
	return &ReminderDueEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReminderDue,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reminder_id":   reminderID,
				"inspection_id": inspectionID,
				"user_id":       userID,
				"title":         title,
				"message":       message,
				"remind_at":     remindAt,
			},
		},
		ReminderID:   reminderID,
		InspectionID: inspectionID,
		UserID:       userID,
		Title:        title,
		Message:      message,
		RemindAt:     remindAt,
	}
}
