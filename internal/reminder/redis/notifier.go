// Package redis fans due reminders out to per-user pub/sub channels.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "reminders:"

// ChannelPattern matches every per-user reminder channel.
const ChannelPattern = channelPrefix + "*"

// Notification is the payload published on reminders:<user_id>.
type Notification struct {
	EventID      string    `json:"event_id"`
	ReminderID   int64     `json:"reminder_id"`
	InspectionID int64     `json:"inspection_id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message,omitempty"`
	RemindAt     time.Time `json:"remind_at"`
}

type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func Channel(userID int64) string {
	return channelPrefix + strconv.FormatInt(userID, 10)
}

// HandleReminderDue is an events.Handler for reminder.due.
func (n *Notifier) HandleReminderDue(ctx context.Context, event events.Event) error {
	due, ok := event.(*events.ReminderDueEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	return n.Publish(ctx, Notification{
		EventID:      due.EventID(),
		ReminderID:   due.ReminderID,
		InspectionID: due.InspectionID,
		UserID:       due.UserID,
		Title:        due.Title,
		Message:      due.Message,
		RemindAt:     due.RemindAt,
	})
}

func (n *Notifier) Publish(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal reminder notification: %w", err)
	}
	if err := n.client.Publish(ctx, Channel(note.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish reminder notification: %w", err)
	}
	return nil
}
