package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	reminderRedis "github.com/frahmantamala/inspection-workflow/internal/reminder/redis"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish events through the same handlers the server and worker register`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging. reminder.due events also reach redis when it is configured.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishTestEvent(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to publish event: %v\n", err)
			os.Exit(1)
		}
	},
}

var (
	eventInspectionID int64
	eventUserID       int64
	eventData         string
)

// registerEventHandlers logs lifecycle events and, when notifier is set,
// fans reminder.due out to redis.
func registerEventHandlers(bus *events.EventBus, lg *slog.Logger, notifier *reminderRedis.Notifier) {
	logEvent := func(ctx context.Context, event events.Event) error {
		lg.Info("event handled",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	}
	for _, eventType := range []string{
		events.EventTypeInspectionAssigned,
		events.EventTypeInspectionSubmitted,
		events.EventTypeInspectionApproved,
		events.EventTypeInspectionRejected,
		events.EventTypeReminderDue,
	} {
		bus.Subscribe(eventType, logEvent)
	}

	if notifier != nil {
		bus.Subscribe(events.EventTypeReminderDue, notifier.HandleReminderDue)
	}
}

func publishTestEvent(ctx context.Context, eventType string) error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var notifier *reminderRedis.Notifier
	if redisClient != nil {
		defer redisClient.Close()
		notifier = reminderRedis.NewNotifier(redisClient)
	}

	bus := events.NewEventBus(lg)
	registerEventHandlers(bus, lg, notifier)

	var event events.Event
	switch eventType {
	case events.EventTypeReminderDue:
		event = events.NewReminderDueEvent(0, eventInspectionID, eventUserID, "Test reminder", eventData, time.Now())
	case events.EventTypeInspectionAssigned, events.EventTypeInspectionSubmitted,
		events.EventTypeInspectionApproved, events.EventTypeInspectionRejected:
		event = events.NewInspectionEvent(eventType, eventInspectionID, eventUserID, eventUserID, "", 0, eventData)
	default:
		event = events.BaseEvent{
			ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"message": eventData,
				"source":  "cli-command",
			},
		}
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return err
	}
	bus.Close()

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	publishEventCmd.Flags().Int64Var(&eventInspectionID, "inspection", 1, "Inspection id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventUserID, "user", 1, "User id carried by the event")

	eventCmd.AddCommand(publishEventCmd)
}
