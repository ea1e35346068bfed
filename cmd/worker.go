package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	inspectionPostgres "github.com/frahmantamala/inspection-workflow/internal/inspection/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/reminder"
	reminderPostgres "github.com/frahmantamala/inspection-workflow/internal/reminder/postgres"
	reminderRedis "github.com/frahmantamala/inspection-workflow/internal/reminder/redis"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the background processes that run beside the HTTP server.`,
}

var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Fire due reminders",
	Long:  `Poll for due reminders, mark them sent and publish reminder.due for each one`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startReminderWorker(); err != nil {
			fmt.Fprintf(os.Stderr, "Reminder worker failed: %v\n", err)
			os.Exit(1)
		}
	},
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Print reminder notifications from redis",
	Long:  `Subscribe to every reminders:<user_id> channel and log what arrives`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startNotificationListener(); err != nil {
			fmt.Fprintf(os.Stderr, "Notification listener failed: %v\n", err)
			os.Exit(1)
		}
	},
}

var (
	maxWorkers   int
	batchSize    int
	pollInterval time.Duration
	runOnce      bool
)

func startReminderWorker() error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := initDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var notifier *reminderRedis.Notifier
	if redisClient != nil {
		defer redisClient.Close()
		notifier = reminderRedis.NewNotifier(redisClient)
	} else {
		lg.Warn("redis not configured, reminder.due events are only logged")
	}

	bus := events.NewEventBus(lg)
	defer bus.Close()
	registerEventHandlers(bus, lg, notifier)

	inspections := inspection.NewService(inspectionPostgres.NewInspectionRepository(db), nil, nil, bus, lg)
	service := reminder.NewService(reminderPostgres.NewReminderRepository(db), inspections, bus, lg)

	dispatcherConfig := reminder.DispatcherConfig{
		PollInterval: getDurationFlag(pollInterval, cfg.Reminders.PollInterval),
		BatchSize:    getIntFlag(batchSize, cfg.Reminders.BatchSize),
		MaxWorkers:   maxWorkers,
	}

	if runOnce {
		result, err := service.FireDue(ctx, dispatcherConfig.BatchSize)
		if err != nil {
			return err
		}
		bus.Wait()
		lg.Info("fired due reminders", "fired", result.Fired)
		return nil
	}

	lg.Info("starting reminder worker",
		"max_workers", dispatcherConfig.MaxWorkers,
		"batch_size", dispatcherConfig.BatchSize,
		"poll_interval", dispatcherConfig.PollInterval)

	dispatcher := reminder.NewDispatcher(service, dispatcherConfig, lg)
	dispatcher.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("reminder worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	lg.Info("received signal, shutting down reminder worker", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		dispatcher.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("reminder worker shutdown complete")
	case <-shutdownCtx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}
	return nil
}

func startNotificationListener() error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("redis.url is not configured")
	}
	defer client.Close()

	sub := client.PSubscribe(ctx, reminderRedis.ChannelPattern)
	defer sub.Close()

	lg.Info("listening for reminder notifications. Press Ctrl+C to stop.")
	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var note reminderRedis.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
				lg.Warn("unreadable notification", "channel", msg.Channel, "error", err)
				continue
			}
			lg.Info("reminder notification",
				"channel", msg.Channel,
				"reminder_id", note.ReminderID,
				"user_id", note.UserID,
				"title", note.Title,
				"remind_at", note.RemindAt)
		case <-ctx.Done():
			lg.Info("notification listener stopped")
			return nil
		}
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	reminderWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of notify workers")
	reminderWorkerCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Reminders claimed per poll (overrides config)")
	reminderWorkerCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Time between polls (overrides config)")
	reminderWorkerCmd.Flags().BoolVar(&runOnce, "once", false, "Fire what is due now and exit")

	workerCmd.AddCommand(reminderWorkerCmd)
	workerCmd.AddCommand(notificationWorkerCmd)
}
