package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	authPostgres "github.com/frahmantamala/inspection-workflow/internal/auth/postgres"
	authRedis "github.com/frahmantamala/inspection-workflow/internal/auth/redis"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	inspectionPostgres "github.com/frahmantamala/inspection-workflow/internal/inspection/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/location"
	locationPostgres "github.com/frahmantamala/inspection-workflow/internal/location/postgres"
	"github.com/frahmantamala/inspection-workflow/internal/messaging"
	messagingPostgres "github.com/frahmantamala/inspection-workflow/internal/messaging/postgres"
	messagingRedis "github.com/frahmantamala/inspection-workflow/internal/messaging/redis"
	"github.com/frahmantamala/inspection-workflow/internal/reminder"
	reminderPostgres "github.com/frahmantamala/inspection-workflow/internal/reminder/postgres"
	reminderRedis "github.com/frahmantamala/inspection-workflow/internal/reminder/redis"
	"github.com/frahmantamala/inspection-workflow/internal/storage"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/frahmantamala/inspection-workflow/internal/transport/rest"
	"github.com/frahmantamala/inspection-workflow/internal/transport/swagger"
	"github.com/frahmantamala/inspection-workflow/internal/user"
	userPostgres "github.com/frahmantamala/inspection-workflow/internal/user/postgres"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Files    storage.FileStorage
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
	Handlers rest.Handlers
	OpenAPI  *swagger.Document
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	checks := map[string]rest.Check{}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}

	sqlDB, err := deps.DB.DB()
	if err != nil {
		deps.Logger.Error("failed to get database handle for health checks", "error", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, sqlDB, deps.Handlers, rest.RouterConfig{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		OpenAPI:        deps.OpenAPI,
		HealthChecks:   checks,
	}, deps.Logger)
	deps.Router.NotFound(rest.NotFound)
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, lg, err := setup()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	bus := events.NewEventBus(lg)
	var notifier *reminderRedis.Notifier
	if redisClient != nil {
		notifier = reminderRedis.NewNotifier(redisClient)
	}
	registerEventHandlers(bus, lg, notifier)

	deps := &Dependencies{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Files:    files,
		EventBus: bus,
		Router:   chi.NewRouter(),
		Logger:   lg,
	}
	deps.Handlers = buildHandlers(deps)

	doc, err := swagger.Load(ctx, cfg.Server.OpenAPIPath)
	if err != nil {
		lg.Warn("openapi document not served", "path", cfg.Server.OpenAPIPath, "error", err)
	} else {
		lg.Info("openapi document loaded", "path", cfg.Server.OpenAPIPath, "operations", doc.Operations())
		deps.OpenAPI = doc
	}

	return deps, nil
}

func buildHandlers(deps *Dependencies) rest.Handlers {
	cfg, lg := deps.Config, deps.Logger

	var sessions auth.SessionStore
	var unread messaging.UnreadCache
	if deps.Redis != nil {
		sessions = authRedis.NewSessionStore(deps.Redis, cfg.Redis.SessionPrefix)
		unread = messagingRedis.NewUnreadCache(deps.Redis, cfg.Redis.UnreadCacheTTL)
	}

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.DB), tokens, sessions, lg)
	userService := user.NewService(userPostgres.NewUserRepository(deps.DB), cfg.Security.BCryptCost, lg)
	locationService := location.NewService(locationPostgres.NewLocationRepository(deps.DB), lg)
	inspectionService := inspection.NewService(inspectionPostgres.NewInspectionRepository(deps.DB), locationService, deps.Files, deps.EventBus, lg)
	messagingService := messaging.NewService(messagingPostgres.NewMessageRepository(deps.DB), deps.Files, unread, lg)
	reminderService := reminder.NewService(reminderPostgres.NewReminderRepository(deps.DB), inspectionService, deps.EventBus, lg)

	return rest.Handlers{
		Auth:       auth.NewHandler(authService),
		User:       user.NewHandler(userService),
		Location:   location.NewHandler(transport.NewBaseHandler(lg), locationService),
		Inspection: inspection.NewHandler(inspectionService, cfg.Server.MaxUploadBytes),
		Messaging:  messaging.NewHandler(messagingService, cfg.Server.MaxUploadBytes),
		Reminder:   reminder.NewHandler(reminderService),
	}
}

func (d *Dependencies) close() {
	d.EventBus.Close()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := database.Close(d.DB); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}
