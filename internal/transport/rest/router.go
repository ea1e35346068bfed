package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	"github.com/frahmantamala/inspection-workflow/internal/location"
	"github.com/frahmantamala/inspection-workflow/internal/messaging"
	"github.com/frahmantamala/inspection-workflow/internal/reminder"
	"github.com/frahmantamala/inspection-workflow/internal/transport/middleware"
	"github.com/frahmantamala/inspection-workflow/internal/transport/swagger"
	"github.com/frahmantamala/inspection-workflow/internal/user"
	"github.com/go-chi/chi"
)

// Handlers groups everything the router mounts. A nil handler skips its routes.
type Handlers struct {
	Auth       *auth.Handler
	User       *user.Handler
	Location   *location.Handler
	Inspection *inspection.Handler
	Messaging  *messaging.Handler
	Reminder   *reminder.Handler
}

type RouterConfig struct {
	AllowedOrigins string
	OpenAPI        *swagger.Document
	HealthChecks   map[string]Check
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, cfg RouterConfig, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, cfg.HealthChecks)
	rbac := auth.NewRBACAuthorization(logger)

	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if cfg.OpenAPI != nil {
		router.Get("/openapi.yml", cfg.OpenAPI.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Put("/users/me", h.User.UpdateCurrentUser)
				pr.Post("/users/me/password", h.User.ChangePassword)
				pr.Get("/users/contacts", h.User.ListContacts)

				pr.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireManager())
					mr.Get("/users", h.User.ListUsers)
					mr.Post("/users", h.User.CreateUser)
					mr.Get("/users/inspectors", h.User.ListInspectors)
					mr.Get("/users/{id}", h.User.GetUser)
					mr.Put("/users/{id}", h.User.UpdateUser)
					mr.Delete("/users/{id}", h.User.DeleteUser)
					mr.Post("/users/{id}/status", h.User.SetUserStatus)
					mr.Post("/users/{id}/reset-password", h.User.ResetPassword)
				})
			}

			if h.Location != nil {
				pr.Get("/locations", h.Location.GetLocations)
				pr.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireManager())
					mr.Post("/locations", h.Location.CreateLocation)
					mr.Put("/locations/{id}", h.Location.UpdateLocation)
					mr.Delete("/locations/{id}", h.Location.DeleteLocation)
				})
			}

			if h.Inspection != nil {
				pr.Route("/inspections", func(ir chi.Router) {
					ir.Get("/", h.Inspection.ListInspections)
					ir.Get("/stats", h.Inspection.GetStats)
					ir.Get("/recent", h.Inspection.RecentInspections)
					ir.Get("/{id}", h.Inspection.GetInspection)
					ir.Get("/{id}/report", h.Inspection.DownloadReport)
					if h.Messaging != nil {
						ir.Get("/{id}/messages", h.Messaging.InspectionMessages)
					}

					ir.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireManager())
						mr.Post("/", h.Inspection.AssignInspection)
						mr.Get("/pending-review", h.Inspection.PendingReview)
						mr.Post("/{id}/approve", h.Inspection.ApproveInspection)
						mr.Post("/{id}/reject", h.Inspection.RejectInspection)
						mr.Get("/inspectors/{id}/stats", h.Inspection.GetInspectorStats)
					})

					ir.Group(func(sr chi.Router) {
						sr.Use(rbac.RequireInspector())
						sr.Get("/my-tasks", h.Inspection.MyTasks)
						sr.Post("/{id}/submit", h.Inspection.SubmitInspection)
					})
				})
			}

			if h.Messaging != nil {
				pr.Route("/messages", func(mr chi.Router) {
					mr.Post("/", h.Messaging.SendMessage)
					mr.Get("/", h.Messaging.MyMessages)
					mr.Get("/threads", h.Messaging.ListThreads)
					mr.Get("/threads/{thread_id}", h.Messaging.GetThread)
					mr.Get("/unread-count", h.Messaging.UnreadCount)
					mr.Post("/{id}/read", h.Messaging.MarkRead)
					mr.Get("/{id}/attachment", h.Messaging.DownloadAttachment)
				})
			}

			if h.Reminder != nil {
				pr.Route("/reminders", func(rr chi.Router) {
					rr.Post("/", h.Reminder.CreateReminder)
					rr.Get("/", h.Reminder.ListReminders)
					rr.Get("/due", h.Reminder.DueReminders)
					rr.Post("/{id}/dismiss", h.Reminder.DismissReminder)
				})
			}
		})
	})
}

// NotFound keeps unknown routes in the same error shape as handler errors.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"type":"NOT_FOUND","code":"ROUTE_NOT_FOUND","message":"route not found"}}`))
}
