package reminder

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/frahmantamala/inspection-workflow/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *auth.Actor, dto CreateDTO) (*Reminder, error)
	ListMine(ctx context.Context, actor *auth.Actor) ([]*Reminder, error)
	ListDue(ctx context.Context, actor *auth.Actor, now time.Time) ([]*Reminder, error)
	Dismiss(ctx context.Context, actor *auth.Actor, id int64) (*Reminder, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Now     func() time.Time
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Now:         time.Now,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request, name string) (*auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error(name + ": actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
	}
	return actor, ok
}

// CreateReminder handles POST /reminders
func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "CreateReminder")
	if !ok {
		return
	}

	var dto CreateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rem, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.Logger.Error("CreateReminder: service error", "error", err, "actor_id", actor.ID, "inspection_id", dto.InspectionID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateReminder: reminder created", "reminder_id", rem.ID, "remind_at", rem.RemindAt)
	h.WriteJSON(w, http.StatusCreated, rem)
}

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListReminders")
	if !ok {
		return
	}

	reminders, err := h.Service.ListMine(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{TotalCount: len(reminders), Reminders: reminders})
}

// DueReminders handles GET /reminders/due
func (h *Handler) DueReminders(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DueReminders")
	if !ok {
		return
	}

	reminders, err := h.Service.ListDue(r.Context(), actor, h.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{TotalCount: len(reminders), Reminders: reminders})
}

// DismissReminder handles POST /reminders/{id}/dismiss
func (h *Handler) DismissReminder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DismissReminder")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rem, err := h.Service.Dismiss(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rem)
}
