package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/frahmantamala/inspection-workflow/pkg/logger"
)

type ServiceAPI interface {
	Me(ctx context.Context, actor *auth.Actor) (*User, error)
	UpdateMe(ctx context.Context, actor *auth.Actor, dto UpdateProfileDTO) (*User, error)
	ChangePassword(ctx context.Context, actor *auth.Actor, dto ChangePasswordDTO) error
	Contacts(ctx context.Context, actor *auth.Actor) ([]Contact, error)
	List(ctx context.Context, actor *auth.Actor, filter ListFilter) ([]*User, error)
	ListInspectors(ctx context.Context, actor *auth.Actor) ([]*User, error)
	Get(ctx context.Context, actor *auth.Actor, id int64) (*User, error)
	Create(ctx context.Context, actor *auth.Actor, dto CreateUserDTO) (*CreatedUser, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, dto UpdateUserDTO) (*User, error)
	SetActive(ctx context.Context, actor *auth.Actor, id int64, dto SetActiveDTO) (*User, error)
	Delete(ctx context.Context, actor *auth.Actor, id int64) error
	ResetPassword(ctx context.Context, actor *auth.Actor, id int64, dto ResetPasswordDTO) (*PasswordReset, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
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

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetCurrentUser")
	if !ok {
		return
	}

	u, err := h.Service.Me(r.Context(), actor)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service error", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// UpdateCurrentUser handles PUT /users/me
func (h *Handler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "UpdateCurrentUser")
	if !ok {
		return
	}

	var dto UpdateProfileDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.UpdateMe(r.Context(), actor, dto)
	if err != nil {
		h.Logger.Error("UpdateCurrentUser: service error", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ChangePassword handles PUT /users/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ChangePassword")
	if !ok {
		return
	}

	var dto ChangePasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), actor, dto); err != nil {
		h.Logger.Warn("ChangePassword: service error", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// ListContacts handles GET /users/contacts
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListContacts")
	if !ok {
		return
	}

	contacts, err := h.Service.Contacts(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": contacts})
}

// ListUsers handles GET /users?role=&include_inactive=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListUsers")
	if !ok {
		return
	}

	filter := ListFilter{
		Role:            r.URL.Query().Get("role"),
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
	}
	users, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		h.Logger.Error("ListUsers: service error", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// ListInspectors handles GET /inspectors
func (h *Handler) ListInspectors(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListInspectors")
	if !ok {
		return
	}

	inspectors, err := h.Service.ListInspectors(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"inspectors": inspectors})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetUser")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "CreateUser")
	if !ok {
		return
	}

	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	created, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.Logger.Error("CreateUser: service error", "manager_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateUser: user created", "user_id", created.ID, "staff_id", created.StaffID)
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "UpdateUser")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.Logger.Error("UpdateUser: service error", "user_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// SetUserStatus handles PATCH /users/{id}/status
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "SetUserStatus")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto SetActiveDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.SetActive(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DeleteUser")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.Logger.Warn("DeleteUser: service error", "user_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /users/{id}/reset-password; an empty body generates a password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ResetPassword")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto ResetPasswordDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	reset, err := h.Service.ResetPassword(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reset)
}

