package messaging

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/frahmantamala/inspection-workflow/pkg/logger"
	"github.com/go-chi/chi"
)

const defaultMaxUploadBytes = 20 << 20

type ServiceAPI interface {
	Send(ctx context.Context, actor *auth.Actor, dto SendDTO, file *Attachment) (*Message, error)
	ListThreads(ctx context.Context, actor *auth.Actor) ([]*Thread, error)
	GetThread(ctx context.Context, actor *auth.Actor, threadID string) ([]*Message, error)
	MarkRead(ctx context.Context, actor *auth.Actor, id int64) (*Message, error)
	UnreadCount(ctx context.Context, actor *auth.Actor) (int64, error)
	InspectionMessages(ctx context.Context, actor *auth.Actor, inspectionID int64) ([]*Message, error)
	MyMessages(ctx context.Context, actor *auth.Actor) ([]*Message, error)
	OpenAttachment(ctx context.Context, actor *auth.Actor, id int64) (io.ReadCloser, *Message, error)
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	MaxUploadBytes int64
}

func NewHandler(svc ServiceAPI, maxUploadBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		Service:        svc,
		MaxUploadBytes: maxUploadBytes,
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

// SendMessage handles POST /messages. It takes either a JSON body or a
// multipart form with an optional attachment part.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "SendMessage")
	if !ok {
		return
	}

	var (
		dto  SendDTO
		file *Attachment
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
		if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
			h.Logger.Error("SendMessage: invalid multipart form", "error", err)
			h.HandleServiceError(w, errors.NewValidationError("invalid multipart form", errors.ErrCodeValidationFailed).WithCause(err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		if dto, err = sendDTOFromForm(r); err != nil {
			h.HandleServiceError(w, err)
			return
		}
		part, header, err := r.FormFile("attachment")
		switch {
		case err == nil:
			defer part.Close()
			file = &Attachment{
				Body:        part,
				Size:        header.Size,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
			}
		case !stdErrors.Is(err, http.ErrMissingFile):
			h.HandleServiceError(w, errors.NewValidationError("invalid attachment", errors.ErrCodeValidationFailed).WithCause(err))
			return
		}
	} else if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	msg, err := h.Service.Send(r.Context(), actor, dto, file)
	if err != nil {
		h.Logger.Error("SendMessage: service error", "error", err, "actor_id", actor.ID, "receiver_id", dto.ReceiverID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("SendMessage: message sent", "message_id", msg.ID, "thread_id", msg.ThreadID)
	h.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListThreads")
	if !ok {
		return
	}

	threads, err := h.Service.ListThreads(r.Context(), actor)
	if err != nil {
		h.Logger.Error("ListThreads: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ThreadsResponse{TotalCount: len(threads), Threads: threads})
}

// GetThread handles GET /messages/threads/{thread_id}
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetThread")
	if !ok {
		return
	}
	threadID := strings.TrimSpace(chi.URLParam(r, "thread_id"))
	if threadID == "" {
		h.HandleServiceError(w, errors.NewValidationFieldError("thread_id", "thread id is required", errors.ErrCodeValidationFailed))
		return
	}

	messages, err := h.Service.GetThread(r.Context(), actor, threadID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ThreadResponse{ThreadID: threadID, Messages: messages})
}

// MarkRead handles POST /messages/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "MarkRead")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	msg, err := h.Service.MarkRead(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "UnreadCount")
	if !ok {
		return
	}

	n, err := h.Service.UnreadCount(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: n})
}

// InspectionMessages handles GET /inspections/{id}/messages
func (h *Handler) InspectionMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "InspectionMessages")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	messages, err := h.Service.InspectionMessages(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessagesResponse{TotalCount: len(messages), Messages: messages})
}

func (h *Handler) MyMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "MyMessages")
	if !ok {
		return
	}

	messages, err := h.Service.MyMessages(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MessagesResponse{TotalCount: len(messages), Messages: messages})
}

// DownloadAttachment handles GET /messages/{id}/attachment
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DownloadAttachment")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rc, msg, err := h.Service.OpenAttachment(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer rc.Close()

	name := ""
	if msg.AttachmentName != nil {
		name = *msg.AttachmentName
	}
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Error("DownloadAttachment: failed to stream attachment", "error", err, "message_id", id)
	}
}

func sendDTOFromForm(r *http.Request) (SendDTO, error) {
	dto := SendDTO{Content: r.FormValue("content")}
	if s := r.FormValue("subject"); s != "" {
		dto.Subject = &s
	}

	ids := map[string]**int64{"inspection_id": &dto.InspectionID, "reply_to_id": &dto.ReplyToID}
	if raw := r.FormValue("receiver_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, errors.NewValidationFieldError("receiver_id", "receiver_id must be a number", errors.ErrCodeValidationFailed)
		}
		dto.ReceiverID = v
	}
	for key, dst := range ids {
		raw := r.FormValue(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, errors.NewValidationFieldError(key, key+" must be a number", errors.ErrCodeValidationFailed)
		}
		*dst = &v
	}
	return dto, nil
}
