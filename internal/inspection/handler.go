package inspection

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/transport"
	"github.com/frahmantamala/inspection-workflow/pkg/logger"
)

const defaultMaxUploadBytes = 20 << 20

type ServiceAPI interface {
	Assign(ctx context.Context, actor *auth.Actor, dto AssignDTO) (*Inspection, error)
	Get(ctx context.Context, actor *auth.Actor, id int64) (*Inspection, error)
	List(ctx context.Context, actor *auth.Actor, filter HistoryFilter) ([]*Inspection, error)
	MyTasks(ctx context.Context, actor *auth.Actor) ([]*Inspection, error)
	Recent(ctx context.Context, actor *auth.Actor, limit int) ([]*Inspection, error)
	PendingReview(ctx context.Context, actor *auth.Actor) ([]*Inspection, error)
	Submit(ctx context.Context, actor *auth.Actor, id int64, dto SubmitDTO, file *ReportFile) (*Inspection, error)
	Approve(ctx context.Context, actor *auth.Actor, id int64, dto ApproveDTO) (*Inspection, error)
	Reject(ctx context.Context, actor *auth.Actor, id int64, dto RejectDTO) (*Inspection, error)
	Stats(ctx context.Context, actor *auth.Actor, period string) (*Stats, error)
	InspectorStats(ctx context.Context, actor *auth.Actor, inspectorID int64) (*InspectorStats, error)
	OpenReport(ctx context.Context, actor *auth.Actor, id int64) (io.ReadCloser, string, error)
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

// AssignInspection handles POST /inspections
func (h *Handler) AssignInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "AssignInspection")
	if !ok {
		return
	}

	var dto AssignDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	insp, err := h.Service.Assign(r.Context(), actor, dto)
	if err != nil {
		h.Logger.Error("AssignInspection: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("AssignInspection: inspection assigned",
		"inspection_id", insp.ID,
		"inspector_id", insp.InspectorID)
	h.WriteJSON(w, http.StatusCreated, insp)
}

// ListInspections handles GET /inspections?month=&year=&status=
func (h *Handler) ListInspections(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListInspections")
	if !ok {
		return
	}

	filter, err := historyFilterFromQuery(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	inspections, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		h.Logger.Error("ListInspections: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{TotalCount: len(inspections), Inspections: inspections})
}

func (h *Handler) GetInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetInspection")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	insp, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, insp)
}

func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "MyTasks")
	if !ok {
		return
	}

	inspections, err := h.Service.MyTasks(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{TotalCount: len(inspections), Inspections: inspections})
}

func (h *Handler) RecentInspections(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "RecentInspections")
	if !ok {
		return
	}

	inspections, err := h.Service.Recent(r.Context(), actor, h.QueryInt(r, "limit", 5, 100))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{TotalCount: len(inspections), Inspections: inspections})
}

func (h *Handler) PendingReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "PendingReview")
	if !ok {
		return
	}

	inspections, err := h.Service.PendingReview(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{TotalCount: len(inspections), Inspections: inspections})
}

// SubmitInspection handles POST /inspections/{id}/submit. It takes either a
// JSON body or a multipart form with an optional pdf_file part.
func (h *Handler) SubmitInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "SubmitInspection")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var (
		dto  SubmitDTO
		file *ReportFile
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
		if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
			h.Logger.Error("SubmitInspection: invalid multipart form", "error", err)
			h.HandleServiceError(w, errors.NewValidationError("invalid multipart form", errors.ErrCodeValidationFailed).WithCause(err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		dto = SubmitDTO{
			Findings:        r.FormValue("findings"),
			Recommendations: r.FormValue("recommendations"),
			Notes:           r.FormValue("notes"),
		}
		part, header, err := r.FormFile("pdf_file")
		switch {
		case err == nil:
			defer part.Close()
			file = &ReportFile{
				Body:        part,
				Size:        header.Size,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
			}
		case !stdErrors.Is(err, http.ErrMissingFile):
			h.HandleServiceError(w, errors.NewValidationError("invalid pdf_file", errors.ErrCodeValidationFailed).WithCause(err))
			return
		}
	} else if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	insp, err := h.Service.Submit(r.Context(), actor, id, dto, file)
	if err != nil {
		h.Logger.Error("SubmitInspection: service error", "error", err, "inspection_id", id, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, insp)
}

func (h *Handler) ApproveInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ApproveInspection")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto ApproveDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	insp, err := h.Service.Approve(r.Context(), actor, id, dto)
	if err != nil {
		h.Logger.Error("ApproveInspection: service error", "error", err, "inspection_id", id, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, insp)
}

func (h *Handler) RejectInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "RejectInspection")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto RejectDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	insp, err := h.Service.Reject(r.Context(), actor, id, dto)
	if err != nil {
		h.Logger.Error("RejectInspection: service error", "error", err, "inspection_id", id, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, insp)
}

// GetStats handles GET /inspections/stats?period=day|week|month|year|all
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetStats")
	if !ok {
		return
	}

	stats, err := h.Service.Stats(r.Context(), actor, r.URL.Query().Get("period"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

// GetInspectorStats handles GET /inspectors/{id}/stats
func (h *Handler) GetInspectorStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetInspectorStats")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	stats, err := h.Service.InspectorStats(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

// DownloadReport handles GET /inspections/{id}/report
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DownloadReport")
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rc, filename, err := h.Service.OpenReport(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Error("DownloadReport: failed to stream report", "error", err, "inspection_id", id)
	}
}

func historyFilterFromQuery(r *http.Request) (HistoryFilter, error) {
	q := r.URL.Query()
	filter := HistoryFilter{Status: q.Get("status")}
	for key, dst := range map[string]*int{"month": &filter.Month, "year": &filter.Year} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.NewValidationFieldError(key, key+" must be a number", errors.ErrCodeInvalidDate)
		}
		*dst = v
	}
	return filter, nil
}
