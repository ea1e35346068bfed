package inspection

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	"github.com/frahmantamala/inspection-workflow/internal/storage"
	"github.com/google/uuid"
)

type Order int

const (
	OrderScheduledDesc Order = iota
	OrderScheduledAsc
	OrderCreatedDesc
	OrderCompletedDesc
	OrderSubmittedAsc
)

type ListQuery struct {
	Scope           Scope
	Statuses        []string
	ExcludeStatuses []string
	Scheduled       Window
	Order           Order
	Limit           int
}

// Repository is scoped on every read. GetByID and GetInspector return nil, nil on a miss.
type Repository interface {
	Create(ctx context.Context, row *inspectionDatamodel.Inspection) error
	GetByID(ctx context.Context, id int64, scope Scope) (*inspectionDatamodel.Inspection, error)
	List(ctx context.Context, q ListQuery) ([]*inspectionDatamodel.Inspection, error)
	// SaveTransition writes the lifecycle columns only if the row still has
	// fromStatus and row.Version; otherwise it returns ErrStaleInspection.
	SaveTransition(ctx context.Context, row *inspectionDatamodel.Inspection, fromStatus string) error
	CountWindow(ctx context.Context, scope Scope, w Window) (WindowCounts, error)
	CountByStatus(ctx context.Context, scope Scope) (map[string]int64, error)
	GetInspector(ctx context.Context, id int64) (*userDatamodel.User, error)
	InspectorNames(ctx context.Context, ids []int64) (map[int64]string, error)
	DeleteAll(ctx context.Context) (ClearResult, error)
}

type LocationValidator interface {
	ValidateName(ctx context.Context, name string) error
}

type Service struct {
	repo      Repository
	locations LocationValidator
	files     storage.FileStorage
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the lifecycle. locations, files and publisher may be nil.
func NewService(repo Repository, locations LocationValidator, files storage.FileStorage, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		locations: locations,
		files:     files,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Assign(ctx context.Context, actor *auth.Actor, dto AssignDTO) (*Inspection, error) {
	if err := auth.RequireManager(actor); err != nil {
		s.logger.Warn("assign denied", "actor_id", actor.ID, "role", actor.Role)
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	scheduled, _ := ParseDate(dto.ScheduledDate)

	inspector, err := s.repo.GetInspector(ctx, dto.InspectorID)
	if err != nil {
		return nil, errors.NewStorageError("failed to look up inspector", err)
	}
	if inspector == nil || !inspector.IsActive {
		return nil, ErrInspectorNotFound
	}

	if s.locations != nil {
		if err := s.locations.ValidateName(ctx, dto.Location); err != nil {
			return nil, err
		}
	}

	insp := NewInspection(actor.ID, dto, scheduled)
	row := ToDataModel(insp)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create inspection", "error", err, "inspector_id", dto.InspectorID)
		return nil, errors.NewStorageError("failed to create inspection", err)
	}

	insp = FromDataModel(row)
	insp.InspectorName = inspector.FullName
	s.logger.Info("inspection assigned",
		"inspection_id", insp.ID,
		"inspector_id", insp.InspectorID,
		"actor_id", actor.ID)
	s.publish(ctx, events.EventTypeInspectionAssigned, insp, actor.ID, "")
	return insp, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Actor, id int64) (*Inspection, error) {
	insp, err := s.load(ctx, id, ScopeFor(actor))
	if err != nil {
		return nil, err
	}
	s.fillInspectorNames(ctx, []*Inspection{insp})
	return insp, nil
}

// List is the role-scoped history view.
func (s *Service) List(ctx context.Context, actor *auth.Actor, filter HistoryFilter) ([]*Inspection, error) {
	if appErr := filter.Validate(); appErr != nil {
		return nil, appErr
	}
	return s.list(ctx, ListQuery{
		Scope:     ScopeFor(actor),
		Statuses:  filter.Statuses(),
		Scheduled: filter.ScheduledRange(s.now()),
		Order:     OrderScheduledDesc,
	})
}

// MyTasks is the inspector's open work, soonest first.
func (s *Service) MyTasks(ctx context.Context, actor *auth.Actor) ([]*Inspection, error) {
	if err := auth.RequireInspector(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, ListQuery{
		Scope:           ScopeFor(actor),
		ExcludeStatuses: []string{StatusCompleted},
		Order:           OrderScheduledAsc,
	})
}

// Recent shows inspectors their latest completed work and managers the latest assignments.
func (s *Service) Recent(ctx context.Context, actor *auth.Actor, limit int) ([]*Inspection, error) {
	q := ListQuery{Scope: ScopeFor(actor), Order: OrderCreatedDesc, Limit: limit}
	if !actor.IsManager() {
		q.Statuses = []string{StatusCompleted}
		q.Order = OrderCompletedDesc
	}
	return s.list(ctx, q)
}

// PendingReview is the manager's review queue, oldest submission first.
func (s *Service) PendingReview(ctx context.Context, actor *auth.Actor) ([]*Inspection, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, ListQuery{
		Scope:    ScopeFor(actor),
		Statuses: []string{StatusPendingReview},
		Order:    OrderSubmittedAsc,
	})
}

// Submit records the report of the assigned inspector and moves the
// inspection into review. An uploaded PDF is removed again if the update fails.
func (s *Service) Submit(ctx context.Context, actor *auth.Actor, id int64, dto SubmitDTO, file *ReportFile) (*Inspection, error) {
	if err := auth.RequireInspector(actor); err != nil {
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if appErr := file.Validate(); appErr != nil {
		return nil, appErr
	}

	insp, err := s.load(ctx, id, ScopeFor(actor))
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAssignee(actor, insp.InspectorID); err != nil {
		return nil, err
	}
	if !insp.CanBeSubmitted() {
		s.logger.Warn("cannot submit inspection in current status", "inspection_id", id, "current_status", insp.Status)
		return nil, ErrInvalidInspectionStatus
	}

	now := s.now()
	var newRef *string
	if file != nil {
		ref, err := s.storeReport(ctx, id, file, now)
		if err != nil {
			return nil, err
		}
		newRef = &ref
	}

	var oldRef string
	if insp.PDFReportPath != nil {
		oldRef = *insp.PDFReportPath
	}
	from := insp.Status
	if err := insp.Submit(dto.Findings, dto.Recommendations, dto.Notes, newRef, now); err != nil {
		s.discard(ctx, newRef)
		return nil, err
	}

	row := ToDataModel(insp)
	if err := s.repo.SaveTransition(ctx, row, from); err != nil {
		s.discard(ctx, newRef)
		return nil, s.transitionError(err, id)
	}

	if newRef != nil && oldRef != "" && oldRef != *newRef {
		s.discard(ctx, &oldRef)
	}

	insp = FromDataModel(row)
	s.logger.Info("inspection submitted for review",
		"inspection_id", id,
		"inspector_id", actor.ID,
		"pdf_uploaded", newRef != nil)
	s.publish(ctx, events.EventTypeInspectionSubmitted, insp, actor.ID, "")
	return insp, nil
}

func (s *Service) Approve(ctx context.Context, actor *auth.Actor, id int64, dto ApproveDTO) (*Inspection, error) {
	if err := auth.RequireManager(actor); err != nil {
		s.logger.Warn("approve denied", "inspection_id", id, "actor_id", actor.ID)
		return nil, err
	}

	insp, err := s.load(ctx, id, ScopeFor(actor))
	if err != nil {
		return nil, err
	}

	from := insp.Status
	if err := insp.Approve(dto.Notes, s.now()); err != nil {
		s.logger.Warn("cannot approve inspection in current status", "inspection_id", id, "current_status", from)
		return nil, err
	}

	row := ToDataModel(insp)
	if err := s.repo.SaveTransition(ctx, row, from); err != nil {
		return nil, s.transitionError(err, id)
	}

	insp = FromDataModel(row)
	s.logger.Info("inspection approved", "inspection_id", id, "actor_id", actor.ID)
	s.publish(ctx, events.EventTypeInspectionApproved, insp, actor.ID, "")
	return insp, nil
}

func (s *Service) Reject(ctx context.Context, actor *auth.Actor, id int64, dto RejectDTO) (*Inspection, error) {
	if err := auth.RequireManager(actor); err != nil {
		s.logger.Warn("reject denied", "inspection_id", id, "actor_id", actor.ID)
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	insp, err := s.load(ctx, id, ScopeFor(actor))
	if err != nil {
		return nil, err
	}

	from := insp.Status
	if err := insp.Reject(dto.Reason, dto.Feedback, s.now()); err != nil {
		s.logger.Warn("cannot reject inspection in current status", "inspection_id", id, "current_status", from)
		return nil, err
	}

	row := ToDataModel(insp)
	if err := s.repo.SaveTransition(ctx, row, from); err != nil {
		return nil, s.transitionError(err, id)
	}

	insp = FromDataModel(row)
	s.logger.Info("inspection rejected",
		"inspection_id", id,
		"actor_id", actor.ID,
		"rejection_count", insp.RejectionCount)
	s.publish(ctx, events.EventTypeInspectionRejected, insp, actor.ID, dto.Reason)
	return insp, nil
}

// Stats counts the current window and, for bounded periods, the change
// against the window before it.
func (s *Service) Stats(ctx context.Context, actor *auth.Actor, rawPeriod string) (*Stats, error) {
	period, err := ParsePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}
	scope := ScopeFor(actor)

	start, bounded := WindowStart(period, s.now())
	if !bounded {
		counts, err := s.repo.CountWindow(ctx, scope, Window{})
		if err != nil {
			return nil, errors.NewStorageError("failed to compute statistics", err)
		}
		return newStats(period, counts, nil), nil
	}

	current, err := s.repo.CountWindow(ctx, scope, Window{From: &start})
	if err != nil {
		return nil, errors.NewStorageError("failed to compute statistics", err)
	}
	prevStart := PreviousWindowStart(period, start)
	previous, err := s.repo.CountWindow(ctx, scope, Window{From: &prevStart, To: &start})
	if err != nil {
		return nil, errors.NewStorageError("failed to compute statistics", err)
	}
	return newStats(period, current, &previous), nil
}

func (s *Service) InspectorStats(ctx context.Context, actor *auth.Actor, inspectorID int64) (*InspectorStats, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	inspector, err := s.repo.GetInspector(ctx, inspectorID)
	if err != nil {
		return nil, errors.NewStorageError("failed to look up inspector", err)
	}
	if inspector == nil {
		return nil, ErrInspectorNotFound
	}

	counts, err := s.repo.CountByStatus(ctx, InspectorScope(inspectorID))
	if err != nil {
		return nil, errors.NewStorageError("failed to compute inspector statistics", err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return &InspectorStats{
		InspectorID:          inspectorID,
		InspectorName:        inspector.FullName,
		TotalInspections:     total,
		CompletedInspections: counts[StatusCompleted],
		PendingInspections:   counts[StatusPendingReview],
		RejectedInspections:  counts[StatusRejected],
		ApprovalRate:         ApprovalRate(counts[StatusCompleted], counts[StatusRejected]),
	}, nil
}

// OpenReport streams the stored PDF of an inspection the actor can see.
func (s *Service) OpenReport(ctx context.Context, actor *auth.Actor, id int64) (io.ReadCloser, string, error) {
	insp, err := s.load(ctx, id, ScopeFor(actor))
	if err != nil {
		return nil, "", err
	}
	if insp.PDFReportPath == nil || *insp.PDFReportPath == "" || s.files == nil {
		return nil, "", ErrReportNotFound
	}

	rc, err := s.files.Open(ctx, *insp.PDFReportPath)
	if err != nil {
		if stdErrors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("report file missing from storage", "inspection_id", id, "ref", *insp.PDFReportPath)
			return nil, "", ErrReportNotFound
		}
		return nil, "", errors.NewStorageError("failed to open PDF report", err)
	}
	return rc, fmt.Sprintf("inspection_%d_report.pdf", id), nil
}

// Clear removes every inspection together with its reminders and messages.
// Users and locations are kept.
func (s *Service) Clear(ctx context.Context) (ClearResult, error) {
	res, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return ClearResult{}, errors.NewStorageError("failed to clear inspections", err)
	}
	s.logger.Info("inspection data cleared",
		"inspections", res.Inspections,
		"messages", res.Messages,
		"reminders", res.Reminders)
	return res, nil
}

func (s *Service) load(ctx context.Context, id int64, scope Scope) (*Inspection, error) {
	row, err := s.repo.GetByID(ctx, id, scope)
	if err != nil {
		s.logger.Error("failed to get inspection", "error", err, "inspection_id", id)
		return nil, errors.NewStorageError("failed to load inspection", err)
	}
	if row == nil {
		return nil, ErrInspectionNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) list(ctx context.Context, q ListQuery) ([]*Inspection, error) {
	rows, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list inspections", "error", err)
		return nil, errors.NewStorageError("failed to list inspections", err)
	}
	inspections := FromDataModelSlice(rows)
	s.fillInspectorNames(ctx, inspections)
	return inspections, nil
}

func (s *Service) fillInspectorNames(ctx context.Context, inspections []*Inspection) {
	if len(inspections) == 0 {
		return
	}
	ids := make([]int64, 0, len(inspections))
	for _, insp := range inspections {
		ids = append(ids, insp.InspectorID)
	}
	names, err := s.repo.InspectorNames(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve inspector names", "error", err)
		return
	}
	for _, insp := range inspections {
		insp.InspectorName = names[insp.InspectorID]
	}
}

func (s *Service) storeReport(ctx context.Context, id int64, file *ReportFile, now time.Time) (string, error) {
	if s.files == nil {
		return "", errors.NewStorageError("file storage is not configured", nil)
	}
	key := fmt.Sprintf("reports/inspection_%d_%s_%s.pdf", id, now.Format("20060102_150405"), uuid.NewString()[:8])
	ref, err := s.files.Put(ctx, key, file.Body, file.Size, "application/pdf")
	if err != nil {
		s.logger.Error("failed to store PDF report", "error", err, "inspection_id", id)
		return "", errors.NewStorageError("failed to store PDF report", err)
	}
	return ref, nil
}

func (s *Service) discard(ctx context.Context, ref *string) {
	if ref == nil || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, *ref); err != nil {
		s.logger.Warn("failed to remove stored report", "error", err, "ref", *ref)
	}
}

func (s *Service) transitionError(err error, id int64) error {
	if stdErrors.Is(err, ErrStaleInspection) {
		s.logger.Warn("inspection transition lost a concurrent update", "inspection_id", id)
		return ErrStaleInspection
	}
	s.logger.Error("failed to save inspection transition", "error", err, "inspection_id", id)
	return errors.NewStorageError("failed to update inspection", err)
}

// publish runs after the transition committed; a failed publish never undoes it.
func (s *Service) publish(ctx context.Context, eventType string, insp *Inspection, actorID int64, reason string) {
	if s.publisher == nil {
		return
	}
	event := events.NewInspectionEvent(eventType, insp.ID, insp.InspectorID, actorID, insp.Status, insp.RejectionCount, reason)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish inspection event", "error", err, "event_type", eventType, "inspection_id", insp.ID)
	}
}
