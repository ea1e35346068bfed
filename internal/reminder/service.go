package reminder

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
)

// Repository lookups return nil, nil on a miss.
type Repository interface {
	Create(ctx context.Context, row *reminderDatamodel.Reminder) error
	GetByID(ctx context.Context, id int64) (*reminderDatamodel.Reminder, error)
	ListForUser(ctx context.Context, userID int64) ([]*reminderDatamodel.Reminder, error)
	ListDue(ctx context.Context, userID int64, now time.Time) ([]*reminderDatamodel.Reminder, error)
	Dismiss(ctx context.Context, id int64) error
	// ListPendingDue is the worker's view across all users, oldest fire time first.
	ListPendingDue(ctx context.Context, now time.Time, limit int) ([]*reminderDatamodel.Reminder, error)
	// MarkSent moves a reminder from pending to sent and reports whether this call did it.
	MarkSent(ctx context.Context, id int64, at time.Time) (bool, error)
	InspectionTitles(ctx context.Context, ids []int64) (map[int64]string, error)
}

// InspectionFinder resolves an inspection the actor is allowed to see.
type InspectionFinder interface {
	Get(ctx context.Context, actor *auth.Actor, id int64) (*inspection.Inspection, error)
}

type Service struct {
	repo        Repository
	inspections InspectionFinder
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires reminders. publisher may be nil.
func NewService(repo Repository, inspections InspectionFinder, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		inspections: inspections,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateDTO) (*Reminder, error) {
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	insp, err := s.inspections.Get(ctx, actor, dto.InspectionID)
	if err != nil {
		return nil, err
	}
	remindAt, err := ParseFireTime(dto.RemindAt)
	if err != nil {
		return nil, err
	}

	rem := NewReminder(actor.ID, dto, remindAt)
	row := ToDataModel(rem)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create reminder", "error", err, "inspection_id", dto.InspectionID, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to create reminder", err)
	}

	rem = FromDataModel(row)
	rem.InspectionTitle = insp.Title
	s.logger.Info("reminder created",
		"reminder_id", rem.ID,
		"inspection_id", rem.InspectionID,
		"user_id", actor.ID,
		"remind_at", rem.RemindAt)
	return rem, nil
}

// ListMine returns every reminder of the caller ordered by fire time.
func (s *Service) ListMine(ctx context.Context, actor *auth.Actor) ([]*Reminder, error) {
	rows, err := s.repo.ListForUser(ctx, actor.ID)
	if err != nil {
		s.logger.Error("failed to list reminders", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to list reminders", err)
	}
	return s.withTitles(ctx, FromDataModelSlice(rows))
}

// ListDue returns the caller's pending reminders with a fire time at or before now.
func (s *Service) ListDue(ctx context.Context, actor *auth.Actor, now time.Time) ([]*Reminder, error) {
	rows, err := s.repo.ListDue(ctx, actor.ID, now)
	if err != nil {
		s.logger.Error("failed to list due reminders", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to list due reminders", err)
	}
	return s.withTitles(ctx, FromDataModelSlice(rows))
}

// Dismiss is owner only. A second dismiss returns the reminder unchanged.
func (s *Service) Dismiss(ctx context.Context, actor *auth.Actor, id int64) (*Reminder, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewStorageError("failed to load reminder", err)
	}
	if row == nil || row.UserID != actor.ID {
		return nil, ErrReminderNotFound
	}

	rem := FromDataModel(row)
	if rem.Dismiss() {
		if err := s.repo.Dismiss(ctx, id); err != nil {
			s.logger.Error("failed to dismiss reminder", "error", err, "reminder_id", id)
			return nil, errors.NewStorageError("failed to dismiss reminder", err)
		}
		s.logger.Info("reminder dismissed", "reminder_id", id, "user_id", actor.ID)
	}
	return rem, nil
}

// ClaimDue marks up to limit due reminders as sent. A reminder claimed by
// another worker in the meantime is skipped.
func (s *Service) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Reminder, error) {
	rows, err := s.repo.ListPendingDue(ctx, now, limit)
	if err != nil {
		return nil, errors.NewStorageError("failed to list due reminders", err)
	}

	claimed := make([]*Reminder, 0, len(rows))
	for _, row := range rows {
		ok, err := s.repo.MarkSent(ctx, row.ID, now)
		if err != nil {
			s.logger.Error("failed to mark reminder sent", "error", err, "reminder_id", row.ID)
			return claimed, errors.NewStorageError("failed to mark reminder sent", err)
		}
		if !ok {
			continue
		}
		rem := FromDataModel(row)
		rem.MarkSent(now)
		claimed = append(claimed, rem)
	}
	return s.withTitles(ctx, claimed)
}

// Notify publishes reminder.due for a claimed reminder.
func (s *Service) Notify(ctx context.Context, rem *Reminder) error {
	if s.publisher == nil {
		return nil
	}
	event := events.NewReminderDueEvent(rem.ID, rem.InspectionID, rem.UserID, rem.Title, rem.Message, rem.RemindAt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish reminder event", "error", err, "reminder_id", rem.ID)
		return err
	}
	return nil
}

// FireDue claims and notifies in one pass; the dispatcher does the same
// through its worker pool.
func (s *Service) FireDue(ctx context.Context, limit int) (FireResult, error) {
	claimed, err := s.ClaimDue(ctx, s.now(), limit)
	for _, rem := range claimed {
		_ = s.Notify(ctx, rem)
	}
	if len(claimed) > 0 {
		s.logger.Info("reminders fired", "count", len(claimed))
	}
	return FireResult{Fired: len(claimed)}, err
}

func (s *Service) withTitles(ctx context.Context, reminders []*Reminder) ([]*Reminder, error) {
	if len(reminders) == 0 {
		return reminders, nil
	}
	ids := make([]int64, 0, len(reminders))
	for _, rem := range reminders {
		ids = append(ids, rem.InspectionID)
	}
	titles, err := s.repo.InspectionTitles(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve inspection titles", "error", err)
		return reminders, nil
	}
	for _, rem := range reminders {
		rem.InspectionTitle = titles[rem.InspectionID]
	}
	return reminders, nil
}
