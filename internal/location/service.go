package location

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	locationDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/location"
)

var (
	ErrLocationNotFound = errors.NewNotFoundError("location not found", errors.ErrCodeLocationNotFound)
	ErrLocationExists   = errors.NewConflictError("location already exists", errors.ErrCodeLocationExists)
	ErrUnknownLocation  = errors.NewValidationError("location is not in the active catalog", errors.ErrCodeUnknownLocation)
)

type RepositoryAPI interface {
	GetAll(ctx context.Context, includeInactive bool) ([]*locationDatamodel.Location, error)
	GetByID(ctx context.Context, id int64) (*locationDatamodel.Location, error)
	GetByName(ctx context.Context, name string) (*locationDatamodel.Location, error)
	CountActive(ctx context.Context) (int64, error)
	Create(ctx context.Context, location *locationDatamodel.Location) error
	Update(ctx context.Context, location *locationDatamodel.Location) error
	Deactivate(ctx context.Context, id int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// List returns active locations; managers may ask for inactive ones too.
func (s *Service) List(ctx context.Context, actor *auth.Actor, includeInactive bool) ([]*Location, error) {
	rows, err := s.repo.GetAll(ctx, includeInactive && actor.IsManager())
	if err != nil {
		s.logger.Error("failed to get locations from repository", "error", err)
		return nil, errors.NewStorageError("failed to list locations", err)
	}

	locations := make([]*Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, FromDataModel(row))
	}
	return locations, nil
}

// Create reactivates an inactive location with the same name instead of duplicating it.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto LocationDTO) (*Location, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil {
		return nil, errors.NewStorageError("failed to look up location", err)
	}
	if existing != nil {
		if existing.IsActive {
			return nil, ErrLocationExists
		}
		loc := FromDataModel(existing)
		loc.Activate(dto.Description)
		if err := s.repo.Update(ctx, ToDataModel(loc)); err != nil {
			return nil, errors.NewStorageError("failed to reactivate location", err)
		}
		s.logger.Info("location reactivated", "location_id", loc.ID, "name", loc.Name)
		return loc, nil
	}

	row := ToDataModel(NewLocation(dto.Name, dto.Description))
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, errors.NewStorageError("failed to create location", err)
	}
	s.logger.Info("location created", "location_id", row.ID, "name", row.Name)
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Actor, id int64, dto LocationDTO) (*Location, error) {
	if err := auth.RequireManager(actor); err != nil {
		return nil, err
	}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	loc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != loc.Name {
		clash, err := s.repo.GetByName(ctx, dto.Name)
		if err != nil {
			return nil, errors.NewStorageError("failed to look up location", err)
		}
		if clash != nil && clash.ID != id {
			return nil, ErrLocationExists
		}
	}

	loc.Name = dto.Name
	loc.Description = dto.Description
	if err := s.repo.Update(ctx, ToDataModel(loc)); err != nil {
		return nil, errors.NewStorageError("failed to update location", err)
	}
	return s.get(ctx, id)
}

// Delete only deactivates; inspections keep the location name they were created with.
func (s *Service) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := auth.RequireManager(actor); err != nil {
		return err
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return errors.NewStorageError("failed to deactivate location", err)
	}
	s.logger.Info("location deactivated", "location_id", id)
	return nil
}

// ValidateName accepts any name while the catalog is empty.
func (s *Service) ValidateName(ctx context.Context, name string) error {
	active, err := s.repo.CountActive(ctx)
	if err != nil {
		return errors.NewStorageError("failed to count locations", err)
	}
	if active == 0 {
		return nil
	}

	row, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return errors.NewStorageError("failed to look up location", err)
	}
	if row == nil || !row.IsActive {
		return ErrUnknownLocation
	}
	return nil
}

func (s *Service) get(ctx context.Context, id int64) (*Location, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewStorageError("failed to load location", err)
	}
	if row == nil {
		return nil, ErrLocationNotFound
	}
	return FromDataModel(row), nil
}
