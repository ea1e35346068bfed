package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	locationDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/location"
	"github.com/frahmantamala/inspection-workflow/internal/location"
	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) location.RepositoryAPI {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) GetAll(ctx context.Context, includeInactive bool) ([]*locationDatamodel.Location, error) {
	var locations []*locationDatamodel.Location
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("name ASC").Find(&locations).Error
	return locations, err
}

// GetByName matches case-insensitively; a miss returns nil, nil.
func (r *LocationRepository) GetByName(ctx context.Context, name string) (*locationDatamodel.Location, error) {
	var loc locationDatamodel.Location
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&loc).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*locationDatamodel.Location, error) {
	var loc locationDatamodel.Location
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *LocationRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&locationDatamodel.Location{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *LocationRepository) Create(ctx context.Context, loc *locationDatamodel.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

// Update writes through a map so a false is_active is not skipped as a zero value.
func (r *LocationRepository) Update(ctx context.Context, loc *locationDatamodel.Location) error {
	return r.db.WithContext(ctx).Model(&locationDatamodel.Location{}).
		Where("id = ?", loc.ID).
		Updates(map[string]interface{}{
			"name":        loc.Name,
			"description": loc.Description,
			"is_active":   loc.IsActive,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *LocationRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&locationDatamodel.Location{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()}).Error
}
