package location

import (
	"time"

	locationDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/location"
)

type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewLocation(name, description string) *Location {
	now := time.Now()
	return &Location{
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (l *Location) Activate(description string) {
	l.IsActive = true
	if description != "" {
		l.Description = description
	}
	l.UpdatedAt = time.Now()
}

func (l *Location) Deactivate() {
	l.IsActive = false
	l.UpdatedAt = time.Now()
}

func ToDataModel(l *Location) *locationDatamodel.Location {
	return &locationDatamodel.Location{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		IsActive:    l.IsActive,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func FromDataModel(l *locationDatamodel.Location) *Location {
	return &Location{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		IsActive:    l.IsActive,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}
