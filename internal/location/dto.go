package location

import (
	"strings"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/core/common/validation"
)

type LocationDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LocationsResponse struct {
	Locations []*Location `json:"locations"`
}

func (d *LocationDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
}

func (d LocationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("description", d.Description).MaxLength(1000)
	return v.Validate()
}
