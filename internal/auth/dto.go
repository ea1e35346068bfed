package auth

import (
	"strings"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/core/common/validation"
)

// LoginDTO accepts either a username or a staff id as the identifier.
type LoginDTO struct {
	Identifier string `json:"username"`
	Password   string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d *LoginDTO) Normalize() {
	d.Identifier = strings.TrimSpace(d.Identifier)
}

func (d LoginDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("username", d.Identifier).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func (d RefreshTokenDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	return v.Validate()
}
