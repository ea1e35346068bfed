package user

import (
	"strings"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/common/validation"
)

const MinPasswordLength = 6

type UpdateProfileDTO struct {
	Email           *string `json:"email"`
	FullName        *string `json:"full_name"`
	Phone           *string `json:"phone"`
	YearsExperience *int    `json:"years_experience"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type CreateUserDTO struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	FullName        string  `json:"full_name"`
	Role            string  `json:"role"`
	Password        string  `json:"password"`
	Phone           *string `json:"phone"`
	YearsExperience *int    `json:"years_experience"`
}

type UpdateUserDTO struct {
	UpdateProfileDTO
	Role *string `json:"role"`
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

type ResetPasswordDTO struct {
	NewPassword string `json:"new_password"`
}

type ListFilter struct {
	Role            string
	IncludeInactive bool
	ExcludeID       int64
}

func roleRule(v *validation.ValidationBuilder, role string) {
	v.Field("role", role).OneOf(errors.ErrCodeInvalidRole, auth.RoleInspector, auth.RoleManager)
}

func (d *UpdateProfileDTO) Normalize() {
	if d.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*d.Email))
		d.Email = &e
	}
	if d.FullName != nil {
		n := strings.TrimSpace(*d.FullName)
		d.FullName = &n
	}
}

func (d UpdateProfileDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Email != nil {
		v.Field("email", *d.Email).Required().Email().MaxLength(255)
	}
	if d.FullName != nil {
		v.Field("full_name", *d.FullName).Required().MaxLength(255)
	}
	v.Field("years_experience", d.YearsExperience).Min(0)
	return v.Validate()
}

func (d ChangePasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(MinPasswordLength)
	return v.Validate()
}

func (d *CreateUserDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.FullName = strings.TrimSpace(d.FullName)
}

func (d CreateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("email", d.Email).Required().Email().MaxLength(255)
	v.Field("full_name", d.FullName).Required().MaxLength(255)
	v.Field("role", d.Role).Required()
	roleRule(v, d.Role)
	v.Field("password", d.Password).MinLength(MinPasswordLength)
	v.Field("years_experience", d.YearsExperience).Min(0)
	return v.Validate()
}

func (d UpdateUserDTO) Validate() *errors.AppError {
	if appErr := d.UpdateProfileDTO.Validate(); appErr != nil {
		return appErr
	}
	if d.Role != nil {
		v := validation.NewValidator()
		v.Field("role", *d.Role).Required()
		roleRule(v, *d.Role)
		return v.Validate()
	}
	return nil
}

func (d SetActiveDTO) Validate() *errors.AppError {
	if d.IsActive == nil {
		return errors.NewValidationFieldError("is_active", "is_active is required", errors.ErrCodeValidationFailed)
	}
	return nil
}

func (d ResetPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("new_password", d.NewPassword).MinLength(MinPasswordLength)
	return v.Validate()
}
