package user

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
)

type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	StaffID            string     `json:"staff_id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	Phone              *string    `json:"phone,omitempty"`
	YearsExperience    *int       `json:"years_experience,omitempty"`
	IsActive           bool       `json:"is_active"`
	LastPasswordChange *time.Time `json:"last_password_change,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CreatedUser carries the generated password back exactly once.
type CreatedUser struct {
	*User
	TemporaryPassword string `json:"temporary_password,omitempty"`
}

type PasswordReset struct {
	UserID            int64  `json:"user_id"`
	TemporaryPassword string `json:"temporary_password,omitempty"`
}

type Contact struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

const staffIDPrefix = "S"

func FormatStaffID(n int) string {
	return fmt.Sprintf("%s%03d", staffIDPrefix, n)
}

// ParseStaffNumber extracts the numeric suffix; ids not in the S<digits> form report false.
func ParseStaffNumber(staffID string) (int, bool) {
	if !strings.HasPrefix(staffID, staffIDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(staffID[len(staffIDPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextStaffID returns the id after the highest existing numeric suffix.
func NextStaffID(existing []string) string {
	max := 0
	for _, id := range existing {
		if n, ok := ParseStaffNumber(id); ok && n > max {
			max = n
		}
	}
	return FormatStaffID(max + 1)
}

func (u *User) ToContact() Contact {
	return Contact{ID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:                 u.ID,
		Username:           u.Username,
		StaffID:            u.StaffID,
		Email:              u.Email,
		FullName:           u.FullName,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		Phone:              u.Phone,
		YearsExperience:    u.YearsExperience,
		IsActive:           u.IsActive,
		LastPasswordChange: u.LastPasswordChange,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:                 u.ID,
		Username:           u.Username,
		StaffID:            u.StaffID,
		Email:              u.Email,
		FullName:           u.FullName,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		Phone:              u.Phone,
		YearsExperience:    u.YearsExperience,
		IsActive:           u.IsActive,
		LastPasswordChange: u.LastPasswordChange,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
