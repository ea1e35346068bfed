package user

import "time"

type User struct {
	ID                 int64      `gorm:"primaryKey"`
	Username           string     `gorm:"column:username;uniqueIndex;not null"`
	StaffID            string     `gorm:"column:staff_id;uniqueIndex;not null"`
	Email              string     `gorm:"column:email;uniqueIndex;not null"`
	FullName           string     `gorm:"column:full_name;not null"`
	PasswordHash       string     `gorm:"column:password_hash;not null"`
	Role               string     `gorm:"column:role;not null;index"`
	Phone              *string    `gorm:"column:phone"`
	YearsExperience    *int       `gorm:"column:years_experience"`
	IsActive           bool       `gorm:"column:is_active;not null;default:true"`
	LastPasswordChange *time.Time `gorm:"column:last_password_change"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
