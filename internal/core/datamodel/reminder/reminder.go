package reminder

import "time"

type Reminder struct {
	ID           int64      `gorm:"primaryKey"`
	InspectionID int64      `gorm:"column:inspection_id;not null;index"`
	UserID       int64      `gorm:"column:user_id;not null;index"`
	Title        string     `gorm:"column:title;not null"`
	Message      string     `gorm:"column:message"`
	RemindAt     time.Time  `gorm:"column:remind_at;not null;index"`
	Status       string     `gorm:"column:status;not null;default:pending"`
	SentAt       *time.Time `gorm:"column:sent_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Reminder) TableName() string {
	return "reminders"
}
