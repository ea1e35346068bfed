package message

import "time"

type Message struct {
	ID             int64      `gorm:"primaryKey"`
	ThreadID       string     `gorm:"column:thread_id;not null;index"`
	InspectionID   *int64     `gorm:"column:inspection_id;index"`
	SenderID       int64      `gorm:"column:sender_id;not null;index"`
	ReceiverID     int64      `gorm:"column:receiver_id;not null;index"`
	ReplyToID      *int64     `gorm:"column:reply_to_id"`
	Subject        *string    `gorm:"column:subject"`
	Content        string     `gorm:"column:content;not null"`
	AttachmentURL  *string    `gorm:"column:attachment_url"`
	AttachmentType *string    `gorm:"column:attachment_type"`
	AttachmentName *string    `gorm:"column:attachment_name"`
	Status         string     `gorm:"column:status;not null;default:unread"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	ReadAt         *time.Time `gorm:"column:read_at"`
}

func (Message) TableName() string {
	return "messages"
}
