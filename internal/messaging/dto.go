package messaging

import (
	"io"
	"path"
	"strings"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/core/common/validation"
)

type SendDTO struct {
	ReceiverID   int64   `json:"receiver_id"`
	Content      string  `json:"content"`
	Subject      *string `json:"subject"`
	InspectionID *int64  `json:"inspection_id"`
	ReplyToID    *int64  `json:"reply_to_id"`
}

// Attachment is an uploaded file. Body is read once.
type Attachment struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

type MessagesResponse struct {
	TotalCount int        `json:"total_count"`
	Messages   []*Message `json:"messages"`
}

type ThreadsResponse struct {
	TotalCount int       `json:"total_count"`
	Threads    []*Thread `json:"threads"`
}

type ThreadResponse struct {
	ThreadID string     `json:"thread_id"`
	Messages []*Message `json:"messages"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

func (d *SendDTO) Normalize() {
	d.Content = strings.TrimSpace(d.Content)
	if d.Subject != nil {
		s := strings.TrimSpace(*d.Subject)
		if s == "" {
			d.Subject = nil
		} else {
			d.Subject = &s
		}
	}
	if d.InspectionID != nil && *d.InspectionID == 0 {
		d.InspectionID = nil
	}
	if d.ReplyToID != nil && *d.ReplyToID == 0 {
		d.ReplyToID = nil
	}
}

func (d SendDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("receiver_id", d.ReceiverID).Required().Positive()
	v.Field("content", d.Content).Required().MaxLength(10000)
	v.Field("subject", d.Subject).Custom(func(value interface{}) *errors.AppError {
		if s, _ := value.(*string); s != nil && len([]rune(*s)) > 255 {
			return errors.NewValidationFieldError("subject", "subject must be at most 255 characters", errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return v.Validate()
}

func (a *Attachment) Validate() *errors.AppError {
	if a == nil {
		return nil
	}
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(a.Filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return errors.NewValidationFieldError("attachment", "attachment must have a filename", errors.ErrCodeValidationFailed)
	}
	return nil
}

// Name is the declared filename without any directory part.
func (a *Attachment) Name() string {
	return strings.TrimSpace(path.Base(strings.ReplaceAll(a.Filename, "\\", "/")))
}
