package messaging

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
)

const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

const (
	PreviewLength  = 100
	DefaultSubject = "No subject"
	SenderYou      = "You"
)

var (
	ErrMessageNotFound    = errors.NewNotFoundError("message not found", errors.ErrCodeMessageNotFound)
	ErrThreadNotFound     = errors.NewNotFoundError("thread not found", errors.ErrCodeThreadNotFound)
	ErrInspectionNotFound = errors.NewNotFoundError("inspection not found", errors.ErrCodeInspectionNotFound)
	ErrAttachmentNotFound = errors.NewNotFoundError("attachment not found", errors.ErrCodeNoAttachment)
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".heic": true,
	".tif":  true,
	".tiff": true,
}

// ThreadID is symmetric in a and b. Inspection threads never collide with
// general ones because of the prefix.
func ThreadID(a, b int64, inspectionID *int64) string {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if inspectionID != nil {
		return fmt.Sprintf("inspection_%d_user_%d_%d", *inspectionID, lo, hi)
	}
	return fmt.Sprintf("user_%d_%d", lo, hi)
}

// Preview cuts content to PreviewLength characters and marks the cut with "...".
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	return string([]rune(content)[:PreviewLength]) + "..."
}

// ClassifyAttachment only looks at the extension of the declared filename.
func ClassifyAttachment(filename string) string {
	if imageExtensions[strings.ToLower(path.Ext(filename))] {
		return AttachmentImage
	}
	return AttachmentFile
}

type Message struct {
	ID             int64      `json:"id"`
	ThreadID       string     `json:"thread_id"`
	InspectionID   *int64     `json:"inspection_id,omitempty"`
	SenderID       int64      `json:"sender_id"`
	SenderName     string     `json:"sender_name,omitempty"`
	ReceiverID     int64      `json:"receiver_id"`
	ReceiverName   string     `json:"receiver_name,omitempty"`
	ReplyToID      *int64     `json:"reply_to_id,omitempty"`
	Subject        *string    `json:"subject,omitempty"`
	Content        string     `json:"content"`
	AttachmentURL  *string    `json:"attachment_url,omitempty"`
	AttachmentType *string    `json:"attachment_type,omitempty"`
	AttachmentName *string    `json:"attachment_name,omitempty"`
	Status         string     `json:"status"`
	IsSender       bool       `json:"is_sender"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type Thread struct {
	ThreadID        string      `json:"thread_id"`
	OtherUser       Participant `json:"other_user"`
	Subject         string      `json:"subject"`
	LastMessage     string      `json:"last_message"`
	LastMessageTime time.Time   `json:"last_message_time"`
	LastSender      string      `json:"last_sender"`
	MessageCount    int64       `json:"message_count"`
	UnreadCount     int64       `json:"unread_count"`
	InspectionID    *int64      `json:"inspection_id,omitempty"`
	InspectionTitle *string     `json:"inspection_title,omitempty"`
}

func NewMessage(senderID int64, dto SendDTO, now time.Time) *Message {
	return &Message{
		ThreadID:     ThreadID(senderID, dto.ReceiverID, dto.InspectionID),
		InspectionID: dto.InspectionID,
		SenderID:     senderID,
		ReceiverID:   dto.ReceiverID,
		ReplyToID:    dto.ReplyToID,
		Subject:      dto.Subject,
		Content:      dto.Content,
		Status:       StatusUnread,
		CreatedAt:    now,
	}
}

func (m *Message) Attach(ref, filename string) {
	kind := ClassifyAttachment(filename)
	m.AttachmentURL = &ref
	m.AttachmentType = &kind
	m.AttachmentName = &filename
}

func (m *Message) HasParticipant(userID int64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// OtherParticipant is the side of the conversation that is not userID.
func (m *Message) OtherParticipant(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// MarkRead reports whether the message changed. Already read messages stay as they are.
func (m *Message) MarkRead(now time.Time) bool {
	if m.Status != StatusUnread {
		return false
	}
	m.Status = StatusRead
	m.ReadAt = &now
	return true
}

func ToDataModel(m *Message) *messageDatamodel.Message {
	return &messageDatamodel.Message{
		ID:             m.ID,
		ThreadID:       m.ThreadID,
		InspectionID:   m.InspectionID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ReplyToID:      m.ReplyToID,
		Subject:        m.Subject,
		Content:        m.Content,
		AttachmentURL:  m.AttachmentURL,
		AttachmentType: m.AttachmentType,
		AttachmentName: m.AttachmentName,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
}

func FromDataModel(row *messageDatamodel.Message) *Message {
	return &Message{
		ID:             row.ID,
		ThreadID:       row.ThreadID,
		InspectionID:   row.InspectionID,
		SenderID:       row.SenderID,
		ReceiverID:     row.ReceiverID,
		ReplyToID:      row.ReplyToID,
		Subject:        row.Subject,
		Content:        row.Content,
		AttachmentURL:  row.AttachmentURL,
		AttachmentType: row.AttachmentType,
		AttachmentName: row.AttachmentName,
		Status:         row.Status,
		CreatedAt:      row.CreatedAt,
		ReadAt:         row.ReadAt,
	}
}

func FromDataModelSlice(rows []*messageDatamodel.Message) []*Message {
	out := make([]*Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out
}
