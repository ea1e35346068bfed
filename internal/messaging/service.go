package messaging

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/storage"
	"github.com/google/uuid"
)

// ThreadRow is one conversation as seen by a participant. First and Last are
// the earliest and latest messages of the thread.
type ThreadRow struct {
	ThreadID     string
	MessageCount int64
	UnreadCount  int64
	First        *messageDatamodel.Message
	Last         *messageDatamodel.Message
}

// Repository lookups return nil, nil on a miss.
type Repository interface {
	Create(ctx context.Context, row *messageDatamodel.Message) error
	GetByID(ctx context.Context, id int64) (*messageDatamodel.Message, error)
	// Threads lists every thread userID takes part in, latest activity first.
	Threads(ctx context.Context, userID int64) ([]ThreadRow, error)
	// ThreadMessages returns the thread oldest first, only if userID is a participant.
	ThreadMessages(ctx context.Context, threadID string, userID int64) ([]*messageDatamodel.Message, error)
	MarkThreadRead(ctx context.Context, threadID string, receiverID int64, at time.Time) (int64, error)
	MarkRead(ctx context.Context, id int64, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	ListForInspection(ctx context.Context, inspectionID, userID int64) ([]*messageDatamodel.Message, error)
	ListForUser(ctx context.Context, userID int64) ([]*messageDatamodel.Message, error)
	Users(ctx context.Context, ids []int64) (map[int64]*userDatamodel.User, error)
	InspectionTitles(ctx context.Context, ids []int64) (map[int64]string, error)
}

// UnreadCache holds per-user unread counts. A miss reports ok == false.
type UnreadCache interface {
	Get(ctx context.Context, userID int64) (count int64, ok bool, err error)
	Set(ctx context.Context, userID int64, count int64) error
	Invalidate(ctx context.Context, userIDs ...int64) error
}

type Service struct {
	repo   Repository
	files  storage.FileStorage
	cache  UnreadCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires messaging. files and cache may be nil.
func NewService(repo Repository, files storage.FileStorage, cache UnreadCache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Send(ctx context.Context, actor *auth.Actor, dto SendDTO, file *Attachment) (*Message, error) {
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if dto.ReceiverID == actor.ID {
		s.logger.Warn("self message rejected", "user_id", actor.ID)
		return nil, errors.ErrSelfMessage
	}
	if appErr := file.Validate(); appErr != nil {
		return nil, appErr
	}

	if dto.InspectionID != nil {
		titles, err := s.repo.InspectionTitles(ctx, []int64{*dto.InspectionID})
		if err != nil {
			return nil, errors.NewStorageError("failed to look up inspection", err)
		}
		if _, ok := titles[*dto.InspectionID]; !ok {
			return nil, ErrInspectionNotFound
		}
	}

	users, err := s.repo.Users(ctx, []int64{actor.ID, dto.ReceiverID})
	if err != nil {
		return nil, errors.NewStorageError("failed to look up receiver", err)
	}
	receiver, ok := users[dto.ReceiverID]
	if !ok {
		return nil, errors.ErrUserNotFound
	}

	if dto.ReplyToID != nil {
		parent, err := s.repo.GetByID(ctx, *dto.ReplyToID)
		if err != nil {
			return nil, errors.NewStorageError("failed to look up replied message", err)
		}
		if parent == nil || !FromDataModel(parent).HasParticipant(actor.ID) {
			return nil, ErrMessageNotFound
		}
	}

	msg := NewMessage(actor.ID, dto, s.now())
	var ref *string
	if file != nil {
		stored, err := s.storeAttachment(ctx, msg.ThreadID, file)
		if err != nil {
			return nil, err
		}
		ref = &stored
		msg.Attach(stored, file.Name())
	}

	row := ToDataModel(msg)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create message", "error", err, "sender_id", actor.ID, "receiver_id", dto.ReceiverID)
		s.discard(ctx, ref)
		return nil, errors.NewStorageError("failed to send message", err)
	}
	s.invalidate(ctx, dto.ReceiverID)

	msg = FromDataModel(row)
	msg.IsSender = true
	msg.ReceiverName = receiver.FullName
	if sender, ok := users[actor.ID]; ok {
		msg.SenderName = sender.FullName
	}
	s.logger.Info("message sent",
		"message_id", msg.ID,
		"thread_id", msg.ThreadID,
		"sender_id", actor.ID,
		"receiver_id", dto.ReceiverID,
		"has_attachment", ref != nil)
	return msg, nil
}

func (s *Service) ListThreads(ctx context.Context, actor *auth.Actor) ([]*Thread, error) {
	rows, err := s.repo.Threads(ctx, actor.ID)
	if err != nil {
		s.logger.Error("failed to list threads", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to list threads", err)
	}

	userIDs := make([]int64, 0, len(rows))
	var inspectionIDs []int64
	for _, row := range rows {
		last := FromDataModel(row.Last)
		userIDs = append(userIDs, last.OtherParticipant(actor.ID))
		if last.InspectionID != nil {
			inspectionIDs = append(inspectionIDs, *last.InspectionID)
		}
	}
	users, err := s.lookupUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	titles := map[int64]string{}
	if len(inspectionIDs) > 0 {
		if titles, err = s.repo.InspectionTitles(ctx, inspectionIDs); err != nil {
			return nil, errors.NewStorageError("failed to look up inspections", err)
		}
	}

	threads := make([]*Thread, 0, len(rows))
	for _, row := range rows {
		last := FromDataModel(row.Last)
		other := Participant{ID: last.OtherParticipant(actor.ID)}
		if u, ok := users[other.ID]; ok {
			other.Name = u.FullName
			other.Role = u.Role
		}

		t := &Thread{
			ThreadID:        row.ThreadID,
			OtherUser:       other,
			Subject:         DefaultSubject,
			LastMessage:     Preview(last.Content),
			LastMessageTime: last.CreatedAt,
			LastSender:      other.Name,
			MessageCount:    row.MessageCount,
			UnreadCount:     row.UnreadCount,
			InspectionID:    last.InspectionID,
		}
		if row.First != nil && row.First.Subject != nil && *row.First.Subject != "" {
			t.Subject = *row.First.Subject
		}
		if last.SenderID == actor.ID {
			t.LastSender = SenderYou
		}
		if last.InspectionID != nil {
			if title, ok := titles[*last.InspectionID]; ok {
				t.InspectionTitle = &title
			}
		}
		threads = append(threads, t)
	}
	return threads, nil
}

// GetThread returns the conversation oldest first and marks everything
// addressed to the caller as read.
func (s *Service) GetThread(ctx context.Context, actor *auth.Actor, threadID string) ([]*Message, error) {
	rows, err := s.repo.ThreadMessages(ctx, threadID, actor.ID)
	if err != nil {
		s.logger.Error("failed to load thread", "error", err, "thread_id", threadID)
		return nil, errors.NewStorageError("failed to load thread", err)
	}
	if len(rows) == 0 {
		return nil, ErrThreadNotFound
	}

	now := s.now()
	marked, err := s.repo.MarkThreadRead(ctx, threadID, actor.ID, now)
	if err != nil {
		s.logger.Error("failed to mark thread read", "error", err, "thread_id", threadID, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to mark thread read", err)
	}
	if marked > 0 {
		s.invalidate(ctx, actor.ID)
	}

	messages := FromDataModelSlice(rows)
	for _, m := range messages {
		if m.ReceiverID == actor.ID {
			m.MarkRead(now)
		}
	}
	if err := s.fillNames(ctx, actor.ID, messages); err != nil {
		return nil, err
	}
	s.logger.Debug("thread viewed", "thread_id", threadID, "user_id", actor.ID, "marked_read", marked)
	return messages, nil
}

// MarkRead is for the receiver only and does nothing to a message already read.
func (s *Service) MarkRead(ctx context.Context, actor *auth.Actor, id int64) (*Message, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewStorageError("failed to load message", err)
	}
	if row == nil || row.ReceiverID != actor.ID {
		return nil, ErrMessageNotFound
	}

	msg := FromDataModel(row)
	now := s.now()
	if msg.MarkRead(now) {
		if _, err := s.repo.MarkRead(ctx, id, now); err != nil {
			s.logger.Error("failed to mark message read", "error", err, "message_id", id)
			return nil, errors.NewStorageError("failed to mark message read", err)
		}
		s.invalidate(ctx, actor.ID)
	}
	return msg, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor *auth.Actor) (int64, error) {
	if s.cache != nil {
		n, ok, err := s.cache.Get(ctx, actor.ID)
		if err != nil {
			s.logger.Warn("unread cache read failed", "error", err, "user_id", actor.ID)
		} else if ok {
			return n, nil
		}
	}

	n, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, errors.NewStorageError("failed to count unread messages", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, actor.ID, n); err != nil {
			s.logger.Warn("unread cache write failed", "error", err, "user_id", actor.ID)
		}
	}
	return n, nil
}

// InspectionMessages lists the caller's messages about one inspection, newest first.
func (s *Service) InspectionMessages(ctx context.Context, actor *auth.Actor, inspectionID int64) ([]*Message, error) {
	titles, err := s.repo.InspectionTitles(ctx, []int64{inspectionID})
	if err != nil {
		return nil, errors.NewStorageError("failed to look up inspection", err)
	}
	if _, ok := titles[inspectionID]; !ok {
		return nil, ErrInspectionNotFound
	}

	rows, err := s.repo.ListForInspection(ctx, inspectionID, actor.ID)
	if err != nil {
		return nil, errors.NewStorageError("failed to list messages", err)
	}
	messages := FromDataModelSlice(rows)
	if err := s.fillNames(ctx, actor.ID, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Service) MyMessages(ctx context.Context, actor *auth.Actor) ([]*Message, error) {
	rows, err := s.repo.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, errors.NewStorageError("failed to list messages", err)
	}
	messages := FromDataModelSlice(rows)
	if err := s.fillNames(ctx, actor.ID, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// OpenAttachment streams the file of a message the caller sent or received.
func (s *Service) OpenAttachment(ctx context.Context, actor *auth.Actor, id int64) (io.ReadCloser, *Message, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, errors.NewStorageError("failed to load message", err)
	}
	if row == nil {
		return nil, nil, ErrMessageNotFound
	}
	msg := FromDataModel(row)
	if !msg.HasParticipant(actor.ID) {
		return nil, nil, ErrMessageNotFound
	}
	if msg.AttachmentURL == nil || s.files == nil {
		return nil, nil, ErrAttachmentNotFound
	}

	rc, err := s.files.Open(ctx, *msg.AttachmentURL)
	if err != nil {
		if stdErrors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("attachment missing from storage", "message_id", id, "ref", *msg.AttachmentURL)
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, errors.NewStorageError("failed to open attachment", err)
	}
	return rc, msg, nil
}

func (s *Service) lookupUsers(ctx context.Context, ids []int64) (map[int64]*userDatamodel.User, error) {
	if len(ids) == 0 {
		return map[int64]*userDatamodel.User{}, nil
	}
	users, err := s.repo.Users(ctx, ids)
	if err != nil {
		s.logger.Error("failed to look up participants", "error", err)
		return nil, errors.NewStorageError("failed to look up participants", err)
	}
	return users, nil
}

func (s *Service) fillNames(ctx context.Context, viewerID int64, messages []*Message) error {
	ids := make([]int64, 0, len(messages)*2)
	for _, m := range messages {
		ids = append(ids, m.SenderID, m.ReceiverID)
	}
	users, err := s.lookupUsers(ctx, ids)
	if err != nil {
		return err
	}
	for _, m := range messages {
		if u, ok := users[m.SenderID]; ok {
			m.SenderName = u.FullName
		}
		if u, ok := users[m.ReceiverID]; ok {
			m.ReceiverName = u.FullName
		}
		m.IsSender = m.SenderID == viewerID
	}
	return nil
}

func (s *Service) storeAttachment(ctx context.Context, threadID string, file *Attachment) (string, error) {
	if s.files == nil {
		return "", errors.NewStorageError("file storage is not configured", nil)
	}
	key := fmt.Sprintf("messages/%s/%s_%s", threadID, uuid.NewString()[:8], file.Name())
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ref, err := s.files.Put(ctx, key, file.Body, file.Size, contentType)
	if err != nil {
		s.logger.Error("failed to store attachment", "error", err, "thread_id", threadID)
		return "", errors.NewStorageError("failed to store attachment", err)
	}
	return ref, nil
}

func (s *Service) discard(ctx context.Context, ref *string) {
	if ref == nil || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, *ref); err != nil {
		s.logger.Warn("failed to remove stored attachment", "error", err, "ref", *ref)
	}
}

func (s *Service) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.Warn("unread cache invalidation failed", "error", err, "user_ids", userIDs)
	}
}
