package postgres

import (
	"context"
	stdErrors "errors"
	"sort"
	"time"

	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/messaging"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) messaging.Repository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) participant(ctx context.Context, userID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID)
}

func (r *MessageRepository) Create(ctx context.Context, row *messageDatamodel.Message) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*messageDatamodel.Message, error) {
	var row messageDatamodel.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Threads aggregates per thread_id and then loads the first and last message
// of each thread in one query. Ids grow with created_at, so MIN/MAX(id) pick them.
func (r *MessageRepository) Threads(ctx context.Context, userID int64) ([]messaging.ThreadRow, error) {
	var aggs []struct {
		ThreadID     string
		MessageCount int64
		UnreadCount  int64
		FirstID      int64
		LastID       int64
	}
	err := r.db.WithContext(ctx).Model(&messageDatamodel.Message{}).
		Select("thread_id, COUNT(*) AS message_count, "+
			"SUM(CASE WHEN receiver_id = ? AND status = ? THEN 1 ELSE 0 END) AS unread_count, "+
			"MIN(id) AS first_id, MAX(id) AS last_id", userID, messaging.StatusUnread).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("thread_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, err
	}
	if len(aggs) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(aggs)*2)
	for _, a := range aggs {
		ids = append(ids, a.FirstID, a.LastID)
	}
	var rows []*messageDatamodel.Message
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]*messageDatamodel.Message, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	threads := make([]messaging.ThreadRow, 0, len(aggs))
	for _, a := range aggs {
		last, ok := byID[a.LastID]
		if !ok {
			continue
		}
		threads = append(threads, messaging.ThreadRow{
			ThreadID:     a.ThreadID,
			MessageCount: a.MessageCount,
			UnreadCount:  a.UnreadCount,
			First:        byID[a.FirstID],
			Last:         last,
		})
	}
	sort.Slice(threads, func(i, j int) bool {
		li, lj := threads[i].Last, threads[j].Last
		if !li.CreatedAt.Equal(lj.CreatedAt) {
			return li.CreatedAt.After(lj.CreatedAt)
		}
		return li.ID > lj.ID
	})
	return threads, nil
}

func (r *MessageRepository) ThreadMessages(ctx context.Context, threadID string, userID int64) ([]*messageDatamodel.Message, error) {
	var rows []*messageDatamodel.Message
	err := r.participant(ctx, userID).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *MessageRepository) MarkThreadRead(ctx context.Context, threadID string, receiverID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&messageDatamodel.Message{}).
		Where("thread_id = ? AND receiver_id = ? AND status = ?", threadID, receiverID, messaging.StatusUnread).
		Updates(map[string]interface{}{
			"status":  messaging.StatusRead,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) MarkRead(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&messageDatamodel.Message{}).
		Where("id = ? AND status = ?", id, messaging.StatusUnread).
		Updates(map[string]interface{}{
			"status":  messaging.StatusRead,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&messageDatamodel.Message{}).
		Where("receiver_id = ? AND status = ?", userID, messaging.StatusUnread).
		Count(&n).Error
	return n, err
}

func (r *MessageRepository) ListForInspection(ctx context.Context, inspectionID, userID int64) ([]*messageDatamodel.Message, error) {
	var rows []*messageDatamodel.Message
	err := r.participant(ctx, userID).
		Where("inspection_id = ?", inspectionID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *MessageRepository) ListForUser(ctx context.Context, userID int64) ([]*messageDatamodel.Message, error) {
	var rows []*messageDatamodel.Message
	err := r.participant(ctx, userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *MessageRepository) Users(ctx context.Context, ids []int64) (map[int64]*userDatamodel.User, error) {
	var rows []*userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make(map[int64]*userDatamodel.User, len(rows))
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

func (r *MessageRepository) InspectionTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	var rows []struct {
		ID    int64
		Title string
	}
	err := r.db.WithContext(ctx).Model(&inspectionDatamodel.Inspection{}).
		Select("id, title").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	titles := make(map[int64]string, len(rows))
	for _, row := range rows {
		titles[row.ID] = row.Title
	}
	return titles, nil
}
