package repository

import (
	"context"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForRecipient(ctx context.Context, uid string, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error)
	Owners(ctx context.Context, ids []uint64) (map[uint64]string, error)
	MarkRead(ctx context.Context, uid string, ids []uint64, at time.Time) error
	MarkAllRead(ctx context.Context, uid string, at time.Time) error
	Delete(ctx context.Context, uid string, ids []uint64) error
	CountUnread(ctx context.Context, uid string) (int64, error)
	SetDB(db *gorm.DB)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

// inbox scopes a notifications query to one recipient, optionally only the
// unread rows.
func (r *notificationRepository) inbox(ctx context.Context, uid string, unreadOnly bool) (*gorm.DB, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_uid = ?", uid)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	return q, nil
}

func readAt(at time.Time) map[string]any {
	return map[string]any{"is_read": true, "read_at": at}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// ListForRecipient returns one page, newest first, and the size of the whole
// filtered set.
func (r *notificationRepository) ListForRecipient(ctx context.Context, uid string, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	q, err := r.inbox(ctx, uid, unreadOnly)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := make([]model.Notification, 0, limit)
	if total == 0 {
		return page, 0, nil
	}
	err = q.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&page).Error
	return page, total, err
}

// Owners maps each id that exists to its recipient. Unknown ids are absent.
func (r *notificationRepository) Owners(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	owners := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return owners, nil
	}
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rows []model.Notification
	if err := r.db.WithContext(ctx).Select("id", "user_uid").Find(&rows, ids).Error; err != nil {
		return nil, err
	}
	for _, n := range rows {
		owners[n.ID] = n.UserUID
	}
	return owners, nil
}

// MarkRead keeps the first read_at of rows that were already read.
func (r *notificationRepository) MarkRead(ctx context.Context, uid string, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q, err := r.inbox(ctx, uid, true)
	if err != nil {
		return err
	}
	return q.Where("id IN ?", ids).Updates(readAt(at)).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, uid string, at time.Time) error {
	q, err := r.inbox(ctx, uid, true)
	if err != nil {
		return err
	}
	return q.Updates(readAt(at)).Error
}

func (r *notificationRepository) Delete(ctx context.Context, uid string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("user_uid = ? AND id IN ?", uid, ids).
		Delete(&model.Notification{}).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, uid string) (int64, error) {
	q, err := r.inbox(ctx, uid, true)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.Count(&n).Error
	return n, err
}
