package repository

import (
	"context"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/gorm"
)

// ConversationRepository stores two-party threads and their messages. A
// thread is keyed by (listing, ordered participant pair); listing 0 means a
// direct thread not tied to a listing.
type ConversationRepository interface {
	Open(ctx context.Context, listingID uint64, uidA, uidB string) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, uid string) ([]model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	AppendMessage(ctx context.Context, msg *model.Message) error
	MessagesOf(ctx context.Context, convID uint64) ([]model.Message, error)
	MarkRead(ctx context.Context, convID uint64, readerUID string, at time.Time) (int64, error)
	UnreadCounts(ctx context.Context, uid string) (map[uint64]int64, error)
	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *conversationRepository) conn(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	return r.db.WithContext(ctx), nil
}

// involving limits a conversations query to threads uid takes part in.
func involving(uid string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("(conversations.user_a_uid = ? OR conversations.user_b_uid = ?)", uid, uid)
	}
}

// unreadFor limits a messages query to messages uid has not read yet.
func unreadFor(uid string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("messages.sender_uid <> ? AND messages.is_read = ?", uid, false)
	}
}

func (r *conversationRepository) Open(ctx context.Context, listingID uint64, uidA, uidB string) (*model.Conversation, error) {
	tx, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	a, b := model.OrderedPair(uidA, uidB)
	key := model.Conversation{ListingID: listingID, UserAUID: a, UserBUID: b}
	out := key
	if err := tx.Where(&key, "ListingID", "UserAUID", "UserBUID").FirstOrCreate(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByParticipant returns the user's threads, most recently active first.
func (r *conversationRepository) ListByParticipant(ctx context.Context, uid string) ([]model.Conversation, error) {
	tx, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var threads []model.Conversation
	err = tx.Scopes(involving(uid)).
		Order("COALESCE(last_message_at, created_at) DESC, id DESC").
		Find(&threads).Error
	return threads, err
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	tx, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	cv := new(model.Conversation)
	if err := tx.Take(cv, id).Error; err != nil {
		return nil, err
	}
	return cv, nil
}

// AppendMessage stores msg and moves the thread's last_message_at in the
// same transaction.
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return tx.Transaction(func(t *gorm.DB) error {
		if err := t.Create(msg).Error; err != nil {
			return err
		}
		return t.Model(&model.Conversation{ID: msg.ConversationID}).
			Update("last_message_at", msg.CreatedAt).Error
	})
}

func (r *conversationRepository) MessagesOf(ctx context.Context, convID uint64) ([]model.Message, error) {
	tx, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var msgs []model.Message
	err = tx.Where(&model.Message{ConversationID: convID}).Order("id").Find(&msgs).Error
	return msgs, err
}

// MarkRead flips every message the reader received in the thread to read and
// reports how many changed.
func (r *conversationRepository) MarkRead(ctx context.Context, convID uint64, readerUID string, at time.Time) (int64, error) {
	tx, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	res := tx.Model(&model.Message{}).
		Where("messages.conversation_id = ?", convID).
		Scopes(unreadFor(readerUID)).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// UnreadCounts maps thread id to the number of messages uid has not read.
// Threads with nothing unread are absent.
func (r *conversationRepository) UnreadCounts(ctx context.Context, uid string) (map[uint64]int64, error) {
	tx, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ConversationID uint64
		Unread         int64
	}
	err = tx.Model(&model.Message{}).
		Select("messages.conversation_id, COUNT(*) AS unread").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Scopes(involving(uid), unreadFor(uid)).
		Group("messages.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint64]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}
