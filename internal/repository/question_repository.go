package repository

import (
	"context"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	FindByID(ctx context.Context, id uint64) (*model.Question, error)
	ListByListing(ctx context.Context, listingID uint64) ([]model.Question, error)
	Answer(ctx context.Context, id uint64, answererUID, answer string, at time.Time) error
	SetDB(db *gorm.DB)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *questionRepository) Create(ctx context.Context, q *model.Question) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepository) FindByID(ctx context.Context, id uint64) (*model.Question, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var q model.Question
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepository) ListByListing(ctx context.Context, listingID uint64) ([]model.Question, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Question
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Answer only writes while the question is still unanswered.
func (r *questionRepository) Answer(ctx context.Context, id uint64, answererUID, answer string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("id = ? AND answer IS NULL", id).
		Updates(map[string]interface{}{
			"answer":       answer,
			"answerer_uid": answererUID,
			"answered_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
