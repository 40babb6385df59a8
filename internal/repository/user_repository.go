package repository

import (
	"context"
	"strings"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	// Upsert inserts the user or refreshes email, name and last_login_at.
	Upsert(ctx context.Context, u *model.User) error
	FindByUID(ctx context.Context, uid string) (*model.User, error)
	FindByUIDs(ctx context.Context, uids []string) (map[string]model.User, error)
	List(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error)
	SetBlocked(ctx context.Context, uid string, blocked bool, reason string, at time.Time) error
	Counts(ctx context.Context) (total, blocked int64, err error)
	SetDB(db *gorm.DB)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *userRepository) Upsert(ctx context.Context, u *model.User) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "last_login_at"}),
	}).Create(u).Error; err != nil {
		return err
	}
	// Role and block state live in the stored row.
	return r.db.WithContext(ctx).Where("uid = ?", u.UID).First(u).Error
}

func (r *userRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByUIDs(ctx context.Context, uids []string) (map[string]model.User, error) {
	out := make(map[string]model.User, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.User
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.UID] = u
	}
	return out, nil
}

func (r *userRepository) List(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		list  []model.User
		total int64
	)
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.User{})
		if s := strings.TrimSpace(search); s != "" {
			like := "%" + escapeLike(s) + "%"
			q = q.Where("(email LIKE ? OR name LIKE ?)", like, like)
		}
		return q
	}
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := scope().Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *userRepository) SetBlocked(ctx context.Context, uid string, blocked bool, reason string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	updates := map[string]interface{}{
		"is_blocked":   blocked,
		"block_reason": reason,
		"blocked_at":   nil,
	}
	if blocked {
		updates["blocked_at"] = at
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("uid = ?", uid).Updates(updates).Error
}

func (r *userRepository) Counts(ctx context.Context) (total, blocked int64, err error) {
	if r.db == nil {
		return 0, 0, ErrDBNotReady
	}
	if err = r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&model.User{}).Where("is_blocked = ?", true).Count(&blocked).Error
	return total, blocked, err
}
