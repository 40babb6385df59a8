package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/varsagel/varsagelcom-sub000/internal/filter"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDBNotReady = errors.New("database not initialized")
	// ErrStale means a conditional update matched no row because the row
	// moved on since it was read.
	ErrStale = errors.New("row changed concurrently")
	// ErrNumberExhausted means every listing-number attempt collided.
	ErrNumberExhausted = errors.New("listing number collided too many times")
)

const (
	FirstListingNumber  uint64 = 100001
	maxNumberAttempts          = 5
	mysqlDuplicateEntry uint16 = 1062
)

type ListingQuery struct {
	Statuses      []model.ListingStatus
	CategoryID    string
	SubCategoryID string
	OwnerUID      string
	// Search matches title or description.
	Search string
	// PriceMin and PriceMax overlap the listing's [min_price, max_price] span
	// the same way filter.Criteria does.
	PriceMin *float64
	PriceMax *float64
	Sort     filter.SortKey
	Limit    int
	Offset   int
}

type ListingCounts struct {
	Offers    int64
	Favorites int64
	Questions int64
}

type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	FindByNumber(ctx context.Context, number uint64) (*model.Listing, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Listing, error)
	Find(ctx context.Context, q ListingQuery) ([]model.Listing, error)
	Count(ctx context.Context, q ListingQuery) (int64, error)
	Scan(ctx context.Context, q ListingQuery, batch int, fn func([]model.Listing) error) error
	Update(ctx context.Context, l *model.Listing) error
	UpdateStatus(ctx context.Context, id uint64, from []model.ListingStatus, to model.ListingStatus, reason string) error
	IncrementViews(ctx context.Context, id uint64) error
	Counts(ctx context.Context, id uint64) (ListingCounts, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Listing, error)
	CountByStatus(ctx context.Context) (map[model.ListingStatus]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	AddFavorite(ctx context.Context, uid string, listingID uint64) error
	RemoveFavorite(ctx context.Context, uid string, listingID uint64) error
	ListFavorites(ctx context.Context, uid string) ([]model.Listing, error)
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}

// Create assigns max(listing_number)+1 and relies on the unique index to
// catch a concurrent writer taking the same number, retrying on collision.
func (r *listingRepository) Create(ctx context.Context, l *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		var last uint64
		if err := r.db.WithContext(ctx).
			Model(&model.Listing{}).
			Select("COALESCE(MAX(listing_number), ?)", FirstListingNumber-1).
			Scan(&last).Error; err != nil {
			return err
		}
		l.ID = 0
		l.ListingNumber = last + 1
		err := r.db.WithContext(ctx).Create(l).Error
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}
	}
	return ErrNumberExhausted
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindByNumber(ctx context.Context, number uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).Where("listing_number = ?", number).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Listing, error) {
	out := make(map[uint64]model.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, l := range list {
		out[l.ID] = l
	}
	return out, nil
}

func (r *listingRepository) query(ctx context.Context, q ListingQuery) (*gorm.DB, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	tx := r.db.WithContext(ctx).Model(&model.Listing{})
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	if q.CategoryID != "" {
		tx = tx.Where("category_id = ?", q.CategoryID)
	}
	if q.SubCategoryID != "" {
		tx = tx.Where("sub_category_id = ?", q.SubCategoryID)
	}
	if q.OwnerUID != "" {
		tx = tx.Where("owner_uid = ?", q.OwnerUID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		tx = tx.Where("(title LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!')", like, like)
	}
	if q.PriceMin != nil {
		tx = tx.Where("(max_price IS NULL OR max_price >= ?)", *q.PriceMin)
	}
	if q.PriceMax != nil {
		tx = tx.Where("COALESCE(min_price, 0) <= ?", *q.PriceMax)
	}
	return tx, nil
}

// listingOrder mirrors filter.Sort, including its id tie-break.
func listingOrder(key filter.SortKey) string {
	switch key {
	case filter.SortOldest:
		return "created_at ASC, id ASC"
	case filter.SortPriceAsc:
		return "COALESCE(min_price, max_price, 0) ASC, id ASC"
	case filter.SortPriceDesc:
		return "COALESCE(max_price, min_price, 0) DESC, id ASC"
	case filter.SortMostViewed:
		return "view_count DESC, id ASC"
	}
	return "created_at DESC, id DESC"
}

// Find returns the matching listings in q.Sort order, windowed by q.Limit and
// q.Offset when set.
func (r *listingRepository) Find(ctx context.Context, q ListingQuery) ([]model.Listing, error) {
	tx, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var list []model.Listing
	if err := tx.Order(listingOrder(q.Sort)).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Count ignores q.Limit and q.Offset.
func (r *listingRepository) Count(ctx context.Context, q ListingQuery) (int64, error) {
	tx, err := r.query(ctx, q)
	if err != nil {
		return 0, err
	}
	var n int64
	err = tx.Count(&n).Error
	return n, err
}

// Scan walks every matching listing in q.Sort order, batch rows at a time,
// and stops at the first error fn returns.
func (r *listingRepository) Scan(ctx context.Context, q ListingQuery, batch int, fn func([]model.Listing) error) error {
	if batch < 1 {
		batch = 1
	}
	q.Limit = batch
	for offset := 0; ; offset += batch {
		q.Offset = offset
		list, err := r.Find(ctx, q)
		if err != nil {
			return err
		}
		if len(list) > 0 {
			if err := fn(list); err != nil {
				return err
			}
		}
		if len(list) < batch {
			return nil
		}
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}

// editableColumns are the owner-editable fields. Status, views, number and
// ownership never change through Update.
var editableColumns = []string{
	"title", "description", "min_price", "max_price", "city", "district",
	"category_id", "sub_category_id", "category_data", "images", "updated_at",
}

// Update writes only the editable columns and only while the stored row is
// still in an editable status. ErrStale means the listing left that state
// since it was read.
func (r *listingRepository) Update(ctx context.Context, l *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(l).
		Where("status IN ?", model.EditableStatuses).
		Select(editableColumns).
		Updates(l)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// UpdateStatus moves a listing to `to` only while it is in one of `from`.
// An empty `from` accepts any current status.
func (r *listingRepository) UpdateStatus(ctx context.Context, id uint64, from []model.ListingStatus, to model.ListingStatus, reason string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	tx := r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id)
	if len(from) > 0 {
		tx = tx.Where("status IN ?", from)
	}
	res := tx.Updates(map[string]interface{}{
		"status":            to,
		"moderation_reason": reason,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *listingRepository) IncrementViews(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *listingRepository) Counts(ctx context.Context, id uint64) (ListingCounts, error) {
	var c ListingCounts
	if r.db == nil {
		return c, ErrDBNotReady
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Offer{}).Where("listing_id = ?", id).Count(&c.Offers).Error; err != nil {
		return c, err
	}
	if err := db.Model(&model.Favorite{}).Where("listing_id = ?", id).Count(&c.Favorites).Error; err != nil {
		return c, err
	}
	if err := db.Model(&model.Question{}).Where("listing_id = ?", id).Count(&c.Questions).Error; err != nil {
		return c, err
	}
	return c, nil
}

func (r *listingRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Listing
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", model.ListingStatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepository) CountByStatus(ctx context.Context) (map[model.ListingStatus]int64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rows []struct {
		Status model.ListingStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[model.ListingStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r *listingRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Listing{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (r *listingRepository) AddFavorite(ctx context.Context, uid string, listingID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Favorite{UserUID: uid, ListingID: listingID}).Error
}

func (r *listingRepository) RemoveFavorite(ctx context.Context, uid string, listingID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("user_uid = ? AND listing_id = ?", uid, listingID).
		Delete(&model.Favorite{}).Error
}

func (r *listingRepository) ListFavorites(ctx context.Context, uid string) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Listing
	if err := r.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.listing_id = listings.id").
		Where("favorites.user_uid = ?", uid).
		Order("favorites.created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
