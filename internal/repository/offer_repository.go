package repository

import (
	"context"
	"errors"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SiblingRejectionReason is stored on pending offers closed by another
// offer's acceptance.
const SiblingRejectionReason = "Listing closed: another offer was accepted"

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, id uint64) (*model.Offer, error)
	ListByListing(ctx context.Context, listingID uint64) ([]model.Offer, error)
	ListByOfferer(ctx context.Context, uid string) ([]model.Offer, error)
	Accept(ctx context.Context, offerID, listingID uint64) ([]model.Offer, error)
	Reject(ctx context.Context, offerID uint64, reason string) error
	CountByStatus(ctx context.Context) (map[model.OfferStatus]int64, error)
	SetDB(db *gorm.DB)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) SetDB(db *gorm.DB) {
	r.db = db
}

// Create inserts o while holding the listing row locked in active status, so
// an offer cannot land on a listing that was sold or closed after the caller
// read it. ErrStale means the listing is no longer active.
func (r *offerRepository) Create(ctx context.Context, o *model.Offer) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l model.Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ? AND status = ?", o.ListingID, model.ListingStatusActive).
			Take(&l).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStale
		}
		if err != nil {
			return err
		}
		return tx.Create(o).Error
	})
}

func (r *offerRepository) FindByID(ctx context.Context, id uint64) (*model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var o model.Offer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *offerRepository) ListByListing(ctx context.Context, listingID uint64) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) ListByOfferer(ctx context.Context, uid string) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("offerer_uid = ?", uid).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Accept flips the offer to accepted, the listing from active to sold and
// every other pending offer on the listing to rejected, all in one
// transaction. It returns the offers it rejected. ErrStale means the offer was
// no longer pending or the listing no longer active; nothing is written then.
func (r *offerRepository) Accept(ctx context.Context, offerID, listingID uint64) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var siblings []model.Offer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Offer{}).
			Where("id = ? AND listing_id = ? AND status = ?", offerID, listingID, model.OfferStatusPending).
			Update("status", model.OfferStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}

		res = tx.Model(&model.Listing{}).
			Where("id = ? AND status = ?", listingID, model.ListingStatusActive).
			Update("status", model.ListingStatusSold)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("listing_id = ? AND status = ? AND id <> ?", listingID, model.OfferStatusPending, offerID).
			Find(&siblings).Error; err != nil {
			return err
		}
		if len(siblings) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(siblings))
		for _, s := range siblings {
			ids = append(ids, s.ID)
		}
		return tx.Model(&model.Offer{}).
			Where("id IN ? AND status = ?", ids, model.OfferStatusPending).
			Updates(map[string]interface{}{
				"status":           model.OfferStatusRejected,
				"rejection_reason": SiblingRejectionReason,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	reason := SiblingRejectionReason
	for i := range siblings {
		siblings[i].Status = model.OfferStatusRejected
		siblings[i].RejectionReason = &reason
	}
	return siblings, nil
}

func (r *offerRepository) Reject(ctx context.Context, offerID uint64, reason string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ? AND status = ?", offerID, model.OfferStatusPending).
		Updates(map[string]interface{}{
			"status":           model.OfferStatusRejected,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *offerRepository) CountByStatus(ctx context.Context) (map[model.OfferStatus]int64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rows []struct {
		Status model.OfferStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[model.OfferStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
