package service

import (
	"context"
	"strings"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
)

type Stats struct {
	Users             int64
	BlockedUsers      int64
	Listings          map[model.ListingStatus]int64
	TotalListings     int64
	Offers            map[model.OfferStatus]int64
	TotalOffers       int64
	NewListings24h    int64
	PendingModeration int64
}

type UserPage struct {
	Items []model.User
	Total int64
	Page  int
	Limit int
}

type AdminService interface {
	Stats(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context, search string, page, limit int) (*UserPage, error)
	Block(ctx context.Context, admin *model.User, uid, reason string) error
	Unblock(ctx context.Context, admin *model.User, uid string) error
	PendingListings(ctx context.Context) ([]model.Listing, error)
	Approve(ctx context.Context, admin *model.User, listingID uint64) (*model.Listing, error)
	Reject(ctx context.Context, admin *model.User, listingID uint64, reason string) (*model.Listing, error)
	DeleteListing(ctx context.Context, admin *model.User, listingID uint64, reason string) (*model.Listing, error)
}

type adminService struct {
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	offerRepo   repository.OfferRepository
	listings    ListingService
	now         func() time.Time
}

func NewAdminService(userRepo repository.UserRepository, listingRepo repository.ListingRepository, offerRepo repository.OfferRepository, listings ListingService) AdminService {
	return &adminService{userRepo: userRepo, listingRepo: listingRepo, offerRepo: offerRepo, listings: listings, now: time.Now}
}

func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.Users, st.BlockedUsers, err = s.userRepo.Counts(ctx); err != nil {
		return nil, storeErr(err)
	}
	if st.Listings, err = s.listingRepo.CountByStatus(ctx); err != nil {
		return nil, storeErr(err)
	}
	for _, n := range st.Listings {
		st.TotalListings += n
	}
	st.PendingModeration = st.Listings[model.ListingStatusPending]
	if st.Offers, err = s.offerRepo.CountByStatus(ctx); err != nil {
		return nil, storeErr(err)
	}
	for _, n := range st.Offers {
		st.TotalOffers += n
	}
	if st.NewListings24h, err = s.listingRepo.CountCreatedSince(ctx, s.now().Add(-24*time.Hour)); err != nil {
		return nil, storeErr(err)
	}
	return &st, nil
}

func (s *adminService) ListUsers(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	page, limit = normalizePage(page, limit, 20, 100)
	list, total, err := s.userRepo.List(ctx, search, limit, (page-1)*limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return &UserPage{Items: list, Total: total, Page: page, Limit: limit}, nil
}

func (s *adminService) target(ctx context.Context, admin *model.User, uid string) (*model.User, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	if uid == admin.UID {
		return nil, invalid("userId", "you cannot change your own account")
	}
	u, err := s.userRepo.FindByUID(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	if u.IsAdmin() {
		return nil, ErrForbidden
	}
	return u, nil
}

func (s *adminService) Block(ctx context.Context, admin *model.User, uid, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason", "a reason is required")
	}
	if _, err := s.target(ctx, admin, uid); err != nil {
		return err
	}
	return storeErr(s.userRepo.SetBlocked(ctx, uid, true, reason, s.now()))
}

func (s *adminService) Unblock(ctx context.Context, admin *model.User, uid string) error {
	if _, err := s.target(ctx, admin, uid); err != nil {
		return err
	}
	return storeErr(s.userRepo.SetBlocked(ctx, uid, false, "", s.now()))
}

func (s *adminService) PendingListings(ctx context.Context) ([]model.Listing, error) {
	return s.listings.ListByStatus(ctx, model.ListingStatusPending)
}

func (s *adminService) Approve(ctx context.Context, admin *model.User, listingID uint64) (*model.Listing, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.listings.UpdateStatus(ctx, admin, listingID, model.ListingStatusActive, "")
}

func (s *adminService) Reject(ctx context.Context, admin *model.User, listingID uint64, reason string) (*model.Listing, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.listings.UpdateStatus(ctx, admin, listingID, model.ListingStatusRejected, reason)
}

func (s *adminService) DeleteListing(ctx context.Context, admin *model.User, listingID uint64, reason string) (*model.Listing, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.listings.UpdateStatus(ctx, admin, listingID, model.ListingStatusDeleted, reason)
}
