package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/filter"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"github.com/varsagel/varsagelcom-sub000/internal/viewtrack"
	"go.uber.org/zap"
)

const (
	maxListingPage   = 100
	queueCap         = 2000
	scanBatch        = 500
	expireBatchSize  = 500
	listingNumberTag = "no-"
)

type ListingOptions struct {
	// Moderation puts new listings into pending until an admin approves them.
	Moderation bool
	TTL        time.Duration
}

type ListingFilter struct {
	CategoryID    string
	SubCategoryID string
	Search        string
	City          string
	District      string
	PriceMin      *float64
	PriceMax      *float64
	Fields        map[string]string
	Sort          filter.SortKey
	Page          int
	Limit         int
}

type ListingPage struct {
	Items []model.Listing
	Total int
	Page  int
	Limit int
}

type ListingDetail struct {
	Listing         model.Listing
	Owner           *model.User
	CategoryName    string
	SubCategoryName string
	Counts          repository.ListingCounts
}

type ListingService interface {
	Create(ctx context.Context, ownerUID string, in ListingInput) (*model.Listing, error)
	Update(ctx context.Context, uid string, id uint64, in ListingInput) (*model.Listing, error)
	Get(ctx context.Context, viewer *model.User, ref, session string) (*ListingDetail, error)
	List(ctx context.Context, f ListingFilter) (*ListingPage, error)
	ListMine(ctx context.Context, uid string) ([]model.Listing, error)
	ListByStatus(ctx context.Context, status model.ListingStatus) ([]model.Listing, error)
	UpdateStatus(ctx context.Context, actor *model.User, id uint64, status model.ListingStatus, reason string) (*model.Listing, error)
	ExpireDue(ctx context.Context) (int, error)
	AddFavorite(ctx context.Context, uid string, id uint64) error
	RemoveFavorite(ctx context.Context, uid string, id uint64) error
	ListFavorites(ctx context.Context, uid string) ([]model.Listing, error)
}

type listingService struct {
	registry  *catalog.Registry
	repo      repository.ListingRepository
	userRepo  repository.UserRepository
	views     viewtrack.Tracker
	notifier  Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	opts      ListingOptions
	now       func() time.Time
}

func NewListingService(
	registry *catalog.Registry,
	repo repository.ListingRepository,
	userRepo repository.UserRepository,
	views viewtrack.Tracker,
	notifier Notifier,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
	opts ListingOptions,
) ListingService {
	return &listingService{
		registry:  registry,
		repo:      repo,
		userRepo:  userRepo,
		views:     views,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log.Named("listing"),
		opts:      opts,
		now:       time.Now,
	}
}

func (s *listingService) Create(ctx context.Context, ownerUID string, in ListingInput) (*model.Listing, error) {
	if ownerUID == "" {
		return nil, ErrForbidden
	}
	attrs, err := in.validate(s.registry)
	if err != nil {
		return nil, err
	}
	l := &model.Listing{OwnerUID: ownerUID, Status: model.ListingStatusActive}
	in.apply(l, attrs)
	if s.opts.Moderation {
		l.Status = model.ListingStatusPending
	}
	if s.opts.TTL > 0 {
		exp := s.now().Add(s.opts.TTL)
		l.ExpiresAt = &exp
	}
	if err := s.repo.Create(ctx, l); err != nil {
		if errors.Is(err, repository.ErrNumberExhausted) {
			return nil, conflictf("could not assign a listing number, try again")
		}
		return nil, storeErr(err)
	}
	s.metrics.ListingsCreated.Inc()
	if err := s.publisher.Publish(ctx, events.SubjectListingCreated, map[string]any{
		"id":            l.ID,
		"listingNumber": l.ListingNumber,
		"categoryId":    l.CategoryID,
		"subCategoryId": l.SubCategoryID,
		"ownerId":       l.OwnerUID,
	}); err != nil {
		s.metrics.EventsFailed.Inc()
		s.log.Warn("publish listing event", zap.Uint64("listing_id", l.ID), zap.Error(err))
	}
	return l, nil
}

// Update lets the owner edit a listing that is still open.
func (s *listingService) Update(ctx context.Context, uid string, id uint64, in ListingInput) (*model.Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if l.OwnerUID != uid {
		return nil, ErrForbidden
	}
	if !l.Status.Editable() {
		return nil, conflictf("a %s listing cannot be edited", l.Status)
	}
	attrs, err := in.validate(s.registry)
	if err != nil {
		return nil, err
	}
	in.apply(l, attrs)
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, storeErr(err)
	}
	// Status and view count may have moved since the read above.
	fresh, err := s.repo.FindByID(ctx, id)
	return fresh, storeErr(err)
}

// Get accepts a numeric id, a listing number, or "no-<number>". A view is
// counted once per session and never for the owner.
func (s *listingService) Get(ctx context.Context, viewer *model.User, ref, session string) (*ListingDetail, error) {
	l, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !visibleTo(l, viewer) {
		return nil, ErrNotFound
	}

	if session != "" && (viewer == nil || viewer.UID != l.OwnerUID) {
		first, err := s.views.FirstView(ctx, session, l.ID)
		if err != nil {
			s.log.Warn("view tracker", zap.Uint64("listing_id", l.ID), zap.Error(err))
		} else if first {
			if err := s.repo.IncrementViews(ctx, l.ID); err != nil {
				return nil, storeErr(err)
			}
			l.ViewCount++
			s.metrics.ListingViews.Inc()
		}
	}

	d := &ListingDetail{Listing: *l}
	if owner, err := s.userRepo.FindByUID(ctx, l.OwnerUID); err == nil {
		d.Owner = owner
	}
	if c, ok := s.registry.GetCategoryByID(l.CategoryID); ok {
		d.CategoryName = c.Name
	}
	if sub, ok := s.registry.GetSubCategoryByID(l.CategoryID, l.SubCategoryID); ok {
		d.SubCategoryName = sub.Name
	}
	if d.Counts, err = s.repo.Counts(ctx, l.ID); err != nil {
		return nil, storeErr(err)
	}
	return d, nil
}

func (s *listingService) resolve(ctx context.Context, ref string) (*model.Listing, error) {
	ref = strings.TrimSpace(ref)
	if num, ok := strings.CutPrefix(strings.ToLower(ref), listingNumberTag); ok {
		n, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			return nil, ErrNotFound
		}
		l, err := s.repo.FindByNumber(ctx, n)
		return l, storeErr(err)
	}
	n, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || n == 0 {
		return nil, ErrNotFound
	}
	l, err := s.repo.FindByID(ctx, n)
	if err == nil {
		return l, nil
	}
	if err = storeErr(err); errors.Is(err, ErrNotFound) && n >= repository.FirstListingNumber {
		l, err = s.repo.FindByNumber(ctx, n)
		return l, storeErr(err)
	}
	return nil, err
}

// visibleTo hides unpublished listings from everyone but the owner and admins.
func visibleTo(l *model.Listing, viewer *model.User) bool {
	if viewer.IsAdmin() {
		return true
	}
	switch l.Status {
	case model.ListingStatusActive, model.ListingStatusSold, model.ListingStatusExpired:
		return true
	case model.ListingStatusDeleted:
		return false
	}
	return viewer != nil && viewer.UID == l.OwnerUID
}

// List pushes status, category, search, price and sort into SQL. City,
// district and category-field filters fold Turkish case, which the database
// collation does not, so when any is set the matching rows are streamed in
// sort order and filtered here.
func (s *listingService) List(ctx context.Context, f ListingFilter) (*ListingPage, error) {
	page, limit := normalizePage(f.Page, f.Limit, 20, maxListingPage)
	q := repository.ListingQuery{
		Statuses:      []model.ListingStatus{model.ListingStatusActive},
		CategoryID:    f.CategoryID,
		SubCategoryID: f.SubCategoryID,
		Search:        f.Search,
		PriceMin:      f.PriceMin,
		PriceMax:      f.PriceMax,
		Sort:          f.Sort,
	}
	text := filter.Criteria{City: f.City, District: f.District, Fields: f.Fields}
	out := &ListingPage{Items: []model.Listing{}, Page: page, Limit: limit}

	if text.Empty() {
		total, err := s.repo.Count(ctx, q)
		if err != nil {
			return nil, storeErr(err)
		}
		out.Total = int(total)
		if total == 0 {
			return out, nil
		}
		q.Limit, q.Offset = limit, (page-1)*limit
		items, err := s.repo.Find(ctx, q)
		if err != nil {
			return nil, storeErr(err)
		}
		out.Items = append(out.Items, items...)
		return out, nil
	}

	skip := (page - 1) * limit
	err := s.repo.Scan(ctx, q, scanBatch, func(batch []model.Listing) error {
		for _, l := range filter.Apply(batch, text) {
			if out.Total >= skip && len(out.Items) < limit {
				out.Items = append(out.Items, l)
			}
			out.Total++
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *listingService) ListMine(ctx context.Context, uid string) ([]model.Listing, error) {
	list, err := s.repo.Find(ctx, repository.ListingQuery{OwnerUID: uid})
	if err != nil {
		return nil, storeErr(err)
	}
	out := list[:0]
	for _, l := range list {
		if l.Status != model.ListingStatusDeleted {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *listingService) ListByStatus(ctx context.Context, status model.ListingStatus) ([]model.Listing, error) {
	list, err := s.repo.Find(ctx, repository.ListingQuery{Statuses: []model.ListingStatus{status}, Limit: queueCap})
	return list, storeErr(err)
}

// ownerTransitions lists, per target status, the statuses an owner may leave.
var ownerTransitions = map[model.ListingStatus][]model.ListingStatus{
	model.ListingStatusActive:   {model.ListingStatusInactive},
	model.ListingStatusInactive: {model.ListingStatusActive},
	model.ListingStatusSold:     {model.ListingStatusActive, model.ListingStatusInactive},
	model.ListingStatusDeleted: {
		model.ListingStatusActive, model.ListingStatusPending, model.ListingStatusSold,
		model.ListingStatusInactive, model.ListingStatusRejected, model.ListingStatusExpired,
	},
}

func (s *listingService) UpdateStatus(ctx context.Context, actor *model.User, id uint64, status model.ListingStatus, reason string) (*model.Listing, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, invalid("status", "unknown status")
	}
	reason = strings.TrimSpace(reason)
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	isOwner := actor.UID == l.OwnerUID
	if !isOwner && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if l.Status == status {
		return l, nil
	}

	var from []model.ListingStatus
	if actor.IsAdmin() {
		if (status == model.ListingStatusRejected || status == model.ListingStatusDeleted) && reason == "" {
			return nil, invalid("reason", "a reason is required")
		}
		from = []model.ListingStatus{l.Status}
	} else {
		allowed := ownerTransitions[status]
		if !containsStatus(allowed, l.Status) {
			return nil, conflictf("listing cannot move from %s to %s", l.Status, status)
		}
		from = allowed
	}

	if err := s.repo.UpdateStatus(ctx, l.ID, from, status, reason); err != nil {
		return nil, storeErr(err)
	}
	l.Status = status
	l.ModerationReason = reason

	if actor.IsAdmin() && !isOwner {
		s.notifyModeration(ctx, l, reason)
	}
	return l, nil
}

func containsStatus(list []model.ListingStatus, st model.ListingStatus) bool {
	for _, x := range list {
		if x == st {
			return true
		}
	}
	return false
}

var moderationMessages = map[model.ListingStatus]string{
	model.ListingStatusActive:   "İlanınız onaylandı ve yayına alındı.",
	model.ListingStatusRejected: "İlanınız yayına alınmadı.",
	model.ListingStatusDeleted:  "İlanınız yönetici tarafından kaldırıldı.",
	model.ListingStatusInactive: "İlanınız yönetici tarafından yayından kaldırıldı.",
}

func (s *listingService) notifyModeration(ctx context.Context, l *model.Listing, reason string) {
	msg, ok := moderationMessages[l.Status]
	if !ok {
		msg = fmt.Sprintf("İlanınızın durumu %s olarak güncellendi.", l.Status)
	}
	if reason != "" {
		msg += " Gerekçe: " + reason
	}
	if _, err := s.notifier.Notify(ctx, NotifyInput{
		UserUID:     l.OwnerUID,
		Type:        model.NotificationSystem,
		Title:       fmt.Sprintf("\"%s\" ilanı hakkında", l.Title),
		Message:     msg,
		RelatedID:   strconv.FormatUint(l.ID, 10),
		RelatedType: "listing",
		ActionURL:   listingPath(l),
	}); err != nil {
		s.log.Warn("moderation notification", zap.Uint64("listing_id", l.ID), zap.Error(err))
	}
}

// ExpireDue marks active listings past their expiry as expired and tells
// their owners. Listings that changed meanwhile are skipped.
func (s *listingService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.repo.FindExpired(ctx, s.now(), expireBatchSize)
	if err != nil {
		return 0, storeErr(err)
	}
	expired := 0
	for i := range due {
		l := &due[i]
		err := s.repo.UpdateStatus(ctx, l.ID, []model.ListingStatus{model.ListingStatusActive}, model.ListingStatusExpired, "")
		if errors.Is(err, repository.ErrStale) {
			continue
		}
		if err != nil {
			return expired, storeErr(err)
		}
		expired++
		if _, err := s.notifier.Notify(ctx, NotifyInput{
			UserUID:     l.OwnerUID,
			Type:        model.NotificationListingExpired,
			Title:       "İlanınızın süresi doldu",
			Message:     fmt.Sprintf("\"%s\" ilanınızın yayın süresi doldu.", l.Title),
			RelatedID:   strconv.FormatUint(l.ID, 10),
			RelatedType: "listing",
			ActionURL:   listingPath(l),
			Email: &EmailRequest{Template: mailer.TemplateListingExpired, Params: mailer.Params{
				"listingTitle":  l.Title,
				"listingNumber": strconv.FormatUint(l.ListingNumber, 10),
			}},
		}); err != nil {
			s.log.Warn("expiry notification", zap.Uint64("listing_id", l.ID), zap.Error(err))
		}
	}
	return expired, nil
}

func (s *listingService) AddFavorite(ctx context.Context, uid string, id uint64) error {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if !visibleTo(l, &model.User{UID: uid}) {
		return ErrNotFound
	}
	return storeErr(s.repo.AddFavorite(ctx, uid, id))
}

func (s *listingService) RemoveFavorite(ctx context.Context, uid string, id uint64) error {
	return storeErr(s.repo.RemoveFavorite(ctx, uid, id))
}

func (s *listingService) ListFavorites(ctx context.Context, uid string) ([]model.Listing, error) {
	list, err := s.repo.ListFavorites(ctx, uid)
	return list, storeErr(err)
}

func listingPath(l *model.Listing) string {
	return "/listings/" + listingNumberTag + strconv.FormatUint(l.ListingNumber, 10)
}
