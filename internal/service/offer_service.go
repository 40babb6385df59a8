package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"go.uber.org/zap"
)

const (
	maxOfferMessageLen = 2000
	maxReasonLen       = 500
)

type OfferAction string

const (
	OfferAccept OfferAction = "accept"
	OfferReject OfferAction = "reject"
)

type OfferInput struct {
	Amount       float64
	Message      string
	CategoryData map[string]any
}

type OfferWithListing struct {
	Offer   model.Offer
	Listing *model.Listing
}

type OfferService interface {
	Create(ctx context.Context, uid string, listingID uint64, in OfferInput) (*model.Offer, error)
	Transition(ctx context.Context, uid string, offerID uint64, action OfferAction, reason string) (*model.Offer, error)
	ListByListing(ctx context.Context, uid string, listingID uint64) ([]model.Offer, error)
	ListMine(ctx context.Context, uid string) ([]OfferWithListing, error)
}

type offerService struct {
	registry    *catalog.Registry
	repo        repository.OfferRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	publisher   events.Publisher
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewOfferService(
	registry *catalog.Registry,
	repo repository.OfferRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
) OfferService {
	return &offerService{
		registry:    registry,
		repo:        repo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		publisher:   publisher,
		metrics:     m,
		log:         log.Named("offer"),
	}
}

func (s *offerService) Create(ctx context.Context, uid string, listingID uint64, in OfferInput) (*model.Offer, error) {
	l, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, storeErr(err)
	}
	if l.OwnerUID == uid {
		return nil, ErrForbidden
	}
	if l.Status != model.ListingStatusActive {
		return nil, conflictf("listing is not accepting offers")
	}

	var errs []FieldError
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be greater than 0"})
	}
	if utf8.RuneCountInString(in.Message) > maxOfferMessageLen {
		errs = append(errs, FieldError{Field: "message", Message: "message is too long"})
	}
	var attrs catalog.Attributes
	if sub, ok := s.registry.GetSubCategoryByID(l.CategoryID, l.SubCategoryID); ok {
		var catErrs catalog.FieldErrors
		attrs, catErrs = s.registry.ParseAttributes(sub, in.CategoryData)
		errs = append(errs, catErrs...)
	} else if len(in.CategoryData) > 0 {
		errs = append(errs, FieldError{Field: "categoryData", Message: "listing category no longer exists"})
	}
	if err := validationFrom(errs); err != nil {
		return nil, err
	}

	o := &model.Offer{
		ListingID:    l.ID,
		OffererUID:   uid,
		Amount:       in.Amount,
		Message:      strings.TrimSpace(in.Message),
		Status:       model.OfferStatusPending,
		CategoryData: attrs,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, conflictf("listing is not accepting offers")
		}
		return nil, storeErr(err)
	}
	s.metrics.OffersCreated.Inc()
	s.publish(ctx, events.SubjectOfferCreated, o)

	offererName := ""
	if u, err := s.userRepo.FindByUID(ctx, uid); err == nil {
		offererName = u.Name
	}
	if _, err := s.notifier.Notify(ctx, NotifyInput{
		UserUID:     l.OwnerUID,
		Type:        model.NotificationNewOffer,
		Title:       "Yeni teklif",
		Message:     fmt.Sprintf("\"%s\" ilanınıza %s TL teklif geldi.", l.Title, formatAmount(o.Amount)),
		RelatedID:   strconv.FormatUint(o.ID, 10),
		RelatedType: "offer",
		ActionURL:   listingPath(l),
		Email: &EmailRequest{Template: mailer.TemplateNewOffer, Params: mailer.Params{
			"offererName":  offererName,
			"listingTitle": l.Title,
			"amount":       formatAmount(o.Amount),
			"offerMessage": o.Message,
		}},
	}); err != nil {
		s.log.Warn("new offer notification", zap.Uint64("offer_id", o.ID), zap.Error(err))
	}
	return o, nil
}

// Transition accepts or rejects a pending offer. Accepting closes the listing
// and rejects its other pending offers in the same transaction.
func (s *offerService) Transition(ctx context.Context, uid string, offerID uint64, action OfferAction, reason string) (*model.Offer, error) {
	o, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		return nil, storeErr(err)
	}
	l, err := s.listingRepo.FindByID(ctx, o.ListingID)
	if err != nil {
		return nil, storeErr(err)
	}
	if l.OwnerUID != uid {
		return nil, ErrForbidden
	}
	if o.Status != model.OfferStatusPending {
		return nil, conflictf("offer is already %s", o.Status)
	}

	switch action {
	case OfferAccept:
		siblings, err := s.repo.Accept(ctx, o.ID, l.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		o.Status = model.OfferStatusAccepted
		s.metrics.OfferTransitions.WithLabelValues(string(model.OfferStatusAccepted)).Inc()
		s.publish(ctx, events.SubjectOfferAccepted, o)
		s.notifyOutcome(ctx, l, o)
		for i := range siblings {
			s.metrics.OfferTransitions.WithLabelValues(string(model.OfferStatusRejected)).Inc()
			s.publish(ctx, events.SubjectOfferRejected, &siblings[i])
			s.notifyOutcome(ctx, l, &siblings[i])
		}
	case OfferReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, invalid("rejectionReason", "a rejection reason is required")
		}
		if utf8.RuneCountInString(reason) > maxReasonLen {
			return nil, invalid("rejectionReason", "rejection reason is too long")
		}
		if err := s.repo.Reject(ctx, o.ID, reason); err != nil {
			return nil, storeErr(err)
		}
		o.Status = model.OfferStatusRejected
		o.RejectionReason = &reason
		s.metrics.OfferTransitions.WithLabelValues(string(model.OfferStatusRejected)).Inc()
		s.publish(ctx, events.SubjectOfferRejected, o)
		s.notifyOutcome(ctx, l, o)
	default:
		return nil, invalid("action", "action must be accept or reject")
	}
	return o, nil
}

func (s *offerService) notifyOutcome(ctx context.Context, l *model.Listing, o *model.Offer) {
	in := NotifyInput{
		UserUID:     o.OffererUID,
		RelatedID:   strconv.FormatUint(o.ID, 10),
		RelatedType: "offer",
		ActionURL:   listingPath(l),
	}
	params := mailer.Params{"listingTitle": l.Title, "amount": formatAmount(o.Amount)}
	if o.Status == model.OfferStatusAccepted {
		in.Type = model.NotificationOfferAccepted
		in.Title = "Teklifiniz kabul edildi"
		in.Message = fmt.Sprintf("\"%s\" ilanına verdiğiniz teklif kabul edildi.", l.Title)
		in.Email = &EmailRequest{Template: mailer.TemplateOfferAccepted, Params: params}
	} else {
		reason := ""
		if o.RejectionReason != nil {
			reason = *o.RejectionReason
		}
		params["reason"] = reason
		in.Type = model.NotificationOfferRejected
		in.Title = "Teklifiniz reddedildi"
		in.Message = fmt.Sprintf("\"%s\" ilanına verdiğiniz teklif reddedildi. Gerekçe: %s", l.Title, reason)
		in.Email = &EmailRequest{Template: mailer.TemplateOfferRejected, Params: params}
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.log.Warn("offer outcome notification", zap.Uint64("offer_id", o.ID), zap.Error(err))
	}
}

func (s *offerService) publish(ctx context.Context, subject string, o *model.Offer) {
	if err := s.publisher.Publish(ctx, subject, map[string]any{
		"id":        o.ID,
		"listingId": o.ListingID,
		"offererId": o.OffererUID,
		"amount":    o.Amount,
		"status":    o.Status,
	}); err != nil {
		s.metrics.EventsFailed.Inc()
		s.log.Warn("publish offer event", zap.String("subject", subject), zap.Uint64("offer_id", o.ID), zap.Error(err))
	}
}

// ListByListing shows the owner every offer and anyone else only their own.
func (s *offerService) ListByListing(ctx context.Context, uid string, listingID uint64) ([]model.Offer, error) {
	l, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, storeErr(err)
	}
	list, err := s.repo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, storeErr(err)
	}
	if l.OwnerUID == uid {
		return list, nil
	}
	own := make([]model.Offer, 0)
	for _, o := range list {
		if o.OffererUID == uid {
			own = append(own, o)
		}
	}
	return own, nil
}

func (s *offerService) ListMine(ctx context.Context, uid string) ([]OfferWithListing, error) {
	offers, err := s.repo.ListByOfferer(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	ids := make([]uint64, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ListingID)
	}
	listings, err := s.listingRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]OfferWithListing, 0, len(offers))
	for _, o := range offers {
		row := OfferWithListing{Offer: o}
		if l, ok := listings[o.ListingID]; ok {
			row.Listing = &l
		}
		out = append(out, row)
	}
	return out, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
