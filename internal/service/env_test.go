package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/viewtrack"
	"go.uber.org/zap"
)

type sentMail struct {
	to, subject string
}

type outbox struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (o *outbox) Send(_ context.Context, to, subject, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, sentMail{to: to, subject: subject})
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, string, any) error {
	return errors.New("nats: no servers")
}
func (brokenPublisher) Close() {}

type testEnv struct {
	store         *memStore
	mail          *outbox
	metrics       *metrics.Metrics
	notifications *notificationService
	listings      *listingService
	offers        *offerService
	questions     *questionService
	conversations *conversationService
	users         *userService
	admin         *adminService
}

func newEnv(t *testing.T, opts ListingOptions) *testEnv {
	t.Helper()
	return newEnvWith(t, opts, events.Noop{})
}

func newEnvWith(t *testing.T, opts ListingOptions, pub events.Publisher) *testEnv {
	t.Helper()
	st := newMemStore()
	reg := catalog.MustDefault()
	box := &outbox{}
	m := metrics.New()
	log := zap.NewNop()

	listingRepo, userRepo := memListings{st}, memUsers{st}
	notes := NewNotificationService(memNotifications{st}, userRepo, mailer.New(box), pub, m, log, "https://varsagel.test", time.Second).(*notificationService)
	listings := NewListingService(reg, listingRepo, userRepo, viewtrack.NewMemoryTracker(time.Hour), notes, pub, m, log, opts).(*listingService)

	env := &testEnv{
		store:         st,
		mail:          box,
		metrics:       m,
		notifications: notes,
		listings:      listings,
		offers:        NewOfferService(reg, memOffers{st}, listingRepo, userRepo, notes, pub, m, log).(*offerService),
		questions:     NewQuestionService(memQuestions{st}, listingRepo, notes, log).(*questionService),
		conversations: NewConversationService(memConversations{st}, userRepo, listingRepo, notes, log).(*conversationService),
		users:         NewUserService(userRepo).(*userService),
	}
	env.admin = NewAdminService(userRepo, listingRepo, memOffers{st}, listings).(*adminService)
	return env
}

func (e *testEnv) user(t *testing.T, uid string) *model.User {
	t.Helper()
	u, err := e.users.Provision(context.Background(), Identity{UID: uid, Email: uid + "@example.com", Name: uid})
	require.NoError(t, err)
	return u
}

func (e *testEnv) adminUser(t *testing.T, uid string) *model.User {
	t.Helper()
	u := e.user(t, uid)
	e.store.mu.Lock()
	u.Role = model.RoleAdmin
	e.store.users[uid] = *u
	e.store.mu.Unlock()
	return u
}

func price(v float64) *float64 { return &v }

func phoneInput() ListingInput {
	return ListingInput{
		Title:         "iPhone 13 arıyorum",
		Description:   "Temiz, kutulu bir iPhone 13 arıyorum.",
		MinPrice:      price(15000),
		MaxPrice:      price(22000),
		City:          "İstanbul",
		District:      "Kadıköy",
		CategoryID:    "electronics",
		SubCategoryID: "phones",
		CategoryData:  map[string]any{"brand": "apple", "storage": "128"},
	}
}

func (e *testEnv) listing(t *testing.T, owner string) *model.Listing {
	t.Helper()
	l, err := e.listings.Create(context.Background(), owner, phoneInput())
	require.NoError(t, err)
	return l
}

func (e *testEnv) offer(t *testing.T, uid string, listingID uint64, amount float64) *model.Offer {
	t.Helper()
	o, err := e.offers.Create(context.Background(), uid, listingID, OfferInput{
		Amount:       amount,
		CategoryData: map[string]any{"brand": "apple"},
	})
	require.NoError(t, err)
	return o
}

func notificationTypes(list []model.Notification) []model.NotificationType {
	out := make([]model.NotificationType, 0, len(list))
	for _, n := range list {
		out = append(out, n.Type)
	}
	return out
}

func (e *testEnv) notes(uid string) []model.Notification {
	return memNotifications{e.store}.forUser(uid)
}
