package server

import (
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"github.com/varsagel/varsagelcom-sub000/internal/viewtrack"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories can be built before the database is reachable; SetDB fills
// them in later.
type Repositories struct {
	Users         repository.UserRepository
	Listings      repository.ListingRepository
	Offers        repository.OfferRepository
	Questions     repository.QuestionRepository
	Conversations repository.ConversationRepository
	Notifications repository.NotificationRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:         repository.NewUserRepository(db),
		Listings:      repository.NewListingRepository(db),
		Offers:        repository.NewOfferRepository(db),
		Questions:     repository.NewQuestionRepository(db),
		Conversations: repository.NewConversationRepository(db),
		Notifications: repository.NewNotificationRepository(db),
	}
}

func (r *Repositories) SetDB(db *gorm.DB) {
	r.Users.SetDB(db)
	r.Listings.SetDB(db)
	r.Offers.SetDB(db)
	r.Questions.SetDB(db)
	r.Conversations.SetDB(db)
	r.Notifications.SetDB(db)
}

type Infra struct {
	Registry     *catalog.Registry
	Metrics      *metrics.Metrics
	Views        viewtrack.Tracker
	Publisher    events.Publisher
	Mail         mailer.Sender
	Log          *zap.Logger
	BaseURL      string
	EmailTimeout time.Duration
	Listing      service.ListingOptions
}

type Services struct {
	Users         service.UserService
	Notifications service.NotificationService
	Listings      service.ListingService
	Offers        service.OfferService
	Questions     service.QuestionService
	Conversations service.ConversationService
	Admin         service.AdminService
}

func NewServices(repos *Repositories, in Infra) *Services {
	notifications := service.NewNotificationService(
		repos.Notifications, repos.Users, mailer.New(in.Mail), in.Publisher,
		in.Metrics, in.Log, in.BaseURL, in.EmailTimeout,
	)
	listings := service.NewListingService(
		in.Registry, repos.Listings, repos.Users, in.Views, notifications, in.Publisher,
		in.Metrics, in.Log, in.Listing,
	)
	return &Services{
		Users:         service.NewUserService(repos.Users),
		Notifications: notifications,
		Listings:      listings,
		Offers: service.NewOfferService(
			in.Registry, repos.Offers, repos.Listings, repos.Users, notifications, in.Publisher,
			in.Metrics, in.Log,
		),
		Questions:     service.NewQuestionService(repos.Questions, repos.Listings, notifications, in.Log),
		Conversations: service.NewConversationService(repos.Conversations, repos.Users, repos.Listings, notifications, in.Log),
		Admin:         service.NewAdminService(repos.Users, repos.Listings, repos.Offers, listings),
	}
}
