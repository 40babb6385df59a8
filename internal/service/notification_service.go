package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"go.uber.org/zap"
)

const maxNotificationPage = 100

// EmailRequest asks Notify to also send a templated email to the recipient.
type EmailRequest struct {
	Template mailer.Template
	Params   mailer.Params
}

type NotifyInput struct {
	UserUID     string
	Type        model.NotificationType
	Title       string
	Message     string
	RelatedID   string
	RelatedType string
	ActionURL   string
	Email       *EmailRequest
}

// Notifier is the write side other services depend on.
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput) (*model.Notification, error)
}

type NotificationPage struct {
	Items       []model.Notification
	Total       int64
	UnreadCount int64
	Page        int
	Limit       int
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, uid string, unreadOnly bool, page, limit int) (*NotificationPage, error)
	MarkRead(ctx context.Context, uid string, ids []uint64) (int64, error)
	MarkAllRead(ctx context.Context, uid string) (int64, error)
	Delete(ctx context.Context, uid string, ids []uint64) (int64, error)
	UnreadCount(ctx context.Context, uid string) (int64, error)
}

type notificationService struct {
	repo         repository.NotificationRepository
	userRepo     repository.UserRepository
	mail         *mailer.Mailer
	publisher    events.Publisher
	metrics      *metrics.Metrics
	log          *zap.Logger
	baseURL      string
	emailTimeout time.Duration
	now          func() time.Time
}

func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	mail *mailer.Mailer,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
	baseURL string,
	emailTimeout time.Duration,
) NotificationService {
	return &notificationService{
		repo:         repo,
		userRepo:     userRepo,
		mail:         mail,
		publisher:    publisher,
		metrics:      m,
		log:          log.Named("notification"),
		baseURL:      strings.TrimRight(baseURL, "/"),
		emailTimeout: emailTimeout,
		now:          time.Now,
	}
}

// Notify stores the notification, then publishes an event and sends the
// optional email. Only the store can fail the call.
func (s *notificationService) Notify(ctx context.Context, in NotifyInput) (*model.Notification, error) {
	if in.UserUID == "" {
		return nil, invalid("userId", "recipient is required")
	}
	if in.Type == "" {
		return nil, invalid("type", "type is required")
	}
	n := &model.Notification{
		UserUID:     in.UserUID,
		Type:        in.Type,
		Title:       in.Title,
		Message:     in.Message,
		RelatedID:   in.RelatedID,
		RelatedType: in.RelatedType,
		ActionURL:   in.ActionURL,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, storeErr(err)
	}
	s.metrics.NotificationsWritten.WithLabelValues(string(n.Type)).Inc()

	if err := s.publisher.Publish(ctx, events.SubjectNotificationCreated, notificationEvent{
		ID:      n.ID,
		UserUID: n.UserUID,
		Type:    n.Type,
		Title:   n.Title,
	}); err != nil {
		s.metrics.EventsFailed.Inc()
		s.log.Warn("publish notification event", zap.Uint64("notification_id", n.ID), zap.Error(err))
	}

	if in.Email != nil {
		s.sendEmail(ctx, n, in.Email)
	}
	return n, nil
}

type notificationEvent struct {
	ID      uint64                 `json:"id"`
	UserUID string                 `json:"userId"`
	Type    model.NotificationType `json:"type"`
	Title   string                 `json:"title"`
}

func (s *notificationService) sendEmail(ctx context.Context, n *model.Notification, req *EmailRequest) {
	outcome := "failed"
	defer func() { s.metrics.EmailsSent.WithLabelValues(outcome).Inc() }()

	u, err := s.userRepo.FindByUID(ctx, n.UserUID)
	if err != nil {
		s.log.Warn("email recipient lookup", zap.String("uid", n.UserUID), zap.Error(err))
		return
	}
	if u.Email == "" {
		outcome = "skipped"
		return
	}
	params := mailer.Params{"recipientName": u.Name, "actionUrl": s.absoluteURL(n.ActionURL)}
	for k, v := range req.Params {
		params[k] = v
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.emailTimeout)
	defer cancel()
	if err := s.mail.SendTemplate(sendCtx, u.Email, req.Template, params); err != nil {
		if errors.Is(err, mailer.ErrNoRecipient) {
			outcome = "skipped"
			return
		}
		s.log.Warn("send notification email",
			zap.Uint64("notification_id", n.ID),
			zap.String("template", string(req.Template)),
			zap.Error(err))
		return
	}
	outcome = "sent"
}

func (s *notificationService) absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.baseURL + path
}

func (s *notificationService) List(ctx context.Context, uid string, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	page, limit = normalizePage(page, limit, 20, maxNotificationPage)
	list, total, err := s.repo.ListForRecipient(ctx, uid, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, storeErr(err)
	}
	unread, err := s.repo.CountUnread(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	return &NotificationPage{Items: list, Total: total, UnreadCount: unread, Page: page, Limit: limit}, nil
}

// MarkRead returns the unread count after the update. Rows that are already
// read keep their read_at.
func (s *notificationService) MarkRead(ctx context.Context, uid string, ids []uint64) (int64, error) {
	ids = uniqueIDs(ids)
	if err := s.authorize(ctx, uid, ids); err != nil {
		return 0, err
	}
	if err := s.repo.MarkRead(ctx, uid, ids, s.now()); err != nil {
		return 0, storeErr(err)
	}
	return s.UnreadCount(ctx, uid)
}

func (s *notificationService) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	if err := s.repo.MarkAllRead(ctx, uid, s.now()); err != nil {
		return 0, storeErr(err)
	}
	return s.UnreadCount(ctx, uid)
}

func (s *notificationService) Delete(ctx context.Context, uid string, ids []uint64) (int64, error) {
	ids = uniqueIDs(ids)
	if err := s.authorize(ctx, uid, ids); err != nil {
		return 0, err
	}
	if err := s.repo.Delete(ctx, uid, ids); err != nil {
		return 0, storeErr(err)
	}
	return s.UnreadCount(ctx, uid)
}

func (s *notificationService) UnreadCount(ctx context.Context, uid string) (int64, error) {
	n, err := s.repo.CountUnread(ctx, uid)
	return n, storeErr(err)
}

// authorize fails the whole batch if any id is missing or foreign.
func (s *notificationService) authorize(ctx context.Context, uid string, ids []uint64) error {
	if len(ids) == 0 {
		return invalid("ids", "at least one notification id is required")
	}
	owners, err := s.repo.Owners(ctx, ids)
	if err != nil {
		return storeErr(err)
	}
	for _, id := range ids {
		owner, ok := owners[id]
		if !ok {
			return ErrNotFound
		}
		if owner != uid {
			return ErrForbidden
		}
	}
	return nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// maxPageNumber bounds page so (page-1)*limit stays far from overflow.
const maxPageNumber = 10000

func normalizePage(page, limit, def, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPageNumber {
		page = maxPageNumber
	}
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
