package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"go.uber.org/zap"
)

const (
	maxMessageLen  = 2000
	previewRunes   = 140
	conversationRT = "conversation"
)

type ConversationSummary struct {
	Conversation model.Conversation
	Other        *model.User
	Listing      *model.Listing
	Unread       int64
}

type ConversationService interface {
	Start(ctx context.Context, uid, recipientUID string, listingID uint64, content string) (*model.Conversation, *model.Message, error)
	Send(ctx context.Context, uid string, convID uint64, content string) (*model.Message, error)
	List(ctx context.Context, uid string) ([]ConversationSummary, error)
	Messages(ctx context.Context, uid string, convID uint64) ([]model.Message, error)
	MarkRead(ctx context.Context, uid string, convID uint64) (int64, error)
	UnreadCount(ctx context.Context, uid string) (int64, error)
}

type conversationService struct {
	repo        repository.ConversationRepository
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time
}

func NewConversationService(
	repo repository.ConversationRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	notifier Notifier,
	log *zap.Logger,
) ConversationService {
	return &conversationService{
		repo:        repo,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		notifier:    notifier,
		log:         log.Named("conversation"),
		now:         time.Now,
	}
}

// Start opens (or reuses) the conversation between uid and recipientUID,
// optionally about a listing, and sends the first message.
func (s *conversationService) Start(ctx context.Context, uid, recipientUID string, listingID uint64, content string) (*model.Conversation, *model.Message, error) {
	if recipientUID == "" || recipientUID == uid {
		return nil, nil, invalid("recipientId", "choose another user to message")
	}
	if _, err := checkText("content", content, maxMessageLen); err != nil {
		return nil, nil, err
	}
	if _, err := s.userRepo.FindByUID(ctx, recipientUID); err != nil {
		return nil, nil, storeErr(err)
	}
	if listingID != 0 {
		l, err := s.listingRepo.FindByID(ctx, listingID)
		if err != nil {
			return nil, nil, storeErr(err)
		}
		if l.OwnerUID != uid && l.OwnerUID != recipientUID {
			return nil, nil, invalid("listingId", "listing does not belong to either participant")
		}
	}
	cv, err := s.repo.Open(ctx, listingID, uid, recipientUID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	msg, err := s.send(ctx, cv, uid, content)
	if err != nil {
		return nil, nil, err
	}
	return cv, msg, nil
}

func (s *conversationService) Send(ctx context.Context, uid string, convID uint64, content string) (*model.Message, error) {
	if _, err := checkText("content", content, maxMessageLen); err != nil {
		return nil, err
	}
	cv, err := s.participant(ctx, uid, convID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, cv, uid, content)
}

func (s *conversationService) send(ctx context.Context, cv *model.Conversation, uid, content string) (*model.Message, error) {
	content, _ = checkText("content", content, maxMessageLen)
	msg := &model.Message{
		ConversationID: cv.ID,
		SenderUID:      uid,
		Content:        content,
		CreatedAt:      s.now(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, storeErr(err)
	}

	senderName := ""
	if u, err := s.userRepo.FindByUID(ctx, uid); err == nil {
		senderName = u.Name
	}
	preview := truncateRunes(content, previewRunes)
	if _, err := s.notifier.Notify(ctx, NotifyInput{
		UserUID:     cv.Other(uid),
		Type:        model.NotificationNewMessage,
		Title:       "Yeni mesaj",
		Message:     fmt.Sprintf("%s: %s", displayName(senderName), preview),
		RelatedID:   strconv.FormatUint(cv.ID, 10),
		RelatedType: conversationRT,
		ActionURL:   fmt.Sprintf("/messages/%d", cv.ID),
		Email: &EmailRequest{Template: mailer.TemplateNewMessage, Params: mailer.Params{
			"senderName":     displayName(senderName),
			"messagePreview": preview,
		}},
	}); err != nil {
		s.log.Warn("message notification", zap.Uint64("conversation_id", cv.ID), zap.Error(err))
	}
	return msg, nil
}

func (s *conversationService) participant(ctx context.Context, uid string, convID uint64) (*model.Conversation, error) {
	cv, err := s.repo.FindByID(ctx, convID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !cv.HasParticipant(uid) {
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *conversationService) List(ctx context.Context, uid string) ([]ConversationSummary, error) {
	convs, err := s.repo.ListByParticipant(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	unread, err := s.repo.UnreadCounts(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	others := make([]string, 0, len(convs))
	listingIDs := make([]uint64, 0, len(convs))
	for _, cv := range convs {
		others = append(others, cv.Other(uid))
		if cv.ListingID != 0 {
			listingIDs = append(listingIDs, cv.ListingID)
		}
	}
	users, err := s.userRepo.FindByUIDs(ctx, others)
	if err != nil {
		return nil, storeErr(err)
	}
	listings, err := s.listingRepo.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, storeErr(err)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, cv := range convs {
		row := ConversationSummary{Conversation: cv, Unread: unread[cv.ID]}
		if u, ok := users[cv.Other(uid)]; ok {
			row.Other = &u
		}
		if l, ok := listings[cv.ListingID]; ok {
			row.Listing = &l
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *conversationService) Messages(ctx context.Context, uid string, convID uint64) ([]model.Message, error) {
	if _, err := s.participant(ctx, uid, convID); err != nil {
		return nil, err
	}
	list, err := s.repo.MessagesOf(ctx, convID)
	return list, storeErr(err)
}

func (s *conversationService) MarkRead(ctx context.Context, uid string, convID uint64) (int64, error) {
	if _, err := s.participant(ctx, uid, convID); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkRead(ctx, convID, uid, s.now())
	return n, storeErr(err)
}

func (s *conversationService) UnreadCount(ctx context.Context, uid string) (int64, error) {
	counts, err := s.repo.UnreadCounts(ctx, uid)
	if err != nil {
		return 0, storeErr(err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func displayName(name string) string {
	if name == "" {
		return "Bir kullanıcı"
	}
	return name
}
