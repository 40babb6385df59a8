package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/repository"
	"go.uber.org/zap"
)

const maxQuestionLen = 1000

type QuestionService interface {
	Ask(ctx context.Context, uid string, listingID uint64, text string) (*model.Question, error)
	Answer(ctx context.Context, uid string, questionID uint64, text string) (*model.Question, error)
	ListByListing(ctx context.Context, viewer *model.User, listingID uint64) ([]model.Question, error)
}

type questionService struct {
	repo        repository.QuestionRepository
	listingRepo repository.ListingRepository
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time
}

func NewQuestionService(repo repository.QuestionRepository, listingRepo repository.ListingRepository, notifier Notifier, log *zap.Logger) QuestionService {
	return &questionService{repo: repo, listingRepo: listingRepo, notifier: notifier, log: log.Named("question"), now: time.Now}
}

func checkText(field, text string, maxLen int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid(field, field+" is required")
	}
	if utf8.RuneCountInString(text) > maxLen {
		return "", invalid(field, field+" is too long")
	}
	return text, nil
}

func (s *questionService) Ask(ctx context.Context, uid string, listingID uint64, text string) (*model.Question, error) {
	text, err := checkText("question", text, maxQuestionLen)
	if err != nil {
		return nil, err
	}
	l, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !visibleTo(l, &model.User{UID: uid}) {
		return nil, ErrNotFound
	}
	if l.OwnerUID == uid {
		return nil, ErrForbidden
	}
	q := &model.Question{ListingID: l.ID, AskerUID: uid, Question: text}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, storeErr(err)
	}
	if _, err := s.notifier.Notify(ctx, NotifyInput{
		UserUID:     l.OwnerUID,
		Type:        model.NotificationSystem,
		Title:       "İlanınıza yeni soru",
		Message:     fmt.Sprintf("\"%s\" ilanınıza bir soru soruldu.", l.Title),
		RelatedID:   strconv.FormatUint(q.ID, 10),
		RelatedType: "question",
		ActionURL:   listingPath(l),
	}); err != nil {
		s.log.Warn("question notification", zap.Uint64("question_id", q.ID), zap.Error(err))
	}
	return q, nil
}

// Answer is owner-only and succeeds at most once per question.
func (s *questionService) Answer(ctx context.Context, uid string, questionID uint64, text string) (*model.Question, error) {
	text, err := checkText("answer", text, maxQuestionLen)
	if err != nil {
		return nil, err
	}
	q, err := s.repo.FindByID(ctx, questionID)
	if err != nil {
		return nil, storeErr(err)
	}
	l, err := s.listingRepo.FindByID(ctx, q.ListingID)
	if err != nil {
		return nil, storeErr(err)
	}
	if l.OwnerUID != uid {
		return nil, ErrForbidden
	}
	if q.Answer != nil {
		return nil, conflictf("question is already answered")
	}
	at := s.now()
	if err := s.repo.Answer(ctx, q.ID, uid, text, at); err != nil {
		return nil, storeErr(err)
	}
	q.Answer, q.AnswererUID, q.AnsweredAt = &text, &uid, &at

	if _, err := s.notifier.Notify(ctx, NotifyInput{
		UserUID:     q.AskerUID,
		Type:        model.NotificationSystem,
		Title:       "Sorunuz yanıtlandı",
		Message:     fmt.Sprintf("\"%s\" ilanına sorduğunuz soru yanıtlandı.", l.Title),
		RelatedID:   strconv.FormatUint(q.ID, 10),
		RelatedType: "question",
		ActionURL:   listingPath(l),
	}); err != nil {
		s.log.Warn("answer notification", zap.Uint64("question_id", q.ID), zap.Error(err))
	}
	return q, nil
}

// ListByListing answers ErrNotFound for listings the viewer may not see.
// viewer may be nil.
func (s *questionService) ListByListing(ctx context.Context, viewer *model.User, listingID uint64) ([]model.Question, error) {
	l, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !visibleTo(l, viewer) {
		return nil, ErrNotFound
	}
	list, err := s.repo.ListByListing(ctx, listingID)
	return list, storeErr(err)
}
