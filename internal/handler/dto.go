package handler

import (
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

type PublicUserResponse struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

func toPublicUser(u *model.User) *PublicUserResponse {
	if u == nil {
		return nil
	}
	return &PublicUserResponse{UID: u.UID, Name: u.Name}
}

type MeResponse struct {
	UID         string  `json:"uid"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	LastLoginAt *string `json:"lastLoginAt,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

func toMe(u *model.User) MeResponse {
	return MeResponse{
		UID:         u.UID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		LastLoginAt: formatTimePtr(u.LastLoginAt),
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

type AdminUserResponse struct {
	MeResponse
	IsBlocked   bool    `json:"isBlocked"`
	BlockReason string  `json:"blockReason,omitempty"`
	BlockedAt   *string `json:"blockedAt,omitempty"`
}

func toAdminUser(u *model.User) AdminUserResponse {
	return AdminUserResponse{
		MeResponse:  toMe(u),
		IsBlocked:   u.IsBlocked,
		BlockReason: u.BlockReason,
		BlockedAt:   formatTimePtr(u.BlockedAt),
	}
}

type ListingResponse struct {
	ID               uint64         `json:"id"`
	ListingNumber    uint64         `json:"listingNumber"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	MinPrice         *float64       `json:"minPrice"`
	MaxPrice         *float64       `json:"maxPrice"`
	City             string         `json:"city"`
	District         string         `json:"district"`
	CategoryID       string         `json:"categoryId"`
	SubCategoryID    string         `json:"subCategoryId"`
	CategoryData     map[string]any `json:"categoryData"`
	Images           []string       `json:"images"`
	Status           string         `json:"status"`
	ModerationReason string         `json:"moderationReason,omitempty"`
	ViewCount        uint64         `json:"viewCount"`
	OwnerID          string         `json:"ownerId"`
	ExpiresAt        *string        `json:"expiresAt,omitempty"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
}

func toListing(l *model.Listing) ListingResponse {
	images := []string(l.Images)
	if images == nil {
		images = []string{}
	}
	return ListingResponse{
		ID:               l.ID,
		ListingNumber:    l.ListingNumber,
		Title:            l.Title,
		Description:      l.Description,
		MinPrice:         l.MinPrice,
		MaxPrice:         l.MaxPrice,
		City:             l.City,
		District:         l.District,
		CategoryID:       l.CategoryID,
		SubCategoryID:    l.SubCategoryID,
		CategoryData:     l.CategoryData.Raw(),
		Images:           images,
		Status:           string(l.Status),
		ModerationReason: l.ModerationReason,
		ViewCount:        l.ViewCount,
		OwnerID:          l.OwnerUID,
		ExpiresAt:        formatTimePtr(l.ExpiresAt),
		CreatedAt:        formatTime(l.CreatedAt),
		UpdatedAt:        formatTime(l.UpdatedAt),
	}
}

func toListings(list []model.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(list))
	for i := range list {
		out = append(out, toListing(&list[i]))
	}
	return out
}

type ListingDetailResponse struct {
	ListingResponse
	Owner           *PublicUserResponse `json:"owner"`
	CategoryName    string              `json:"categoryName"`
	SubCategoryName string              `json:"subCategoryName"`
	OfferCount      int64               `json:"offerCount"`
	FavoriteCount   int64               `json:"favoriteCount"`
	QuestionCount   int64               `json:"questionCount"`
}

func toListingDetail(d *service.ListingDetail) ListingDetailResponse {
	return ListingDetailResponse{
		ListingResponse: toListing(&d.Listing),
		Owner:           toPublicUser(d.Owner),
		CategoryName:    d.CategoryName,
		SubCategoryName: d.SubCategoryName,
		OfferCount:      d.Counts.Offers,
		FavoriteCount:   d.Counts.Favorites,
		QuestionCount:   d.Counts.Questions,
	}
}

type ListingPageResponse struct {
	Items      []ListingResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

type OfferResponse struct {
	ID              uint64           `json:"id"`
	ListingID       uint64           `json:"listingId"`
	OffererID       string           `json:"offererId"`
	Amount          float64          `json:"amount"`
	Message         string           `json:"message"`
	Status          string           `json:"status"`
	RejectionReason *string          `json:"rejectionReason,omitempty"`
	CategoryData    map[string]any   `json:"categoryData"`
	Listing         *ListingResponse `json:"listing,omitempty"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

func toOffer(o *model.Offer) OfferResponse {
	return OfferResponse{
		ID:              o.ID,
		ListingID:       o.ListingID,
		OffererID:       o.OffererUID,
		Amount:          o.Amount,
		Message:         o.Message,
		Status:          string(o.Status),
		RejectionReason: o.RejectionReason,
		CategoryData:    o.CategoryData.Raw(),
		CreatedAt:       formatTime(o.CreatedAt),
		UpdatedAt:       formatTime(o.UpdatedAt),
	}
}

type QuestionResponse struct {
	ID         uint64  `json:"id"`
	ListingID  uint64  `json:"listingId"`
	AskerID    string  `json:"askerId"`
	Question   string  `json:"question"`
	Answer     *string `json:"answer"`
	AnsweredAt *string `json:"answeredAt,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

func toQuestion(q *model.Question) QuestionResponse {
	return QuestionResponse{
		ID:         q.ID,
		ListingID:  q.ListingID,
		AskerID:    q.AskerUID,
		Question:   q.Question,
		Answer:     q.Answer,
		AnsweredAt: formatTimePtr(q.AnsweredAt),
		CreatedAt:  formatTime(q.CreatedAt),
	}
}

type MessageResponse struct {
	ID             uint64  `json:"id"`
	ConversationID uint64  `json:"conversationId"`
	SenderID       string  `json:"senderId"`
	Content        string  `json:"content"`
	IsRead         bool    `json:"isRead"`
	ReadAt         *string `json:"readAt,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

func toMessage(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderUID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		ReadAt:         formatTimePtr(m.ReadAt),
		CreatedAt:      formatTime(m.CreatedAt),
	}
}

type ConversationResponse struct {
	ID            uint64              `json:"id"`
	ListingID     *uint64             `json:"listingId,omitempty"`
	Participants  [2]string           `json:"participants"`
	Other         *PublicUserResponse `json:"other,omitempty"`
	Listing       *ListingResponse    `json:"listing,omitempty"`
	UnreadCount   int64               `json:"unreadCount"`
	LastMessageAt *string             `json:"lastMessageAt,omitempty"`
	CreatedAt     string              `json:"createdAt"`
}

func toConversation(cv *model.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:            cv.ID,
		Participants:  [2]string{cv.UserAUID, cv.UserBUID},
		LastMessageAt: formatTimePtr(cv.LastMessageAt),
		CreatedAt:     formatTime(cv.CreatedAt),
	}
	if cv.ListingID != 0 {
		id := cv.ListingID
		resp.ListingID = &id
	}
	return resp
}

func toConversationSummary(s *service.ConversationSummary) ConversationResponse {
	resp := toConversation(&s.Conversation)
	resp.Other = toPublicUser(s.Other)
	if s.Listing != nil {
		l := toListing(s.Listing)
		resp.Listing = &l
	}
	resp.UnreadCount = s.Unread
	return resp
}

type NotificationResponse struct {
	ID          uint64  `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	IsRead      bool    `json:"isRead"`
	ReadAt      *string `json:"readAt,omitempty"`
	RelatedID   string  `json:"relatedId,omitempty"`
	RelatedType string  `json:"relatedType,omitempty"`
	ActionURL   string  `json:"actionUrl,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

func toNotification(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		IsRead:      n.IsRead,
		ReadAt:      formatTimePtr(n.ReadAt),
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		ActionURL:   n.ActionURL,
		CreatedAt:   formatTime(n.CreatedAt),
	}
}
