package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type stubNotifications struct {
	service.NotificationService
	unreadOnly  bool
	page, limit int
	ids         []uint64
	unread      int64
	err         error
}

func (s *stubNotifications) List(_ context.Context, _ string, unreadOnly bool, page, limit int) (*service.NotificationPage, error) {
	s.unreadOnly, s.page, s.limit = unreadOnly, page, limit
	read := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &service.NotificationPage{
		Items: []model.Notification{
			{ID: 2, Type: model.NotificationNewOffer, Title: "Yeni teklif"},
			{ID: 1, Type: model.NotificationSystem, IsRead: true, ReadAt: &read},
		},
		Total:       2,
		UnreadCount: 1,
		Page:        1,
		Limit:       20,
	}, nil
}

func (s *stubNotifications) MarkRead(_ context.Context, _ string, ids []uint64) (int64, error) {
	s.ids = ids
	return s.unread, s.err
}

func (s *stubNotifications) Delete(_ context.Context, _ string, ids []uint64) (int64, error) {
	s.ids = ids
	return s.unread, s.err
}

func (s *stubNotifications) UnreadCount(context.Context, string) (int64, error) {
	return s.unread, s.err
}

func TestListNotificationsHandler(t *testing.T) {
	svc := &stubNotifications{}
	h := NewNotificationHandler(svc, zap.NewNop())
	c, rec := newContext(t, request{method: http.MethodGet, target: "/api/notifications?unreadOnly=true&page=3&limit=5", user: alice})
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.unreadOnly)
	assert.Equal(t, 3, svc.page)
	assert.Equal(t, 5, svc.limit)

	resp := decode[NotificationListResponse](t, rec)
	assert.Equal(t, int64(1), resp.UnreadCount)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "NEW_OFFER", resp.Items[0].Type)
	assert.Nil(t, resp.Items[0].ReadAt)
	require.NotNil(t, resp.Items[1].ReadAt)
	assert.Equal(t, "2026-03-01T10:00:00Z", *resp.Items[1].ReadAt)
}

func TestMarkNotificationsRead(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ok", nil, http.StatusOK},
		{"foreign id", service.ErrForbidden, http.StatusForbidden},
		{"missing id", service.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubNotifications{unread: 4, err: tt.err}
			h := NewNotificationHandler(svc, zap.NewNop())
			c, rec := newContext(t, request{method: http.MethodPost, target: "/", body: `{"ids":[5,6]}`, user: alice})
			require.NoError(t, h.MarkRead(c))
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, []uint64{5, 6}, svc.ids)
			if tt.err == nil {
				assert.Equal(t, int64(4), decode[UnreadCountResponse](t, rec).UnreadCount)
			}
		})
	}
}

func TestNotificationsRequireUser(t *testing.T) {
	h := NewNotificationHandler(&stubNotifications{}, zap.NewNop())
	c, rec := newContext(t, request{method: http.MethodGet, target: "/api/notifications"})
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubConversations struct {
	service.ConversationService
	unread int64
}

func (s *stubConversations) UnreadCount(context.Context, string) (int64, error) {
	return s.unread, nil
}

func TestMeCounts(t *testing.T) {
	h := NewUserHandler(nil, &stubNotifications{unread: 2}, &stubConversations{unread: 5}, zap.NewNop())
	c, rec := newContext(t, request{method: http.MethodGet, target: "/api/me/counts", user: alice})
	require.NoError(t, h.Counts(c))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CountsResponse](t, rec)
	assert.Equal(t, int64(2), resp.UnreadNotifications)
	assert.Equal(t, int64(5), resp.UnreadMessages)
}

func TestMe(t *testing.T) {
	h := NewUserHandler(nil, nil, nil, zap.NewNop())
	c, rec := newContext(t, request{method: http.MethodGet, target: "/api/me", user: alice})
	require.NoError(t, h.Me(c))
	resp := decode[MeResponse](t, rec)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, "USER", resp.Role)
}
