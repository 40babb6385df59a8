package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
)

type request struct {
	method string
	target string
	body   string
	user   *model.User
	params map[string]string
}

func newContext(t *testing.T, r request) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(r.method, r.target, strings.NewReader(r.body))
	if r.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(r.params) > 0 {
		names := make([]string, 0, len(r.params))
		values := make([]string, 0, len(r.params))
		for k, v := range r.params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if r.user != nil {
		middleware.SetUser(c, r.user)
	}
	return c, rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var alice = &model.User{UID: "alice", Email: "alice@example.com", Name: "Alice", Role: model.RoleUser}

// stubListings implements only what a test sets; anything else panics on
// the nil embedded interface.
type stubListings struct {
	service.ListingService
	created []service.ListingInput
	filter  service.ListingFilter
	getRef  string
	session string
	viewer  *model.User
	err     error
}

func (s *stubListings) Create(_ context.Context, owner string, in service.ListingInput) (*model.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, in)
	return &model.Listing{ID: 1, ListingNumber: 100001, Title: in.Title, OwnerUID: owner, Status: model.ListingStatusActive}, nil
}

func (s *stubListings) List(_ context.Context, f service.ListingFilter) (*service.ListingPage, error) {
	s.filter = f
	return &service.ListingPage{Items: []model.Listing{{ID: 1, Title: "a"}}, Total: 41, Page: 1, Limit: 20}, nil
}

func (s *stubListings) Get(_ context.Context, viewer *model.User, ref, session string) (*service.ListingDetail, error) {
	s.viewer, s.getRef, s.session = viewer, ref, session
	if s.err != nil {
		return nil, s.err
	}
	return &service.ListingDetail{
		Listing:      model.Listing{ID: 7, ListingNumber: 100007, Title: "t", OwnerUID: "bob"},
		Owner:        &model.User{UID: "bob", Name: "Bob", Email: "bob@example.com"},
		CategoryName: "Elektronik",
	}, nil
}
