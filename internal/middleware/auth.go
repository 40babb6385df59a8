package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

const userKey = "user"

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*service.Identity, error)
}

type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*service.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id := &service.Identity{UID: tok.UID}
	id.Email, _ = tok.Claims["email"].(string)
	id.Name, _ = tok.Claims["name"].(string)
	return id, nil
}

// DevVerifier trusts the token as "uid" or "uid|email|name". Local use only.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, token string) (*service.Identity, error) {
	parts := strings.SplitN(token, "|", 3)
	if strings.TrimSpace(parts[0]) == "" {
		return nil, ErrInvalidToken
	}
	id := &service.Identity{UID: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		id.Email = parts[1]
	}
	if len(parts) > 2 {
		id.Name = parts[2]
	}
	if id.Email == "" {
		id.Email = id.UID + "@dev.varsagel.local"
	}
	return id, nil
}

type AuthMiddleware struct {
	verifier TokenVerifier
	users    service.UserService
	log      *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, users service.UserService, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, users: users, log: log.Named("auth")}
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}

func bearer(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tok, tok != ""
}

// authenticate resolves and provisions the caller. It writes the error
// response itself and reports whether the request may continue.
func (m *AuthMiddleware) authenticate(c echo.Context, token string) (bool, error) {
	ctx := c.Request().Context()
	id, err := m.verifier.Verify(ctx, token)
	if err != nil {
		return false, errorJSON(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
	}
	u, err := m.users.Provision(ctx, *id)
	if err != nil {
		if errors.Is(err, service.ErrUnavailable) {
			return false, errorJSON(c, http.StatusServiceUnavailable, "unavailable", "please try again")
		}
		m.log.Error("provision user", zap.String("uid", id.UID), zap.Error(err))
		return false, errorJSON(c, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
	if u.IsBlocked {
		return false, errorJSON(c, http.StatusForbidden, "account_blocked", "this account is blocked")
	}
	SetUser(c, u)
	return true, nil
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearer(c)
		if !ok {
			return errorJSON(c, http.StatusUnauthorized, "unauthorized", "sign in required")
		}
		if ok, err := m.authenticate(c, token); !ok {
			return err
		}
		return next(c)
	}
}

// OptionalAuth attaches the user when a token is sent and lets anonymous
// requests through.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearer(c)
		if !ok {
			return next(c)
		}
		if ok, err := m.authenticate(c, token); !ok {
			return err
		}
		return next(c)
	}
}

// AdminOnly must run after RequireAuth.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !CurrentUser(c).IsAdmin() {
			return errorJSON(c, http.StatusForbidden, "forbidden", "admin access required")
		}
		return next(c)
	}
}

func SetUser(c echo.Context, u *model.User) {
	c.Set(userKey, u)
}

// CurrentUser is nil on anonymous requests.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}
