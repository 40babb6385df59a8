package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/config"
	"github.com/varsagel/varsagelcom-sub000/internal/handler"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	appmw "github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	Config   *config.Config
	Log      *zap.Logger
	Registry *catalog.Registry
	Metrics  *metrics.Metrics
	Verifier appmw.TokenVerifier
	Repos    *Repositories
	Services *Services
	SHA      string
	Build    string
}

type Server struct {
	e     *echo.Echo
	repos *Repositories
	log   *zap.Logger
}

func New(o Options) *Server {
	cfg := o.Config
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(o.Log))
	e.Use(o.Metrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(cfg.AllowedOrigins),
	}))
	e.Use(middleware.ContextTimeout(cfg.RequestTimeout))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    o.SHA,
			"build_time": o.Build,
		})
	})
	e.GET("/metrics", echo.WrapHandler(o.Metrics.Handler()))

	svc := o.Services
	authMw := appmw.NewAuthMiddleware(o.Verifier, svc.Users, o.Log)
	session := appmw.ViewerSession(cfg.ViewSessionTTL, strings.HasPrefix(cfg.AppBaseURL, "https://"))
	auth := authMw.RequireAuth

	categories := handler.NewCategoryHandler(o.Registry)
	listings := handler.NewListingHandler(svc.Listings, o.Registry, o.Log)
	offers := handler.NewOfferHandler(svc.Offers, o.Log)
	questions := handler.NewQuestionHandler(svc.Questions, o.Log)
	conversations := handler.NewConversationHandler(svc.Conversations, o.Log)
	notifications := handler.NewNotificationHandler(svc.Notifications, o.Log)
	users := handler.NewUserHandler(svc.Users, svc.Notifications, svc.Conversations, o.Log)
	admin := handler.NewAdminHandler(svc.Admin, o.Log)

	api := e.Group("/api")
	api.GET("/categories", categories.List)
	api.GET("/categories/:id", categories.Get)
	api.GET("/categories/:id/:sub", categories.GetSubCategory)
	api.GET("/car-brands", categories.CarBrands)

	api.GET("/listings", listings.List)
	api.GET("/listings/:id", listings.Get, session, authMw.OptionalAuth)
	api.GET("/listings/:id/questions", questions.List, authMw.OptionalAuth)
	api.POST("/listings", listings.Create, auth)
	api.POST("/listings/draft", listings.Draft, auth)
	api.PUT("/listings/:id", listings.Update, auth)
	api.PATCH("/listings/:id/status", listings.UpdateStatus, auth)
	api.POST("/listings/:id/favorite", listings.AddFavorite, auth)
	api.DELETE("/listings/:id/favorite", listings.RemoveFavorite, auth)
	api.POST("/listings/:id/offers", offers.Create, auth)
	api.GET("/listings/:id/offers", offers.ListByListing, auth)
	api.POST("/listings/:id/questions", questions.Ask, auth)

	api.POST("/offers/:id/accept", offers.Accept, auth)
	api.POST("/offers/:id/reject", offers.Reject, auth)
	api.POST("/questions/:id/answer", questions.Answer, auth)

	api.POST("/conversations", conversations.Start, auth)
	api.GET("/conversations", conversations.List, auth)
	api.GET("/conversations/:id/messages", conversations.Messages, auth)
	api.POST("/conversations/:id/messages", conversations.Send, auth)
	api.POST("/conversations/:id/read", conversations.MarkRead, auth)

	api.GET("/notifications", notifications.List, auth)
	api.POST("/notifications/read", notifications.MarkRead, auth)
	api.POST("/notifications/read-all", notifications.MarkAllRead, auth)
	api.DELETE("/notifications", notifications.Delete, auth)

	api.GET("/users/:uid/public", users.GetPublic)
	me := api.Group("/me", auth)
	me.GET("", users.Me)
	me.GET("/counts", users.Counts)
	me.GET("/listings", listings.ListMine)
	me.GET("/offers", offers.ListMine)
	me.GET("/favorites", listings.ListFavorites)

	adm := api.Group("/admin", auth, appmw.AdminOnly)
	adm.GET("/stats", admin.Stats)
	adm.GET("/users", admin.ListUsers)
	adm.POST("/users/:uid/block", admin.Block)
	adm.POST("/users/:uid/unblock", admin.Unblock)
	adm.GET("/listings/pending", admin.PendingListings)
	adm.POST("/listings/:id/approve", admin.Approve)
	adm.POST("/listings/:id/reject", admin.Reject)
	adm.DELETE("/listings/:id", admin.DeleteListing)

	return &Server{e: e, repos: o.Repos, log: o.Log}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// SetDB hands the database to every repository once it is reachable.
func (s *Server) SetDB(db *gorm.DB) {
	if s.repos != nil {
		s.repos.SetDB(db)
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func allowOrigin(allowed []string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") {
			return true, nil
		}
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimSpace(a), origin) {
				return true, nil
			}
		}
		return false, nil
	}
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
