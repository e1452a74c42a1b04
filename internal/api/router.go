package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/chatelio/internal/middleware"
	"github.com/lalith-99/chatelio/internal/service"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Identity  *service.IdentityService
	Knowledge *service.KnowledgeService
	Chat      *service.ChatService
	Public    *service.PublicService
	Settings  *service.SettingsService
	Analytics *service.AnalyticsService

	URLs           service.URLConfig
	AllowedOrigins []string
	// Ping reports backing store health; nil means always healthy.
	Ping   func(ctx context.Context) error
	Logger *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger))
	if d.URLs.UseSubdomain {
		r.Use(middleware.Subdomain(d.URLs.BaseDomain))
	}

	authn := middleware.AuthMiddleware(d.Identity)
	scope := middleware.RequireCompanyScope(d.Identity)

	authH := NewAuthHandler(d.Identity, d.Logger)
	userH := NewUserHandler(d.Identity, d.URLs, d.Logger)
	chatH := NewChatHandler(d.Chat, d.Logger)
	wsH := NewWSHandler(d.Chat, d.Identity, d.AllowedOrigins, d.Logger)
	kbH := NewKnowledgeHandler(d.Knowledge, d.Logger)
	companyH := NewCompanyHandler(d.Settings, d.Analytics, d.Logger)
	publicH := NewPublicHandler(d.Public, d.Logger)

	v1 := r.Group("/v1")

	v1.GET("/health", func(c *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(c.Request.Context()); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a := v1.Group("/auth")
	a.POST("/company/register", authH.RegisterCompany)
	a.POST("/company/login", authH.LoginCompany)
	a.POST("/refresh", authH.Refresh)
	a.POST("/logout", authH.Logout)
	a.GET("/verify", authn, authH.Verify)
	a.GET("/company/profile", authn, authH.CompanyProfile)

	u := v1.Group("/users")
	u.POST("/register", userH.Register)
	u.POST("/login", userH.Login)
	u.POST("/guest", userH.Guest)
	u.GET("/company/:company_id/info", userH.CompanyInfo)
	u.POST("/convert-guest", authn, userH.ConvertGuest)
	u.GET("/profile", authn, userH.Profile)
	u.GET("/session/check", authn, userH.SessionCheck)

	v1.GET("/chat/ws", wsH.Serve)
	ch := v1.Group("/chat", authn)
	ch.POST("/send", chatH.Send)
	ch.GET("/list", chatH.List)
	ch.GET("/history/:chat_id", chatH.History)
	ch.PUT("/title/:chat_id", chatH.Rename)
	ch.DELETE("/:chat_id", chatH.Delete)

	co := v1.Group("/companies/:company_id", authn, scope)
	co.GET("/settings", companyH.GetSettings)
	co.PUT("/settings", companyH.UpdateSettings)
	co.POST("/publish", companyH.Publish)
	co.POST("/unpublish", companyH.Unpublish)
	co.GET("/analytics", companyH.Analytics)

	kb := co.Group("/knowledge-base")
	kb.POST("/setup", kbH.Setup)
	kb.GET("", kbH.Status)
	kb.GET("/documents", kbH.List)
	kb.POST("/documents/text", kbH.UploadText)
	kb.POST("/documents/file", kbH.UploadFile)
	kb.DELETE("/documents/:doc_id", kbH.Delete)
	kb.DELETE("/documents", kbH.Clear)

	pub := v1.Group("/public")
	pub.GET("/chatbot/:slug", publicH.Info)
	pub.POST("/chatbot/:slug/chat", publicH.Chat)
	pub.GET("/", publicH.Info)
	pub.POST("/chat", publicH.Chat)

	return r
}
