package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/infra/config"
	"campusmarket/internal/infra/obs"
)

type Handlers struct {
	Auth     AuthHTTP
	Me       MeHTTP
	Listing  ListingHTTP
	Sell     SellHTTP
	Cart     CartHTTP
	Report   ReportHTTP
	Chat     ChatHTTP
	Admin    AdminHTTP
	Guard    gin.HandlerFunc
	Activity gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without touching the global gin mode.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(obsMW.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(cfg.CORSOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if h.Guard != nil {
		router.Use(h.Guard)
	}
	if h.Activity != nil {
		router.Use(h.Activity)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	router.GET("/metrics", obs.MetricsHandler())

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/signup", h.Auth.Signup)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
	}
	if h.Me != nil {
		api.GET("/me", h.Me.Profile)
		api.PATCH("/me", h.Me.UpdateProfile)
		api.GET("/me/username-available", h.Me.UsernameAvailable)
		api.GET("/me/listings", h.Me.Listings)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Catalog)
		api.GET("/listings/:id", h.Listing.Get)
	}
	if h.Report != nil {
		api.POST("/listings/:id/reports", h.Report.Submit)
	}
	if h.Sell != nil {
		sell := api.Group("/sell/listings")
		sell.POST("", h.Sell.Create)
		sell.PUT("/:id", h.Sell.Update)
		sell.POST("/:id/sold", h.Sell.MarkSold)
		sell.DELETE("/:id", h.Sell.Remove)
		sell.POST("/:id/photos", h.Sell.UploadPhoto)
	}
	if h.Cart != nil {
		api.GET("/cart", h.Cart.Get)
		api.POST("/cart/items", h.Cart.Add)
		api.DELETE("/cart/items/:listing_id", h.Cart.Remove)
		api.DELETE("/cart", h.Cart.Clear)
	}
	if h.Chat != nil {
		api.GET("/conversations", h.Chat.ListConversations)
		api.POST("/conversations", h.Chat.StartConversation)
		api.GET("/conversations/:id", h.Chat.GetConversation)
		api.GET("/conversations/:id/messages", h.Chat.ListMessages)
		api.POST("/conversations/:id/messages", h.Chat.Reply)
		api.POST("/conversations/:id/read", h.Chat.ReadConversation)
		api.POST("/messages", h.Chat.Send)
		api.POST("/messages/:id/read", h.Chat.ReadMessage)
		api.PATCH("/messages/:id", h.Chat.EditMessage)
		api.DELETE("/messages/:id", h.Chat.DeleteMessage)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/users/:id/conversations", h.Admin.UserConversations)
		admin.GET("/reports", h.Admin.ListReports)
		admin.POST("/reports/:id/resolve", h.Admin.ResolveReport)
		admin.DELETE("/listings/:id", h.Admin.RemoveListing)
	}
	return router
}

func corsOrigins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"http://localhost:3000"}
	}
	return configured
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
