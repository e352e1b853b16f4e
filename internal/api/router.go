package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nsaronson/next-step-paws-sub000/config"
	"github.com/nsaronson/next-step-paws-sub000/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLog(deps.Logger))

	handler := NewHandler(deps)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	// Cache public GETs only. Authenticated requests bypass the cache inside
	// the middleware, so role-scoped responses are never shared.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	authed := mw.Authenticate(deps.Tokens)
	maybeAuthed := mw.OptionalAuth(deps.Tokens)
	ownerOnly := mw.RequireOwner()

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", handler.GetHealth)
		api.GET("/metrics", gin.WrapH(promhttp.Handler()))

		api.POST("/auth/signup", handler.PostSignup)
		api.POST("/auth/login", handler.PostLogin)

		api.GET("/slots", maybeAuthed, caching, handler.GetSlots)
		api.POST("/slots", authed, ownerOnly, handler.PostSlot)
		api.DELETE("/slots/:id", authed, ownerOnly, handler.DeleteSlot)

		api.GET("/bookings", authed, handler.GetBookings)
		api.POST("/bookings", authed, handler.PostBooking)
		api.PUT("/bookings/:id", authed, handler.PutBooking)
		api.DELETE("/bookings/:id", authed, handler.DeleteBooking)

		api.GET("/classes", maybeAuthed, caching, handler.GetClasses)
		api.GET("/classes/:id", maybeAuthed, handler.GetClass)
		api.POST("/classes", authed, ownerOnly, handler.PostClass)
		api.PUT("/classes/:id", authed, ownerOnly, handler.PutClass)
		api.DELETE("/classes/:id", authed, ownerOnly, handler.DeleteClass)
		api.POST("/classes/:id/enroll", authed, handler.PostEnroll)
		api.DELETE("/classes/:id/enroll", authed, handler.DeleteEnroll)

		api.PUT("/subscriptions", authed, handler.PutSubscription)
		api.DELETE("/subscriptions", authed, handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
