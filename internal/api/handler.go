package api

import (
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nsaronson/next-step-paws-sub000/internal/auth"
	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/notification"
	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

// Deps groups the shared dependencies the API handlers need.
type Deps struct {
	Store       store.Store
	Tokens      *auth.Tokens
	WebPush     *webpush.Options
	Pool        *notification.WorkerPool
	Logger      zerolog.Logger
	OwnerEmails []string
}

// Handler holds the dependencies shared by all API handlers.
type Handler struct {
	store       store.Store
	tokens      *auth.Tokens
	webpush     *webpush.Options
	pool        *notification.WorkerPool
	logger      zerolog.Logger
	ownerEmails map[string]struct{}
}

// NewHandler creates a new API handler. Pool and WebPush may be nil when
// push notifications are disabled.
func NewHandler(d Deps) *Handler {
	owners := make(map[string]struct{}, len(d.OwnerEmails))
	for _, e := range d.OwnerEmails {
		owners[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &Handler{
		store:       d.Store,
		tokens:      d.Tokens,
		webpush:     d.WebPush,
		pool:        d.Pool,
		logger:      d.Logger,
		ownerEmails: owners,
	}
}

// notify hands a push event to the worker pool when push is configured.
func (h *Handler) notify(userID, message string) {
	if h.pool == nil {
		return
	}
	h.pool.Dispatch(notification.Event{UserID: userID, Message: message})
}

// canMutate is the authorization rule for booking-scoped writes: the owner
// may touch any resource, customers only their own.
func canMutate(claims *auth.Claims, resourceUserID string) bool {
	if claims == nil {
		return false
	}
	return claims.Role == model.RoleOwner || claims.UserID == resourceUserID
}

// GetHealth reports service liveness.
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
