package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

// fail translates store errors into the uniform JSON error body. Validation
// failures map to 400, missing records and memberships to 404 and business
// conflicts to 409. Anything unrecognized is logged and reported as a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrNotEnrolled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrSlotExists),
		errors.Is(err, store.ErrSlotBooked),
		errors.Is(err, store.ErrSlotInPast),
		errors.Is(err, store.ErrBookingClosed),
		errors.Is(err, store.ErrAlreadyEnrolled),
		errors.Is(err, store.ErrClassFull),
		errors.Is(err, store.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
