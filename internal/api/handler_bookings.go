package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nsaronson/next-step-paws-sub000/internal/metrics"
	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/mw"
	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

type createBookingRequest struct {
	SlotID  string `json:"slotId" binding:"required"`
	DogName string `json:"dogName" binding:"required"`
	Notes   string `json:"notes"`
	// UserID lets the owner book on behalf of a customer. Customers may only
	// book for themselves.
	UserID string `json:"userId"`
}

type updateBookingRequest struct {
	DogName *string `json:"dogName"`
	Notes   *string `json:"notes"`
	Status  *string `json:"status" binding:"omitempty,oneof=confirmed pending cancelled"`
}

type bookingResponse struct {
	ID        string        `json:"id"`
	SlotID    string        `json:"slotId"`
	UserID    string        `json:"userId"`
	DogName   string        `json:"dogName"`
	Notes     string        `json:"notes,omitempty"`
	Status    string        `json:"status"`
	Slot      *slotResponse `json:"slot,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:        b.ID,
		SlotID:    b.SlotID,
		UserID:    b.UserID,
		DogName:   b.DogName,
		Notes:     b.Notes,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Slot.ID != "" {
		slot := toSlotResponse(b.Slot)
		resp.Slot = &slot
	}
	return resp
}

// GetBookings handles GET /api/bookings. Customers get their own bookings,
// the owner gets everything.
func (h *Handler) GetBookings(c *gin.Context) {
	claims := mw.ClaimsFrom(c)
	filter := store.BookingFilter{}
	if claims.Role != model.RoleOwner {
		filter.UserID = claims.UserID
	}

	bookings, err := h.store.ListBookings(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	c.JSON(http.StatusOK, resp)
}

// PostBooking handles POST /api/bookings. Claiming the slot and creating the
// booking happen in one transaction, so two customers racing for the same
// slot cannot both win.
func (h *Handler) PostBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := mw.ClaimsFrom(c)
	userID := claims.UserID
	if req.UserID != "" && req.UserID != claims.UserID {
		if claims.Role != model.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot book for another user"})
			return
		}
		if _, err := h.store.UserByID(c.Request.Context(), req.UserID); err != nil {
			h.fail(c, err)
			return
		}
		userID = req.UserID
	}

	booking := model.Booking{
		SlotID:  req.SlotID,
		UserID:  userID,
		DogName: req.DogName,
		Notes:   req.Notes,
	}
	if err := h.store.CreateBooking(c.Request.Context(), &booking, time.Now()); err != nil {
		h.fail(c, err)
		return
	}

	metrics.IncBookingCreated()
	h.notify(booking.UserID, fmt.Sprintf("%s is booked for a session on %s at %s. See you then!",
		booking.DogName, booking.Slot.Date, booking.Slot.Time))
	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

// PutBooking handles PUT /api/bookings/:id. Cancelling releases the slot;
// cancelled bookings reject any further updates.
func (h *Handler) PutBooking(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	existing, err := h.store.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !canMutate(mw.ClaimsFrom(c), existing.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}

	updated, err := h.store.UpdateBooking(c.Request.Context(), id, store.BookingPatch{
		DogName: req.DogName,
		Notes:   req.Notes,
		Status:  req.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	if req.Status != nil && *req.Status == model.BookingCancelled {
		metrics.IncBookingCancelled()
	}
	c.JSON(http.StatusOK, toBookingResponse(*updated))
}

// DeleteBooking handles DELETE /api/bookings/:id. Deleting an active booking
// cancels it first, which frees the slot for rebooking.
func (h *Handler) DeleteBooking(c *gin.Context) {
	id := c.Param("id")
	existing, err := h.store.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !canMutate(mw.ClaimsFrom(c), existing.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}

	wasActive := existing.Active()
	if err := h.store.DeleteBooking(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	if wasActive {
		metrics.IncBookingCancelled()
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking deleted"})
}
