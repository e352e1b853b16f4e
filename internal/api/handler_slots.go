package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/mw"
	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

type createSlotRequest struct {
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Duration int    `json:"duration"`
}

type slotResponse struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	Booked   bool   `json:"booked"`
}

func toSlotResponse(s model.AvailableSlot) slotResponse {
	return slotResponse{
		ID:       s.ID,
		Date:     s.Date,
		Time:     s.Time,
		Duration: s.Duration,
		Booked:   s.Booked,
	}
}

// GetSlots handles GET /api/slots. Customers and anonymous callers see only
// upcoming slots; the owner also sees past ones. The optional date and
// available query parameters narrow the result.
func (h *Handler) GetSlots(c *gin.Context) {
	claims := mw.ClaimsFrom(c)
	filter := store.SlotFilter{
		Date:        c.Query("date"),
		IncludePast: claims != nil && claims.Role == model.RoleOwner,
	}
	if v, ok := c.GetQuery("available"); ok {
		filter.OnlyAvailable = v == "true" || v == "1"
	}

	slots, err := h.store.ListSlots(c.Request.Context(), filter, time.Now())
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

// PostSlot handles POST /api/slots (owner only).
func (h *Handler) PostSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot := model.AvailableSlot{
		Date:     req.Date,
		Time:     req.Time,
		Duration: req.Duration,
	}
	if err := h.store.CreateSlot(c.Request.Context(), &slot, time.Now()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSlotResponse(slot))
}

// DeleteSlot handles DELETE /api/slots/:id (owner only). Booked slots cannot
// be removed until their booking is cancelled.
func (h *Handler) DeleteSlot(c *gin.Context) {
	if err := h.store.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "slot deleted"})
}
