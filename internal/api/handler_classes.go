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

type createClassRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Schedule    string  `json:"schedule"`
	MaxSpots    int     `json:"maxSpots" binding:"required"`
	Price       float64 `json:"price"`
	Level       string  `json:"level" binding:"required"`
}

type updateClassRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Schedule    *string  `json:"schedule"`
	MaxSpots    *int     `json:"maxSpots"`
	Price       *float64 `json:"price"`
	Level       *string  `json:"level"`
}

type rosterEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type classResponse struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Schedule         string        `json:"schedule"`
	MaxSpots         int           `json:"maxSpots"`
	Price            float64       `json:"price"`
	Level            string        `json:"level"`
	EnrolledStudents []rosterEntry `json:"enrolledStudents"`
	Waitlist         []rosterEntry `json:"waitlist"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// toClassResponse splits the preloaded enrollments, which arrive ordered by
// join position, into the enrolled roster and the waitlist.
func toClassResponse(class model.GroupClass) classResponse {
	resp := classResponse{
		ID:               class.ID,
		Name:             class.Name,
		Description:      class.Description,
		Schedule:         class.Schedule,
		MaxSpots:         class.MaxSpots,
		Price:            class.Price,
		Level:            class.Level,
		EnrolledStudents: []rosterEntry{},
		Waitlist:         []rosterEntry{},
		CreatedAt:        class.CreatedAt,
		UpdatedAt:        class.UpdatedAt,
	}
	for _, e := range class.Enrollments {
		entry := rosterEntry{ID: e.User.ID, Name: e.User.Name, Email: e.User.Email}
		if e.Waitlisted {
			resp.Waitlist = append(resp.Waitlist, entry)
		} else {
			resp.EnrolledStudents = append(resp.EnrolledStudents, entry)
		}
	}
	return resp
}

// GetClasses handles GET /api/classes. The optional level query parameter
// narrows the result.
func (h *Handler) GetClasses(c *gin.Context) {
	classes, err := h.store.ListClasses(c.Request.Context(), store.ClassFilter{
		Level: c.Query("level"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]classResponse, 0, len(classes))
	for _, class := range classes {
		resp = append(resp, toClassResponse(class))
	}
	c.JSON(http.StatusOK, resp)
}

// GetClass handles GET /api/classes/:id.
func (h *Handler) GetClass(c *gin.Context) {
	class, err := h.store.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toClassResponse(*class))
}

// PostClass handles POST /api/classes (owner only).
func (h *Handler) PostClass(c *gin.Context) {
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	class := model.GroupClass{
		Name:        req.Name,
		Description: req.Description,
		Schedule:    req.Schedule,
		MaxSpots:    req.MaxSpots,
		Price:       req.Price,
		Level:       req.Level,
	}
	if err := h.store.CreateClass(c.Request.Context(), &class); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toClassResponse(class))
}

// PutClass handles PUT /api/classes/:id (owner only). Raising maxSpots
// promotes waitlisted students into the freed seats in join order.
func (h *Handler) PutClass(c *gin.Context) {
	var req updateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	class, promoted, err := h.store.UpdateClass(c.Request.Context(), c.Param("id"), store.ClassPatch{
		Name:        req.Name,
		Description: req.Description,
		Schedule:    req.Schedule,
		MaxSpots:    req.MaxSpots,
		Price:       req.Price,
		Level:       req.Level,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	for _, u := range promoted {
		metrics.IncWaitlistPromotion()
		h.notify(u.ID, fmt.Sprintf("A spot opened up in %s. You're enrolled!", class.Name))
	}
	c.JSON(http.StatusOK, toClassResponse(*class))
}

// DeleteClass handles DELETE /api/classes/:id (owner only). Enrollments go
// with the class.
func (h *Handler) DeleteClass(c *gin.Context) {
	if err := h.store.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "class deleted"})
}

// PostEnroll handles POST /api/classes/:id/enroll. When the class is full the
// caller lands on the waitlist instead.
func (h *Handler) PostEnroll(c *gin.Context) {
	claims := mw.ClaimsFrom(c)
	userID := claims.UserID
	if v := c.Query("user_id"); v != "" && v != claims.UserID {
		if claims.Role != model.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot enroll another user"})
			return
		}
		if _, err := h.store.UserByID(c.Request.Context(), v); err != nil {
			h.fail(c, err)
			return
		}
		userID = v
	}

	status, err := h.store.Enroll(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	metrics.IncEnrollment(string(status))
	msg := "You're enrolled!"
	if status == store.StatusWaitlisted {
		msg = "Class is full. You've been added to the waitlist."
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "status": string(status)})
}

// DeleteEnroll handles DELETE /api/classes/:id/enroll. Withdrawing an
// enrolled student promotes the first waitlisted one, if any.
func (h *Handler) DeleteEnroll(c *gin.Context) {
	claims := mw.ClaimsFrom(c)
	userID := claims.UserID
	if v := c.Query("user_id"); v != "" && v != claims.UserID {
		if claims.Role != model.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot withdraw another user"})
			return
		}
		if _, err := h.store.UserByID(c.Request.Context(), v); err != nil {
			h.fail(c, err)
			return
		}
		userID = v
	}

	class, err := h.store.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	promoted, err := h.store.Withdraw(c.Request.Context(), class.ID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{"message": "withdrawn from class"}
	for i, u := range promoted {
		metrics.IncWaitlistPromotion()
		h.notify(u.ID, fmt.Sprintf("A spot opened up in %s. You're enrolled!", class.Name))
		if i == 0 {
			resp["promoted"] = u.Name
		}
	}
	c.JSON(http.StatusOK, resp)
}
