package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nsaronson/next-step-paws-sub000/config"
	"github.com/nsaronson/next-step-paws-sub000/internal/api"
	"github.com/nsaronson/next-step-paws-sub000/internal/auth"
	"github.com/nsaronson/next-step-paws-sub000/internal/db"
	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

type account struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func setupServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "paws_integration.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(testDB))

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1
	cfg.Auth.OwnerEmails = []string{"nat@nextsteppaws.com"}

	router := api.NewRouter(cfg, api.Deps{
		Store:       store.NewGormStore(testDB, time.UTC),
		Tokens:      auth.NewTokens("integration-secret", time.Hour),
		Logger:      zerolog.Nop(),
		OwnerEmails: cfg.Auth.OwnerEmails,
	})
	return router, testDB
}

func request(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, router *gin.Engine, email, name string) account {
	t.Helper()
	w := request(t, router, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email": email, "password": "goodboy2026", "name": name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var acct account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acct))
	return acct
}

// TestBookingLifecycle walks a slot from publication through booking,
// cancellation and rebooking, verifying the database state at each step.
func TestBookingLifecycle(t *testing.T) {
	router, testDB := setupServer(t)

	owner := register(t, router, "nat@nextsteppaws.com", "Nat")
	require.Equal(t, model.RoleOwner, owner.User.Role)
	dana := register(t, router, "dana@example.com", "Dana")
	sam := register(t, router, "sam@example.com", "Sam")

	date := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")
	var slotID, bookingID string

	t.Run("Owner publishes a slot", func(t *testing.T) {
		w := request(t, router, http.MethodPost, "/api/slots", owner.Token, gin.H{
			"date": date, "time": "10:00", "duration": 60,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var slot struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slot))
		slotID = slot.ID

		dup := request(t, router, http.MethodPost, "/api/slots", owner.Token, gin.H{
			"date": date, "time": "10:00", "duration": 60,
		})
		assert.Equal(t, http.StatusConflict, dup.Code, "the same window must not be published twice")
	})

	t.Run("Customer books the slot", func(t *testing.T) {
		w := request(t, router, http.MethodPost, "/api/bookings", dana.Token, gin.H{
			"slotId": slotID, "dogName": "Rex",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var booking struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))
		bookingID = booking.ID

		var slot model.AvailableSlot
		require.NoError(t, testDB.First(&slot, "id = ?", slotID).Error)
		assert.True(t, slot.Booked, "the slot row should be claimed")

		steal := request(t, router, http.MethodPost, "/api/bookings", sam.Token, gin.H{
			"slotId": slotID, "dogName": "Maple",
		})
		assert.Equal(t, http.StatusConflict, steal.Code, "a booked slot must reject further bookings")
	})

	t.Run("Cancellation reopens the slot", func(t *testing.T) {
		w := request(t, router, http.MethodPut, "/api/bookings/"+bookingID, dana.Token, gin.H{
			"status": "cancelled",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var slot model.AvailableSlot
		require.NoError(t, testDB.First(&slot, "id = ?", slotID).Error)
		assert.False(t, slot.Booked, "cancelling should release the slot")

		rebook := request(t, router, http.MethodPost, "/api/bookings", sam.Token, gin.H{
			"slotId": slotID, "dogName": "Maple",
		})
		assert.Equal(t, http.StatusCreated, rebook.Code, "a released slot should be bookable again")

		var bookings int64
		require.NoError(t, testDB.Model(&model.Booking{}).Where("slot_id = ?", slotID).Count(&bookings).Error)
		assert.EqualValues(t, 2, bookings, "the cancelled booking stays on record")
	})
}

// TestClassWaitlistLifecycle walks a class through filling up, waitlisting,
// withdrawal promotion and a capacity raise.
func TestClassWaitlistLifecycle(t *testing.T) {
	router, testDB := setupServer(t)

	owner := register(t, router, "nat@nextsteppaws.com", "Nat")
	dana := register(t, router, "dana@example.com", "Dana")
	sam := register(t, router, "sam@example.com", "Sam")
	kim := register(t, router, "kim@example.com", "Kim")

	var classID string
	t.Run("Owner opens a one-spot class", func(t *testing.T) {
		w := request(t, router, http.MethodPost, "/api/classes", owner.Token, gin.H{
			"name": "Scent Work", "maxSpots": 1, "price": 120, "level": "intermediate",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var class struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &class))
		classID = class.ID
	})

	enroll := func(t *testing.T, token string) string {
		w := request(t, router, http.MethodPost, "/api/classes/"+classID+"/enroll", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Status
	}

	t.Run("Class fills and overflow lands on the waitlist", func(t *testing.T) {
		assert.Equal(t, "enrolled", enroll(t, dana.Token))
		assert.Equal(t, "waitlisted", enroll(t, sam.Token))
		assert.Equal(t, "waitlisted", enroll(t, kim.Token))

		var enrolledCount int64
		require.NoError(t, testDB.Model(&model.ClassEnrollment{}).
			Where("class_id = ? AND waitlisted = ?", classID, false).
			Count(&enrolledCount).Error)
		assert.EqualValues(t, 1, enrolledCount, "capacity must hold at one")
	})

	t.Run("Withdrawal promotes the longest waiting student", func(t *testing.T) {
		w := request(t, router, http.MethodDelete, "/api/classes/"+classID+"/enroll", dana.Token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Promoted string `json:"promoted"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Sam", resp.Promoted)

		var sams model.ClassEnrollment
		require.NoError(t, testDB.First(&sams, "class_id = ? AND user_id = ?", classID, sam.User.ID).Error)
		assert.False(t, sams.Waitlisted)
	})

	t.Run("Raising capacity seats the rest of the waitlist", func(t *testing.T) {
		w := request(t, router, http.MethodPut, "/api/classes/"+classID, owner.Token, gin.H{
			"maxSpots": 3,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var waiting int64
		require.NoError(t, testDB.Model(&model.ClassEnrollment{}).
			Where("class_id = ? AND waitlisted = ?", classID, true).
			Count(&waiting).Error)
		assert.Zero(t, waiting, "everyone fits after the capacity raise")

		var kims model.ClassEnrollment
		require.NoError(t, testDB.First(&kims, "class_id = ? AND user_id = ?", classID, kim.User.ID).Error)
		assert.False(t, kims.Waitlisted)
	})
}
