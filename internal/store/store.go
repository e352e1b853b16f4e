package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying handle for callers that need direct access,
	// such as the subscription handlers and the notification workers.
	DB() *gorm.DB

	CreateUser(ctx context.Context, user *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)

	CreateSlot(ctx context.Context, slot *model.AvailableSlot, now time.Time) error
	ListSlots(ctx context.Context, filter SlotFilter, now time.Time) ([]model.AvailableSlot, error)
	DeleteSlot(ctx context.Context, id string) error

	CreateBooking(ctx context.Context, booking *model.Booking, now time.Time) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error)
	UpdateBooking(ctx context.Context, id string, patch BookingPatch) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ClaimDueReminders(ctx context.Context, now time.Time, window time.Duration) ([]model.Booking, error)

	CreateClass(ctx context.Context, class *model.GroupClass) error
	GetClass(ctx context.Context, id string) (*model.GroupClass, error)
	ListClasses(ctx context.Context, filter ClassFilter) ([]model.GroupClass, error)
	UpdateClass(ctx context.Context, id string, patch ClassPatch) (*model.GroupClass, []model.User, error)
	DeleteClass(ctx context.Context, id string) error
	Enroll(ctx context.Context, classID, userID string) (EnrollmentStatus, error)
	Withdraw(ctx context.Context, classID, userID string) ([]model.User, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	loc *time.Location
}

// NewGormStore creates a new GORM-backed store. Slot dates and times are
// interpreted in loc; pass nil for the server's local zone.
func NewGormStore(db *gorm.DB, loc *time.Location) Store {
	if loc == nil {
		loc = time.Local
	}
	return &gormStore{db: db, loc: loc}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}
