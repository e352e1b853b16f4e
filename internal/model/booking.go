package model

import "time"

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingPending   = "pending"
	BookingCancelled = "cancelled"
)

// Booking links a customer and their dog to a training slot. Cancelled is a
// terminal status; the slot's Booked flag is only ever flipped in the same
// transaction as the booking row it reflects.
type Booking struct {
	ID           string    `gorm:"primaryKey;size:36"`
	SlotID       string    `gorm:"index;size:36;not null"`
	UserID       string    `gorm:"index;size:36;not null"`
	DogName      string    `gorm:"size:256;not null"`
	Notes        string    `gorm:"size:2000"`
	Status       string    `gorm:"size:16;not null"`
	ReminderSent bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	// Associations
	Slot AvailableSlot `gorm:"foreignKey:SlotID"`
	User User          `gorm:"foreignKey:UserID"`
}

// Active reports whether the booking still holds its slot.
func (b *Booking) Active() bool {
	return b.Status != BookingCancelled
}
