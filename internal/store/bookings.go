package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/schedule"
)

// CreateBooking books a slot for a customer. The conditional claim on the
// slot row decides races: whichever transaction flips booked first wins, and
// every loser sees ErrSlotBooked.
func (s *gormStore) CreateBooking(ctx context.Context, booking *model.Booking, now time.Time) error {
	if booking.DogName == "" {
		return invalidf("dogName is required")
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.Status = model.BookingConfirmed
	booking.ReminderSent = false

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot model.AvailableSlot
		if err := tx.First(&slot, "id = ?", booking.SlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch slot %s: %w", booking.SlotID, err)
		}
		if slot.Booked {
			return ErrSlotBooked
		}
		future, err := schedule.InFuture(slot.Date, slot.Time, s.loc, now)
		if err != nil {
			return invalidf("%v", err)
		}
		if !future {
			return ErrSlotInPast
		}

		claim := tx.Model(&model.AvailableSlot{}).
			Where("id = ? AND booked = ?", booking.SlotID, false).
			Update("booked", true)
		if claim.Error != nil {
			return fmt.Errorf("failed to claim slot %s: %w", booking.SlotID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrSlotBooked
		}

		if err := tx.Omit(clause.Associations).Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		if err := tx.Preload("Slot").First(booking, "id = ?", booking.ID).Error; err != nil {
			return fmt.Errorf("failed to reload booking: %w", err)
		}
		return nil
	})
}

// GetBooking returns a booking with its slot loaded.
func (s *gormStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := s.db.WithContext(ctx).Preload("Slot").First(&booking, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

// ListBookings returns bookings with their slots loaded, newest first.
func (s *gormStore) ListBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	q := s.db.WithContext(ctx).Preload("Slot")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	var bookings []model.Booking
	if err := q.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBooking applies a field patch. Cancelled bookings reject every change.
// A cancellation releases the slot in the same transaction; the status guard
// keeps two racing cancellations from releasing it twice.
func (s *gormStore) UpdateBooking(ctx context.Context, id string, patch BookingPatch) (*model.Booking, error) {
	var updated model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking model.Booking
		if err := tx.First(&booking, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch booking %s: %w", id, err)
		}
		if !booking.Active() {
			return ErrBookingClosed
		}

		updates := map[string]any{}
		if patch.DogName != nil {
			if *patch.DogName == "" {
				return invalidf("dogName cannot be empty")
			}
			updates["dog_name"] = *patch.DogName
		}
		if patch.Notes != nil {
			updates["notes"] = *patch.Notes
		}
		if patch.Status != nil && *patch.Status != booking.Status {
			switch *patch.Status {
			case model.BookingConfirmed, model.BookingPending:
				updates["status"] = *patch.Status
			case model.BookingCancelled:
				res := tx.Model(&model.Booking{}).
					Where("id = ? AND status <> ?", id, model.BookingCancelled).
					Update("status", model.BookingCancelled)
				if res.Error != nil {
					return fmt.Errorf("failed to cancel booking %s: %w", id, res.Error)
				}
				if res.RowsAffected == 0 {
					return ErrBookingClosed
				}
				if err := tx.Model(&model.AvailableSlot{}).
					Where("id = ?", booking.SlotID).
					Update("booked", false).Error; err != nil {
					return fmt.Errorf("failed to release slot %s: %w", booking.SlotID, err)
				}
			default:
				return invalidf("invalid status %q", *patch.Status)
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&model.Booking{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update booking %s: %w", id, err)
			}
		}
		if err := tx.Preload("Slot").First(&updated, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to reload booking %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBooking removes the record entirely. Only an active booking frees its
// slot on the way out; a cancelled one already did when it was cancelled.
func (s *gormStore) DeleteBooking(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking model.Booking
		if err := tx.First(&booking, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch booking %s: %w", id, err)
		}
		if booking.Active() {
			res := tx.Model(&model.Booking{}).
				Where("id = ? AND status <> ?", id, model.BookingCancelled).
				Update("status", model.BookingCancelled)
			if res.Error != nil {
				return fmt.Errorf("failed to close booking %s: %w", id, res.Error)
			}
			if res.RowsAffected > 0 {
				if err := tx.Model(&model.AvailableSlot{}).
					Where("id = ?", booking.SlotID).
					Update("booked", false).Error; err != nil {
					return fmt.Errorf("failed to release slot %s: %w", booking.SlotID, err)
				}
			}
		}
		if err := tx.Delete(&model.Booking{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete booking %s: %w", id, err)
		}
		return nil
	})
}

// ClaimDueReminders marks and returns confirmed bookings whose slot starts
// within window of now and that have not been reminded yet. Each row is
// claimed with a conditional update, so two overlapping sweeps cannot both
// return the same booking even when they run in separate processes.
func (s *gormStore) ClaimDueReminders(ctx context.Context, now time.Time, window time.Duration) ([]model.Booking, error) {
	var due []model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []model.Booking
		if err := tx.Preload("Slot").
			Where("status = ? AND reminder_sent = ?", model.BookingConfirmed, false).
			Find(&candidates).Error; err != nil {
			return fmt.Errorf("failed to fetch reminder candidates: %w", err)
		}

		// Slot starts are strings, so the window check happens here rather
		// than in SQL.
		for _, b := range candidates {
			start, err := schedule.StartAt(b.Slot.Date, b.Slot.Time, s.loc)
			if err != nil {
				continue
			}
			if !start.After(now) || start.Sub(now) > window {
				continue
			}
			claim := tx.Model(&model.Booking{}).
				Where("id = ? AND reminder_sent = ?", b.ID, false).
				Update("reminder_sent", true)
			if claim.Error != nil {
				return fmt.Errorf("failed to mark reminder sent for booking %s: %w", b.ID, claim.Error)
			}
			if claim.RowsAffected == 0 {
				continue
			}
			due = append(due, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}
