package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/schedule"
)

// CreateSlot publishes a new training window. A missing duration defaults to
// the long session. The unique index on (date, time, duration) backs the
// existence pre-check, so racing duplicates still surface as ErrSlotExists.
func (s *gormStore) CreateSlot(ctx context.Context, slot *model.AvailableSlot, now time.Time) error {
	if slot.Duration == 0 {
		slot.Duration = model.DurationLong
	}
	if slot.Duration != model.DurationShort && slot.Duration != model.DurationLong {
		return invalidf("duration must be %d or %d minutes", model.DurationShort, model.DurationLong)
	}
	if err := schedule.ValidateDate(slot.Date); err != nil {
		return invalidf("%v", err)
	}
	if err := schedule.ValidateTime(slot.Time); err != nil {
		return invalidf("%v", err)
	}
	future, err := schedule.InFuture(slot.Date, slot.Time, s.loc, now)
	if err != nil {
		return invalidf("%v", err)
	}
	if !future {
		return ErrSlotInPast
	}

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.Booked = false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.AvailableSlot{}).
			Where("date = ? AND time = ? AND duration = ?", slot.Date, slot.Time, slot.Duration).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check for existing slot: %w", err)
		}
		if count > 0 {
			return ErrSlotExists
		}
		if err := tx.Create(slot).Error; err != nil {
			return fmt.Errorf("failed to create slot: %w", err)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlotExists
	}
	return err
}

// ListSlots returns slots ordered by date then time. Past slots are filtered
// out unless the filter asks for them.
func (s *gormStore) ListSlots(ctx context.Context, filter SlotFilter, now time.Time) ([]model.AvailableSlot, error) {
	q := s.db.WithContext(ctx).Model(&model.AvailableSlot{})
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.OnlyAvailable {
		q = q.Where("booked = ?", false)
	}

	var slots []model.AvailableSlot
	if err := q.Order("date ASC, time ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	if filter.IncludePast {
		return slots, nil
	}

	upcoming := make([]model.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		future, err := schedule.InFuture(slot.Date, slot.Time, s.loc, now)
		if err != nil {
			continue
		}
		if future {
			upcoming = append(upcoming, slot)
		}
	}
	return upcoming, nil
}

// DeleteSlot removes an unbooked slot. Booked slots stay until their booking
// is cancelled first.
func (s *gormStore) DeleteSlot(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot model.AvailableSlot
		if err := tx.First(&slot, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch slot %s: %w", id, err)
		}
		if slot.Booked {
			return ErrSlotBooked
		}
		if err := tx.Delete(&model.AvailableSlot{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete slot %s: %w", id, err)
		}
		return nil
	})
}
