package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
)

// rosterRetries bounds how often a roster mutation reruns after losing the
// class version race before giving up with ErrConcurrentModification.
const rosterRetries = 3

// CreateClass inserts a new group class with an empty roster.
func (s *gormStore) CreateClass(ctx context.Context, class *model.GroupClass) error {
	if class.Name == "" {
		return invalidf("name is required")
	}
	if err := validateClassFields(class.MaxSpots, class.Price, class.Level); err != nil {
		return err
	}
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.Version = 0
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(class).Error; err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	return nil
}

// GetClass returns a class with its roster ordered by join position.
func (s *gormStore) GetClass(ctx context.Context, id string) (*model.GroupClass, error) {
	var class model.GroupClass
	err := s.db.WithContext(ctx).
		Preload("Enrollments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Enrollments.User").
		First(&class, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch class %s: %w", id, err)
	}
	return &class, nil
}

// ListClasses returns classes with their rosters, oldest first.
func (s *gormStore) ListClasses(ctx context.Context, filter ClassFilter) ([]model.GroupClass, error) {
	q := s.db.WithContext(ctx).
		Preload("Enrollments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Enrollments.User")
	if filter.Level != "" {
		q = q.Where("level = ?", filter.Level)
	}
	var classes []model.GroupClass
	if err := q.Order("created_at ASC").Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, nil
}

// UpdateClass applies a field patch under the class version so capacity
// changes serialize with enrollment traffic. Shrinking below the enrolled
// count is rejected; growing promotes waitlisted members into the new spots.
// Promoted users are returned so the caller can notify them.
func (s *gormStore) UpdateClass(ctx context.Context, id string, patch ClassPatch) (*model.GroupClass, []model.User, error) {
	for attempt := 0; attempt < rosterRetries; attempt++ {
		class, promoted, err := s.tryUpdateClass(ctx, id, patch)
		if errors.Is(err, ErrConcurrentModification) {
			continue
		}
		return class, promoted, err
	}
	return nil, nil, ErrConcurrentModification
}

func (s *gormStore) tryUpdateClass(ctx context.Context, id string, patch ClassPatch) (*model.GroupClass, []model.User, error) {
	var promoted []model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class model.GroupClass
		if err := tx.First(&class, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch class %s: %w", id, err)
		}

		updates := map[string]any{}
		if patch.Name != nil {
			if *patch.Name == "" {
				return invalidf("name cannot be empty")
			}
			updates["name"] = *patch.Name
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Schedule != nil {
			updates["schedule"] = *patch.Schedule
		}
		if patch.MaxSpots != nil || patch.Price != nil || patch.Level != nil {
			maxSpots, price, level := class.MaxSpots, class.Price, class.Level
			if patch.MaxSpots != nil {
				maxSpots = *patch.MaxSpots
			}
			if patch.Price != nil {
				price = *patch.Price
			}
			if patch.Level != nil {
				level = *patch.Level
			}
			if err := validateClassFields(maxSpots, price, level); err != nil {
				return err
			}
			updates["max_spots"] = maxSpots
			updates["price"] = price
			updates["level"] = level
		}

		newMax := class.MaxSpots
		if patch.MaxSpots != nil {
			newMax = *patch.MaxSpots
			enrolled, err := countEnrolled(tx, id)
			if err != nil {
				return err
			}
			if int64(newMax) < enrolled {
				return ErrClassFull
			}
		}

		if err := bumpClassVersion(tx, id, class.Version); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.GroupClass{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update class %s: %w", id, err)
			}
		}
		if newMax > class.MaxSpots {
			users, err := promoteUpTo(tx, id, newMax)
			if err != nil {
				return err
			}
			promoted = users
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	class, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return class, promoted, nil
}

// DeleteClass removes a class and its whole roster.
func (s *gormStore) DeleteClass(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class model.GroupClass
		if err := tx.First(&class, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch class %s: %w", id, err)
		}
		if err := tx.Where("class_id = ?", id).Delete(&model.ClassEnrollment{}).Error; err != nil {
			return fmt.Errorf("failed to delete enrollments for class %s: %w", id, err)
		}
		if err := tx.Delete(&model.GroupClass{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete class %s: %w", id, err)
		}
		return nil
	})
}

// Enroll adds userID to the class roster, taking a spot when one is free and
// the tail of the waitlist otherwise. Two racers for the last spot both rerun
// against fresh state, so one lands enrolled and the other waitlisted.
func (s *gormStore) Enroll(ctx context.Context, classID, userID string) (EnrollmentStatus, error) {
	for attempt := 0; attempt < rosterRetries; attempt++ {
		status, err := s.tryEnroll(ctx, classID, userID)
		if errors.Is(err, ErrConcurrentModification) {
			continue
		}
		return status, err
	}
	return "", ErrConcurrentModification
}

func (s *gormStore) tryEnroll(ctx context.Context, classID, userID string) (EnrollmentStatus, error) {
	var status EnrollmentStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class model.GroupClass
		if err := tx.First(&class, "id = ?", classID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch class %s: %w", classID, err)
		}

		var existing int64
		if err := tx.Model(&model.ClassEnrollment{}).
			Where("class_id = ? AND user_id = ?", classID, userID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check enrollment: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		enrolled, err := countEnrolled(tx, classID)
		if err != nil {
			return err
		}
		var maxPos int64
		if err := tx.Model(&model.ClassEnrollment{}).
			Where("class_id = ?", classID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return fmt.Errorf("failed to compute roster position: %w", err)
		}

		row := model.ClassEnrollment{
			ClassID:    classID,
			UserID:     userID,
			Waitlisted: enrolled >= int64(class.MaxSpots),
			Position:   int(maxPos) + 1,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to insert enrollment: %w", err)
		}

		if err := bumpClassVersion(tx, classID, class.Version); err != nil {
			return err
		}
		if row.Waitlisted {
			status = StatusWaitlisted
		} else {
			status = StatusEnrolled
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// Withdraw removes userID from the class roster. Removing an enrolled member
// promotes the longest-waiting waitlisted member into the freed spot; the
// promoted users are returned so the caller can notify them. Leaving the
// waitlist promotes nobody.
func (s *gormStore) Withdraw(ctx context.Context, classID, userID string) ([]model.User, error) {
	for attempt := 0; attempt < rosterRetries; attempt++ {
		promoted, err := s.tryWithdraw(ctx, classID, userID)
		if errors.Is(err, ErrConcurrentModification) {
			continue
		}
		return promoted, err
	}
	return nil, ErrConcurrentModification
}

func (s *gormStore) tryWithdraw(ctx context.Context, classID, userID string) ([]model.User, error) {
	var promoted []model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class model.GroupClass
		if err := tx.First(&class, "id = ?", classID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to fetch class %s: %w", classID, err)
		}

		var membership model.ClassEnrollment
		if err := tx.First(&membership, "class_id = ? AND user_id = ?", classID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEnrolled
			}
			return fmt.Errorf("failed to fetch enrollment: %w", err)
		}
		if err := tx.Delete(&model.ClassEnrollment{}, "id = ?", membership.ID).Error; err != nil {
			return fmt.Errorf("failed to delete enrollment: %w", err)
		}

		if !membership.Waitlisted {
			users, err := promoteUpTo(tx, classID, class.MaxSpots)
			if err != nil {
				return err
			}
			promoted = users
		}
		return bumpClassVersion(tx, classID, class.Version)
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

func validateClassFields(maxSpots int, price float64, level string) error {
	if maxSpots < model.MinSpots || maxSpots > model.MaxSpots {
		return invalidf("maxSpots must be between %d and %d", model.MinSpots, model.MaxSpots)
	}
	if price < 0 {
		return invalidf("price cannot be negative")
	}
	switch level {
	case model.LevelPuppy, model.LevelBeginner, model.LevelIntermediate, model.LevelAdvanced:
		return nil
	default:
		return invalidf("level must be one of puppy, beginner, intermediate, advanced")
	}
}

func countEnrolled(tx *gorm.DB, classID string) (int64, error) {
	var enrolled int64
	if err := tx.Model(&model.ClassEnrollment{}).
		Where("class_id = ? AND waitlisted = ?", classID, false).
		Count(&enrolled).Error; err != nil {
		return 0, fmt.Errorf("failed to count enrolled members: %w", err)
	}
	return enrolled, nil
}

// bumpClassVersion is the optimistic guard shared by every roster mutation.
// Zero rows affected means another writer moved the class first.
func bumpClassVersion(tx *gorm.DB, classID string, seen int64) error {
	res := tx.Model(&model.GroupClass{}).
		Where("id = ? AND version = ?", classID, seen).
		Update("version", seen+1)
	if res.Error != nil {
		return fmt.Errorf("failed to advance class version: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// promoteUpTo moves waitlisted members into open spots in join order until
// the class is full or the waitlist is empty.
func promoteUpTo(tx *gorm.DB, classID string, maxSpots int) ([]model.User, error) {
	enrolled, err := countEnrolled(tx, classID)
	if err != nil {
		return nil, err
	}
	open := maxSpots - int(enrolled)
	if open <= 0 {
		return nil, nil
	}

	var waiting []model.ClassEnrollment
	if err := tx.Where("class_id = ? AND waitlisted = ?", classID, true).
		Order("position ASC").
		Limit(open).
		Find(&waiting).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch waitlist: %w", err)
	}
	if len(waiting) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(waiting))
	userIDs := make([]string, len(waiting))
	for i, w := range waiting {
		ids[i] = w.ID
		userIDs[i] = w.UserID
	}
	if err := tx.Model(&model.ClassEnrollment{}).
		Where("id IN ?", ids).
		Update("waitlisted", false).Error; err != nil {
		return nil, fmt.Errorf("failed to promote waitlisted members: %w", err)
	}

	var users []model.User
	if err := tx.Find(&users, "id IN ?", userIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch promoted users: %w", err)
	}

	// Keep join order for the callers that notify in sequence.
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]model.User, 0, len(waiting))
	for _, id := range userIDs {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}
