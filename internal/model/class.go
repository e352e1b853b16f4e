package model

import "time"

// Experience levels for a GroupClass.
const (
	LevelPuppy        = "puppy"
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Capacity bounds for a GroupClass.
const (
	MinSpots = 1
	MaxSpots = 50
)

// GroupClass represents a recurring group lesson with a fixed number of spots.
// Version is bumped on every roster or capacity change; concurrent writers
// that lose the version race retry against fresh state.
type GroupClass struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"size:256;not null"`
	Description string    `gorm:"size:2000"`
	Schedule    string    `gorm:"size:256"`
	MaxSpots    int       `gorm:"not null"`
	Price       float64   `gorm:"not null"`
	Level       string    `gorm:"size:16;not null"`
	Version     int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	// Associations
	Enrollments []ClassEnrollment `gorm:"foreignKey:ClassID;constraint:OnDelete:CASCADE"`
}

// ClassEnrollment is one user's place on a class roster, enrolled or
// waitlisted. Position increases monotonically per class, so ordering by it
// yields join order within each group.
type ClassEnrollment struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ClassID    string    `gorm:"size:36;not null;uniqueIndex:idx_enrollments_class_user,priority:1"`
	UserID     string    `gorm:"size:36;not null;uniqueIndex:idx_enrollments_class_user,priority:2"`
	Waitlisted bool      `gorm:"not null;default:false"`
	Position   int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`

	// Associations
	User User `gorm:"foreignKey:UserID"`
}
