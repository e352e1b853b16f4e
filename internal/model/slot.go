package model

import "time"

// Durations (minutes) an AvailableSlot may have.
const (
	DurationShort = 30
	DurationLong  = 60
)

// AvailableSlot represents a one-on-one training window the owner has opened.
// Date is "YYYY-MM-DD" and Time is 24-hour "HH:MM"; the pair plus duration is
// unique so the same window cannot be published twice.
type AvailableSlot struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_slots_date_time_duration,priority:1"`
	Time      string    `gorm:"size:5;not null;uniqueIndex:idx_slots_date_time_duration,priority:2"`
	Duration  int       `gorm:"not null;uniqueIndex:idx_slots_date_time_duration,priority:3"`
	Booked    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
