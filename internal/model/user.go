package model

import "time"

// Roles assignable to a User.
const (
	RoleOwner    = "owner"
	RoleCustomer = "customer"
)

// User represents an account that can sign in and book training.
type User struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;size:256;not null"`
	Name         string    `gorm:"size:256;not null"`
	PasswordHash string    `gorm:"size:128;not null"`
	Role         string    `gorm:"size:16;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
