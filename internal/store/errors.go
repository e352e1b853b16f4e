package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store. The API layer translates these into
// HTTP statuses; anything else is treated as an internal failure.
var (
	ErrNotFound               = errors.New("record not found")
	ErrEmailTaken             = errors.New("email is already registered")
	ErrSlotExists             = errors.New("a slot already exists for this date and time")
	ErrSlotBooked             = errors.New("slot is already booked")
	ErrSlotInPast             = errors.New("slot is in the past")
	ErrBookingClosed          = errors.New("booking is cancelled")
	ErrAlreadyEnrolled        = errors.New("user is already enrolled in this class")
	ErrNotEnrolled            = errors.New("user is not enrolled in this class")
	ErrClassFull              = errors.New("maxSpots cannot be reduced below current enrollment")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// ValidationError marks input the caller can fix. The API layer maps it to a
// 400 response with the message verbatim.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
