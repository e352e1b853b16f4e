package store

// EnrollmentStatus describes which roster group an enrollment landed in.
type EnrollmentStatus string

const (
	StatusEnrolled   EnrollmentStatus = "enrolled"
	StatusWaitlisted EnrollmentStatus = "waitlisted"
)

// SlotFilter narrows ListSlots. IncludePast also returns slots that have
// already started; owner listings set it, customer listings do not.
type SlotFilter struct {
	Date          string
	OnlyAvailable bool
	IncludePast   bool
}

// BookingFilter narrows ListBookings. An empty UserID returns every booking.
type BookingFilter struct {
	UserID string
}

// ClassFilter narrows ListClasses.
type ClassFilter struct {
	Level string
}

// BookingPatch carries the updatable booking fields; nil leaves a field as is.
type BookingPatch struct {
	DogName *string
	Notes   *string
	Status  *string
}

// ClassPatch carries the updatable class fields; nil leaves a field as is.
type ClassPatch struct {
	Name        *string
	Description *string
	Schedule    *string
	MaxSpots    *int
	Price       *float64
	Level       *string
}
