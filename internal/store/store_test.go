package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nsaronson/next-step-paws-sub000/internal/model"
	"github.com/nsaronson/next-step-paws-sub000/internal/schedule"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func slotColumns() []string {
	return []string{"id", "date", "time", "duration", "booked", "created_at", "updated_at"}
}

// TestGormStore_CreateBooking pins the wire shape of the booking transaction:
// the slot claim must be a conditional UPDATE whose affected-row count decides
// the race, and the booking INSERT must only happen after a successful claim.
func TestGormStore_CreateBooking(t *testing.T) {
	now := time.Now()
	future := now.Add(48 * time.Hour).Format(schedule.DateLayout)
	past := now.Add(-48 * time.Hour).Format(schedule.DateLayout)

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedErr      error
	}{
		{
			name: "Books a free upcoming slot",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", future, "10:00", 60, false, now, now))

				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "available_slots" SET`)).
					WithArgs(true, Any{}, "slot-1", false).
					WillReturnResult(sqlmock.NewResult(0, 1))

				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "bookings"`)).
					WillReturnRows(sqlmock.NewRows([]string{"reminder_sent"}).AddRow(false))

				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "slot_id", "user_id", "dog_name", "status"}).
						AddRow("b-1", "slot-1", "user-1", "Rex", "confirmed"))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", future, "10:00", 60, true, now, now))
				mock.ExpectCommit()
			},
			expectedErr: nil,
		},
		{
			name: "Rejects a slot that is already booked",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", future, "10:00", 60, true, now, now))
				mock.ExpectRollback()
			},
			expectedErr: ErrSlotBooked,
		},
		{
			name: "Loses the claim race to a concurrent booking",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", future, "10:00", 60, false, now, now))
				// Someone else flipped booked between the read and the claim.
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "available_slots" SET`)).
					WithArgs(true, Any{}, "slot-1", false).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			expectedErr: ErrSlotBooked,
		},
		{
			name: "Rejects an unknown slot",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()))
				mock.ExpectRollback()
			},
			expectedErr: ErrNotFound,
		},
		{
			name: "Rejects a slot in the past",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", past, "10:00", 60, false, now, now))
				mock.ExpectRollback()
			},
			expectedErr: ErrSlotInPast,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			store := NewGormStore(gormDB, time.UTC)

			tc.mockExpectations(mock)

			booking := model.Booking{SlotID: "slot-1", UserID: "user-1", DogName: "Rex"}
			err := store.CreateBooking(context.Background(), &booking, now)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// TestGormStore_ClaimDueReminders pins the claim shape: each due booking is
// marked with a conditional UPDATE whose affected-row count decides whether
// this sweep owns the reminder, so a row another sweep already marked is
// dropped rather than returned.
func TestGormStore_ClaimDueReminders(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(2 * time.Hour)

	bookingColumns := []string{"id", "slot_id", "user_id", "dog_name", "status", "reminder_sent"}

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedIDs      []string
	}{
		{
			name: "Claims and returns a due booking",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings"`)).
					WillReturnRows(sqlmock.NewRows(bookingColumns).
						AddRow("b-1", "slot-1", "user-1", "Rex", "confirmed", false))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", start.Format(schedule.DateLayout), start.Format(schedule.TimeLayout), 60, true, now, now))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bookings" SET`)).
					WithArgs(true, Any{}, "b-1", false).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			expectedIDs: []string{"b-1"},
		},
		{
			name: "Drops a booking another sweep claimed first",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings"`)).
					WillReturnRows(sqlmock.NewRows(bookingColumns).
						AddRow("b-1", "slot-1", "user-1", "Rex", "confirmed", false))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "available_slots"`)).
					WillReturnRows(sqlmock.NewRows(slotColumns()).
						AddRow("slot-1", start.Format(schedule.DateLayout), start.Format(schedule.TimeLayout), 60, true, now, now))
				// Another sweep marked the row between the read and the claim.
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bookings" SET`)).
					WithArgs(true, Any{}, "b-1", false).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
			expectedIDs: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			store := NewGormStore(gormDB, time.UTC)

			tc.mockExpectations(mock)

			due, err := store.ClaimDueReminders(context.Background(), now, 24*time.Hour)
			require.NoError(t, err)

			var ids []string
			for _, b := range due {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
