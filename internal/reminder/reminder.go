package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nsaronson/next-step-paws-sub000/config"
	"github.com/nsaronson/next-step-paws-sub000/internal/notification"
	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

// Service periodically sweeps for confirmed bookings that start soon and
// pushes a reminder to each customer.
type Service struct {
	cfg    *config.Config
	store  store.Store
	pool   *notification.WorkerPool
	logger zerolog.Logger
}

// NewService creates a reminder sweep service that dispatches through pool.
func NewService(cfg *config.Config, st store.Store, pool *notification.WorkerPool, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, store: st, pool: pool, logger: logger}
}

// Run starts the sweep loop and returns when ctx is cancelled. Without a
// pool there is no way to deliver reminders, so the loop never starts and
// bookings stay unclaimed.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Reminder.Enabled {
		s.logger.Info().Msg("reminder sweep is disabled, not starting")
		return
	}
	if s.pool == nil {
		s.logger.Warn().Msg("reminder sweep is enabled but push is not configured, not starting")
		return
	}
	s.logger.Info().Dur("interval", s.cfg.Reminder.Interval).Msg("starting reminder sweep")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Reminder.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder sweep shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Reminder.Interval)
		}
	}
}

// SweepOnce claims every booking due a reminder and dispatches one push per
// booking. Claiming marks the booking, so a reminder goes out at most once.
func (s *Service) SweepOnce(ctx context.Context) {
	now := time.Now()
	window := time.Duration(s.cfg.Reminder.LeadHours) * time.Hour

	due, err := s.store.ClaimDueReminders(ctx, now, window)
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	for _, b := range due {
		s.pool.Dispatch(notification.Event{
			UserID:  b.UserID,
			Message: fmt.Sprintf("Reminder: %s's training session is on %s at %s.", b.DogName, b.Slot.Date, b.Slot.Time),
		})
	}
	if len(due) > 0 {
		s.logger.Info().Int("count", len(due)).Msg("dispatched booking reminders")
	}
}
