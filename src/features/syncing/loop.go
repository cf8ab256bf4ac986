package syncing

import (
	"context"
	"log/slog"
	"time"
)

// Loop runs cycles until ctx is cancelled. A successful cycle is followed by
// the sync interval, a failed one by the shorter retry delay. Trigger starts
// the next cycle early. A running cycle is never interrupted by a trigger.
func (s *Service) Loop(ctx context.Context) error {
	slog.Info("Starting sync loop")
	for {
		if ctx.Err() != nil {
			slog.Info("Sync loop stopped")
			return nil
		}

		_, err := s.RunCycle(ctx)
		syncCfg := s.configManager.Get().Sync
		wait := syncCfg.Interval
		if err != nil {
			wait = syncCfg.RetryDelay
		}
		if ctx.Err() != nil {
			slog.Info("Sync loop stopped")
			return nil
		}

		s.setNextRun(s.now().Add(wait))
		slog.Info("Next sync cycle scheduled", "in", wait.String())
		select {
		case <-ctx.Done():
		case <-s.trigger:
			slog.Info("Sync cycle triggered")
		case <-s.after(wait):
		}
		s.setNextRun(time.Time{})
	}
}

// Trigger asks the loop to start the next cycle now. It reports false when a
// trigger is already pending.
func (s *Service) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Service) setNextRun(t time.Time) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.nextRun = t
}
