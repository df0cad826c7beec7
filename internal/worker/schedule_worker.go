package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/service"
)

// ScheduleWorker re-evaluates the schedule gate on an interval and keeps the
// latest result for the public schedule endpoint.
type ScheduleWorker struct {
	settings *service.SettingService
	clk      clock.Clock
	interval time.Duration
	log      zerolog.Logger

	mu      sync.RWMutex
	current *service.ScheduleStatus
}

// NewScheduleWorker creates a new ScheduleWorker.
func NewScheduleWorker(settings *service.SettingService, clk clock.Clock, interval time.Duration, log zerolog.Logger) *ScheduleWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ScheduleWorker{
		settings: settings,
		clk:      clk,
		interval: interval,
		log:      log.With().Str("component", "schedule_worker").Logger(),
	}
}

// Start polls until ctx is cancelled. Call in a goroutine.
func (w *ScheduleWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	w.refresh(ctx)

	ticker := w.clk.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C():
			w.refresh(ctx)
		}
	}
}

// Current returns the last evaluated schedule. Before the first poll, or if
// the last poll failed, it evaluates on demand.
func (w *ScheduleWorker) Current(ctx context.Context) (*service.ScheduleStatus, error) {
	w.mu.RLock()
	st := w.current
	w.mu.RUnlock()
	if st != nil {
		return st, nil
	}
	return w.settings.CurrentSchedule(ctx)
}

func (w *ScheduleWorker) refresh(ctx context.Context) {
	st, err := w.settings.CurrentSchedule(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Schedule poll failed")
		}
		w.mu.Lock()
		w.current = nil
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = st
	w.mu.Unlock()

	if prev == nil || prev.ActiveSubject != st.ActiveSubject {
		w.log.Info().
			Str("active_subject", st.ActiveSubject).
			Bool("login_allowed", st.Decision.Allowed).
			Msg("Schedule changed")
	}
}
