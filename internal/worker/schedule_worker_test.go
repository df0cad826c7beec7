package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/service"
)

func at(h, m int) time.Time {
	return time.Date(2026, 5, 4, h, m, 0, 0, time.UTC)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduleWorker_FollowsActiveWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(at(8, 55))
	settings := service.NewSettingService(repository.NewMemoryStore(), clk, zerolog.Nop())
	if _, err := settings.SaveExamConfig(ctx, model.UpdateExamConfigRequest{
		Title:           "Try Out",
		DurationMinutes: 60,
		SubjectSchedules: []model.SubjectScheduleRequest{
			{Subject: "Matematika", ScheduledStart: at(9, 0), ScheduledEnd: at(10, 0)},
		},
	}); err != nil {
		t.Fatalf("SaveExamConfig: %v", err)
	}

	w := NewScheduleWorker(settings, clk, time.Minute, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return clk.ActiveTickers() == 1 })

	st, err := w.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if st.ActiveSubject != "" || st.Decision.Allowed {
		t.Fatalf("before window: %+v", st)
	}

	clk.Advance(10 * time.Minute)
	waitFor(t, func() bool {
		st, _ := w.Current(ctx)
		return st != nil && st.ActiveSubject == "Matematika"
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	if clk.ActiveTickers() != 0 {
		t.Fatalf("ticker left running")
	}
}

func TestScheduleWorker_CurrentBeforeFirstPoll(t *testing.T) {
	clk := clock.NewFake(at(9, 0))
	settings := service.NewSettingService(repository.NewMemoryStore(), clk, zerolog.Nop())
	w := NewScheduleWorker(settings, clk, 0, zerolog.Nop())

	st, err := w.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !st.Now.Equal(at(9, 0)) {
		t.Fatalf("now = %v", st.Now)
	}
}
