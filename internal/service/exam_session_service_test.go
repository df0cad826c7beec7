package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/session"
)

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func nextEvent(t *testing.T, events <-chan SessionEvent) SessionEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
	return SessionEvent{}
}

type sessionFixture struct {
	svc   *ExamSessionService
	store *repository.MemoryStore
	clk   *clock.Fake
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	for _, q := range repository.SampleQuestions() {
		if err := store.SaveQuestion(ctx, q); err != nil {
			t.Fatalf("SaveQuestion: %v", err)
		}
	}
	examCfg := model.DefaultExamConfig()
	examCfg.DurationMinutes = 10
	if err := store.SaveExamConfig(ctx, examCfg); err != nil {
		t.Fatalf("SaveExamConfig: %v", err)
	}
	if err := store.SaveStudent(ctx, model.Student{ID: "s1", Name: "Budi", Code: "ABC123", Status: model.StudentStatusNotStarted}); err != nil {
		t.Fatalf("SaveStudent: %v", err)
	}

	cfg := &config.Config{
		TickInterval:     time.Second,
		AutosaveInterval: time.Minute,
		LowTimeWarning:   time.Minute,
	}
	clk := clock.NewFake(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	svc := NewExamSessionService(cfg, store, clk, zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return &sessionFixture{svc: svc, store: store, clk: clk}
}

func TestExamSessionService_StartIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, "s1", "IPA")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Total != 2 || len(first.Questions) != 2 {
		t.Fatalf("IPA session has %d questions, want 2", first.Total)
	}
	if first.RemainingSeconds != 600 {
		t.Fatalf("remaining = %d, want 600", first.RemainingSeconds)
	}
	waitUntil(t, "tickers", func() bool { return f.clk.ActiveTickers() == 2 })

	f.clk.Set(f.clk.Now().Add(3 * time.Minute))
	again, err := f.svc.Start(ctx, "s1", "IPA")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if again.RemainingSeconds != 420 {
		t.Fatalf("remaining after re-entry = %d, want 420", again.RemainingSeconds)
	}
	if f.svc.LiveCount() != 1 {
		t.Fatalf("live sessions = %d, want 1", f.svc.LiveCount())
	}
}

func TestExamSessionService_ConfirmedFinish(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "s1", "Matematika"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	live, err := f.svc.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	state, err := f.svc.Answer(ctx, "s1", model.Answer{QuestionID: "q6", SelectedOptions: []int{2}})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if state.AnsweredCount != 1 {
		t.Fatalf("answered = %d, want 1", state.AnsweredCount)
	}
	if _, err := f.svc.Answer(ctx, "s1", model.Answer{QuestionID: "q1", SelectedOptions: []int{1}}); !errors.Is(err, session.ErrUnknownQuestion) {
		t.Fatalf("out-of-subject answer err = %v, want ErrUnknownQuestion", err)
	}

	if _, err := f.svc.ConfirmFinish(ctx, "s1"); !errors.Is(err, session.ErrNoPendingFinish) {
		t.Fatalf("confirm without request err = %v", err)
	}
	dialog, err := f.svc.RequestFinish("s1")
	if err != nil {
		t.Fatalf("RequestFinish: %v", err)
	}
	if dialog.Severity != session.SeverityInfo {
		t.Fatalf("dialog severity = %q, want info", dialog.Severity)
	}

	done, err := f.svc.ConfirmFinish(ctx, "s1")
	if err != nil {
		t.Fatalf("ConfirmFinish: %v", err)
	}
	if done.Status != model.StudentStatusCompleted || done.Score != 10 {
		t.Fatalf("completed record = %+v", done)
	}

	ev := nextEvent(t, live.Events)
	if ev.Type != SessionEventFinished || ev.Student == nil || ev.Student.Score != 10 {
		t.Fatalf("unexpected event %+v", ev)
	}

	waitUntil(t, "release", func() bool { return f.svc.LiveCount() == 0 })
	if _, err := f.svc.State("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("state after finish err = %v", err)
	}
	if _, err := f.svc.Start(ctx, "s1", "Matematika"); !errors.Is(err, session.ErrAlreadyCompleted) {
		t.Fatalf("restart after finish err = %v", err)
	}
}

func TestExamSessionService_TimeoutAndWarning(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "s1", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	live, err := f.svc.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	waitUntil(t, "tickers", func() bool { return f.clk.ActiveTickers() == 2 })

	f.clk.Advance(9*time.Minute + 30*time.Second)
	ev := nextEvent(t, live.Events)
	if ev.Type != SessionEventLowTime || ev.Dialog == nil {
		t.Fatalf("unexpected event %+v", ev)
	}

	f.clk.Advance(time.Minute)
	ev = nextEvent(t, live.Events)
	if ev.Type != SessionEventFinished {
		t.Fatalf("unexpected event %+v", ev)
	}

	saved, err := repository.FindStudent(ctx, f.store, "s1")
	if err != nil {
		t.Fatalf("FindStudent: %v", err)
	}
	if saved.Status != model.StudentStatusCompleted {
		t.Fatalf("status = %q, want completed", saved.Status)
	}
	waitUntil(t, "tickers stopped", func() bool { return f.clk.ActiveTickers() == 0 })
}

func TestExamSessionService_LeaveKeepsStartTime(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "s1", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitUntil(t, "tickers", func() bool { return f.clk.ActiveTickers() == 2 })

	f.svc.Leave("s1")
	if _, err := f.svc.Get("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("get after leave err = %v", err)
	}
	waitUntil(t, "tickers stopped", func() bool { return f.clk.ActiveTickers() == 0 })

	f.clk.Set(f.clk.Now().Add(4 * time.Minute))
	state, err := f.svc.Start(ctx, "s1", "")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state.RemainingSeconds != 360 {
		t.Fatalf("remaining after resume = %d, want 360", state.RemainingSeconds)
	}
}

func TestExamSessionService_UnknownStudent(t *testing.T) {
	f := newSessionFixture(t)
	if _, err := f.svc.Start(context.Background(), "nobody", ""); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("err = %v, want ErrStudentNotFound", err)
	}
	if err := f.svc.DismissWarning("nobody"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("dismiss err = %v, want ErrSessionNotFound", err)
	}
}

func TestExamSessionService_LeaveStopsWritesBeforeReset(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	students := NewStudentService(f.store, zerolog.Nop())

	if _, err := f.svc.Start(ctx, "s1", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	live, err := f.svc.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := f.svc.Answer(ctx, "s1", model.Answer{QuestionID: "q1", SelectedOptions: []int{1}}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	f.svc.Leave("s1")
	if f.clk.ActiveTickers() != 0 {
		t.Fatalf("runner still has %d tickers after Leave returned", f.clk.ActiveTickers())
	}
	if _, err := students.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	// A request that fetched the session before Leave must not revive it.
	if err := live.Controller.Answer(ctx, model.Answer{QuestionID: "q1", SelectedOptions: []int{0}}); !errors.Is(err, session.ErrNotActive) {
		t.Fatalf("answer after leave err = %v, want ErrNotActive", err)
	}
	if err := live.Controller.Autosave(ctx); err != nil {
		t.Fatalf("autosave after leave: %v", err)
	}
	f.clk.Advance(time.Hour)
	live.Controller.Tick(ctx)

	saved, err := repository.FindStudent(ctx, f.store, "s1")
	if err != nil {
		t.Fatalf("FindStudent: %v", err)
	}
	if saved.Status != model.StudentStatusNotStarted || saved.StartTime != nil || len(saved.Answers) != 0 {
		t.Fatalf("reset record overwritten: %+v", saved)
	}
	if live.Controller.State() != session.StateClosed {
		t.Fatalf("state = %s, want closed", live.Controller.State())
	}
}

func TestExamSessionService_LeaveThenDeleteStaysDeleted(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "s1", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	live, err := f.svc.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	f.svc.Leave("s1")
	if err := f.store.DeleteStudent(ctx, "s1"); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	_ = live.Controller.Autosave(ctx)
	_ = live.Controller.Goto(ctx, 1)

	if _, err := repository.FindStudent(ctx, f.store, "s1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deleted student came back, err = %v", err)
	}
	if f.svc.LiveCount() != 0 {
		t.Fatalf("live count = %d after leave", f.svc.LiveCount())
	}
}

func TestExamSessionService_ReachedOrderingSurvivesResume(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	state, err := f.svc.Start(ctx, "s1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	ordering := -1
	for i, q := range state.Questions {
		if q.Type == model.QuestionTypeOrdering {
			ordering = i
		}
	}
	if ordering < 0 {
		t.Fatal("sample bank has no ordering question")
	}
	if _, err := f.svc.Navigate(ctx, "s1", ordering); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	f.svc.Leave("s1")
	resumed, err := f.svc.Start(ctx, "s1", "")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.Answered[ordering] {
		t.Fatalf("ordering question %d lost its reached mark on resume", ordering+1)
	}
}

func TestExamSessionService_MatchingUsesDisplayPositions(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	state, err := f.svc.Start(ctx, "s1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	var q model.Question
	for _, bq := range repository.SampleQuestions() {
		if bq.Type == model.QuestionTypeMatching {
			q = bq
		}
	}
	var rights []string
	for _, fs := range state.Questions {
		if fs.ID == q.ID {
			rights = fs.Rights
		}
	}
	if len(rights) != len(q.Matches) {
		t.Fatalf("matching question %q missing from state", q.ID)
	}

	display := make([]model.PairAnswer, 0, len(q.Matches))
	for left, m := range q.Matches {
		for pos, r := range rights {
			if r == m.Right {
				display = append(display, model.PairAnswer{LeftIndex: left, RightIndex: pos})
			}
		}
	}
	got, err := f.svc.Answer(ctx, "s1", model.Answer{QuestionID: q.ID, Pairs: display})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	saved, err := repository.FindStudent(ctx, f.store, "s1")
	if err != nil {
		t.Fatalf("FindStudent: %v", err)
	}
	stored, _ := saved.AnswerFor(q.ID)
	for _, p := range stored.Pairs {
		if p.LeftIndex != p.RightIndex {
			t.Fatalf("stored pairs %v are not the correct pairing", stored.Pairs)
		}
	}
	echoed, _ := got.Student.AnswerFor(q.ID)
	if len(echoed.Pairs) != len(display) {
		t.Fatalf("echoed pairs %v", echoed.Pairs)
	}
	for i, p := range echoed.Pairs {
		if p != display[i] {
			t.Fatalf("echoed pairs %v, want display positions %v", echoed.Pairs, display)
		}
	}
}
