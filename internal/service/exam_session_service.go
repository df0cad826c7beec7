package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/metrics"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/session"
)

// SessionEventType names an event pushed to a connected exam client.
type SessionEventType string

const (
	SessionEventLowTime  SessionEventType = "low_time"
	SessionEventFinished SessionEventType = "finished"
)

// SessionEvent is an asynchronous notification from a running session.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	Dialog  *session.Dialog  `json:"dialog,omitempty"`
	Student *model.Student   `json:"student,omitempty"`
}

// eventBuffer bounds undelivered events per session. A session emits at most
// one warning and one finish, so sends never block in practice.
const eventBuffer = 8

// channelPresenter forwards controller notifications onto a buffered channel.
type channelPresenter struct {
	events chan SessionEvent
	log    zerolog.Logger
}

func (p *channelPresenter) LowTimeWarning(d session.Dialog) {
	p.push(SessionEvent{Type: SessionEventLowTime, Dialog: &d})
}

func (p *channelPresenter) Finished(s model.Student) {
	p.push(SessionEvent{Type: SessionEventFinished, Student: &s})
}

func (p *channelPresenter) push(ev SessionEvent) {
	select {
	case p.events <- ev:
	default:
		p.log.Warn().Str("event", string(ev.Type)).Msg("Session event dropped, no listener")
	}
}

// LiveSession is a started controller together with its event stream.
type LiveSession struct {
	Controller *session.Controller
	Events     <-chan SessionEvent
	ctx        context.Context
	cancel     context.CancelFunc
	// stopped is closed when the runner goroutine has returned.
	stopped chan struct{}
}

// Done is closed once the session stops running, whether it was submitted,
// left or shut down.
func (l *LiveSession) Done() <-chan struct{} {
	return l.ctx.Done()
}

func (l *LiveSession) stale() bool {
	if l.ctx.Err() != nil {
		return true
	}
	st := l.Controller.State()
	return st == session.StateCompleted || st == session.StateClosed
}

// SessionState is what the exam page renders.
type SessionState struct {
	session.View
	Questions []model.QuestionForStudent `json:"questions"`
}

// ExamSessionService keeps one running controller per student and drives
// each with its own countdown and autosave loop.
type ExamSessionService struct {
	cfg   *config.Config
	store repository.Store
	clk   clock.Clock
	log   zerolog.Logger

	root     context.Context
	stopAll  context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	sessions map[string]*LiveSession
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(cfg *config.Config, store repository.Store, clk clock.Clock, log zerolog.Logger) *ExamSessionService {
	root, cancel := context.WithCancel(context.Background())
	return &ExamSessionService{
		cfg:      cfg,
		store:    store,
		clk:      clk,
		log:      log.With().Str("component", "exam_session_service").Logger(),
		root:     root,
		stopAll:  cancel,
		sessions: make(map[string]*LiveSession),
	}
}

// Start enters the exam for studentID, scoped to activeSubject. If a live
// session already exists it is returned unchanged, so reloading the page
// never restarts the timer.
func (s *ExamSessionService) Start(ctx context.Context, studentID, activeSubject string) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if live, ok := s.sessions[studentID]; ok {
		if !live.stale() {
			return s.stateOf(studentID, live), nil
		}
		// Left or completed but not yet released by its runner.
		delete(s.sessions, studentID)
		metrics.LiveSessions.Dec()
	}

	student, err := repository.FindStudent(ctx, s.store, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}

	examCfg, err := s.store.GetExamConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exam config: %w", err)
	}

	presenter := &channelPresenter{
		events: make(chan SessionEvent, eventBuffer),
		log:    s.log.With().Str("student_id", studentID).Logger(),
	}
	ctrl := session.New(student, s.store, s.clk, presenter, s.log, session.Options{
		Duration:         examCfg.Duration(),
		AutosaveInterval: s.cfg.AutosaveInterval,
		LowTimeThreshold: s.cfg.LowTimeWarning,
		TickInterval:     s.cfg.TickInterval,
		ActiveSubject:    activeSubject,
	})
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.root)
	live := &LiveSession{
		Controller: ctrl,
		Events:     presenter.events,
		ctx:        runCtx,
		cancel:     cancel,
		stopped:    make(chan struct{}),
	}
	s.sessions[studentID] = live
	metrics.LiveSessions.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(live.stopped)
		_ = ctrl.Run(runCtx)
		s.release(studentID, live)
	}()

	return s.stateOf(studentID, live), nil
}

// release drops live from the registry once its runner has exited.
func (s *ExamSessionService) release(studentID string, live *LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[studentID]; ok && cur == live {
		delete(s.sessions, studentID)
		metrics.LiveSessions.Dec()
	}
	live.cancel()
}

// Get returns the live session for studentID.
func (s *ExamSessionService) Get(studentID string) (*LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[studentID]
	if !ok || live.stale() {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

// State returns the current view and the student-safe question list.
func (s *ExamSessionService) State(studentID string) (*SessionState, error) {
	live, err := s.Get(studentID)
	if err != nil {
		return nil, err
	}
	return s.stateOf(studentID, live), nil
}

// stateOf builds the student-facing state. Matching answers are shown in
// display positions, like the questions they belong to.
func (s *ExamSessionService) stateOf(studentID string, live *LiveSession) *SessionState {
	view := live.Controller.Snapshot()
	questions := live.Controller.Questions()
	for i, a := range view.Student.Answers {
		if q, ok := findQuestion(questions, a.QuestionID); ok && q.Type == model.QuestionTypeMatching {
			view.Student.Answers[i].Pairs = PairsToDisplay(studentID, q, a.Pairs)
		}
	}
	return &SessionState{
		View:      view,
		Questions: ForStudent(studentID, questions),
	}
}

func findQuestion(questions []model.Question, id string) (model.Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

// Answer records one answer with write-through persistence.
func (s *ExamSessionService) Answer(ctx context.Context, studentID string, ans model.Answer) (*SessionState, error) {
	live, err := s.Get(studentID)
	if err != nil {
		return nil, err
	}
	if q, ok := findQuestion(live.Controller.Questions(), ans.QuestionID); ok && q.Type == model.QuestionTypeMatching {
		ans.Pairs = PairsFromDisplay(studentID, q, ans.Pairs)
	}
	if err := live.Controller.Answer(ctx, ans); err != nil {
		return nil, err
	}
	return s.stateOf(studentID, live), nil
}

// Navigate moves to question index i (0-based).
func (s *ExamSessionService) Navigate(ctx context.Context, studentID string, i int) (*SessionState, error) {
	live, err := s.Get(studentID)
	if err != nil {
		return nil, err
	}
	if err := live.Controller.Goto(ctx, i); err != nil {
		return nil, err
	}
	return s.stateOf(studentID, live), nil
}

// RequestFinish opens the finish confirmation dialog.
func (s *ExamSessionService) RequestFinish(studentID string) (session.Dialog, error) {
	live, err := s.Get(studentID)
	if err != nil {
		return session.Dialog{}, err
	}
	return live.Controller.RequestFinish()
}

// CancelFinish closes the finish confirmation dialog.
func (s *ExamSessionService) CancelFinish(studentID string) error {
	live, err := s.Get(studentID)
	if err != nil {
		return err
	}
	live.Controller.CancelFinish()
	return nil
}

// ConfirmFinish submits the attempt and returns the completed record.
func (s *ExamSessionService) ConfirmFinish(ctx context.Context, studentID string) (model.Student, error) {
	live, err := s.Get(studentID)
	if err != nil {
		return model.Student{}, err
	}
	return live.Controller.ConfirmFinish(ctx)
}

// DismissWarning hides the low-time warning.
func (s *ExamSessionService) DismissWarning(studentID string) error {
	live, err := s.Get(studentID)
	if err != nil {
		return err
	}
	live.Controller.DismissWarning()
	return nil
}

// Leave tears the session down without submitting. Answers already saved
// stay; the timer keeps counting from the stored startTime on return.
// When Leave returns the session no longer writes to the store, so callers
// may reset or delete the student record.
func (s *ExamSessionService) Leave(studentID string) {
	s.mu.Lock()
	live, ok := s.sessions[studentID]
	if ok {
		delete(s.sessions, studentID)
		metrics.LiveSessions.Dec()
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	live.Controller.Close()
	live.cancel()
	<-live.stopped
	s.log.Debug().Str("student_id", studentID).Msg("Session left")
}

// Snapshots returns the view of every running session, ordered by student name.
func (s *ExamSessionService) Snapshots() []session.View {
	s.mu.Lock()
	lives := make([]*LiveSession, 0, len(s.sessions))
	for _, live := range s.sessions {
		if !live.stale() {
			lives = append(lives, live)
		}
	}
	s.mu.Unlock()

	views := make([]session.View, 0, len(lives))
	for _, live := range lives {
		views = append(views, live.Controller.Snapshot())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Student.Name < views[j].Student.Name
	})
	return views
}

// LiveCount returns the number of running sessions.
func (s *ExamSessionService) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops every runner and waits for them to exit.
func (s *ExamSessionService) Shutdown() {
	s.stopAll()
	s.wg.Wait()
	s.log.Info().Msg("All exam sessions stopped")
}
