// Package session drives one student's exam attempt: countdown, autosave,
// answer capture, finish confirmation and the final submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/metrics"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
	"github.com/grahaedukasi/graha-cbt/internal/scoring"
)

// State is the controller lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateActive
	StateSubmitting
	StateCompleted
	// StateClosed is a session torn down without submission. It never
	// writes to the store again.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SubmitFailedMessage is shown to the student when the final save fails.
const SubmitFailedMessage = "Terjadi kesalahan saat menyimpan jawaban. Silakan coba lagi."

var (
	ErrAlreadyCompleted = errors.New("exam already completed")
	ErrNoQuestions      = errors.New("no questions available for this session")
	ErrNotActive        = errors.New("exam session is not active")
	ErrUnknownQuestion  = errors.New("question is not part of this session")
	ErrOutOfRange       = errors.New("question index out of range")
	ErrNoPendingFinish  = errors.New("finish was not requested")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrSubmitFailed     = errors.New(SubmitFailedMessage)
	ErrSaveFailed       = errors.New("failed to save answers")
	ErrLoadQuestions    = errors.New("failed to load questions")
)

// Store is the persistence the controller needs.
type Store interface {
	GetQuestions(ctx context.Context) ([]model.Question, error)
	SaveStudent(ctx context.Context, s model.Student) error
}

// Presenter receives the controller's outbound notifications. Calls are made
// without the controller lock held.
type Presenter interface {
	LowTimeWarning(d Dialog)
	Finished(s model.Student)
}

// Options tunes a controller. Zero values fall back to the defaults below.
type Options struct {
	Duration         time.Duration
	AutosaveInterval time.Duration
	LowTimeThreshold time.Duration
	TickInterval     time.Duration
	// ActiveSubject limits the session to one subject's questions.
	ActiveSubject string
}

const (
	DefaultDuration         = 90 * time.Minute
	DefaultAutosaveInterval = 60 * time.Second
	DefaultLowTimeThreshold = 60 * time.Second
	DefaultTickInterval     = time.Second
)

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = DefaultAutosaveInterval
	}
	if o.LowTimeThreshold <= 0 {
		o.LowTimeThreshold = DefaultLowTimeThreshold
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	return o
}

// SubmitReason records what triggered submission.
type SubmitReason string

const (
	SubmitConfirmed SubmitReason = "confirmed"
	SubmitTimeout   SubmitReason = "timeout"
)

// Controller is the state machine for one student's attempt. It is safe for
// concurrent use; every mutation and its write-through save happen under one
// lock so a later autosave never persists older state.
type Controller struct {
	mu        sync.Mutex
	store     Store
	clk       clock.Clock
	presenter Presenter
	log       zerolog.Logger
	opts      Options

	state      State
	student    model.Student
	questions  []model.Question
	current    int
	warned     bool
	warningOn  bool
	finishOpen bool
	submitting bool
	done       chan struct{}
	closed     chan struct{}
}

// New creates a controller for student. Nothing is persisted until Start.
func New(student model.Student, store Store, clk clock.Clock, presenter Presenter, log zerolog.Logger, opts Options) *Controller {
	return &Controller{
		store:     store,
		clk:       clk,
		presenter: presenter,
		log:       log.With().Str("component", "exam_session").Str("student_id", student.ID).Logger(),
		opts:      opts.withDefaults(),
		state:     StateInitializing,
		student:   student.Clone(),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

// Start loads the session question bank and moves to Active. The student's
// startTime is recorded and persisted only if it was never set, so resuming
// never extends the remaining time. Calling Start again is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInitializing {
		return nil
	}
	if c.student.Status == model.StudentStatusCompleted {
		return ErrAlreadyCompleted
	}

	bank, err := c.store.GetQuestions(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadQuestions, err)
	}
	questions := schedule.FilterBySubject(bank, c.opts.ActiveSubject)
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	if c.student.StartTime == nil || c.student.Status != model.StudentStatusInProgress {
		next := c.student.Clone()
		if next.StartTime == nil {
			now := c.clk.Now()
			next.StartTime = &now
		}
		next.Status = model.StudentStatusInProgress
		if next.Answers == nil {
			next.Answers = []model.Answer{}
		}
		if err := c.store.SaveStudent(ctx, next); err != nil {
			return fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
		c.student = next
	}

	c.questions = questions
	c.current = 0
	c.reachLocked(0)
	// A resume that is already inside the warning window stays quiet; the
	// warning only fires when the countdown crosses the threshold.
	c.warned = c.remainingLocked() <= c.opts.LowTimeThreshold
	c.state = StateActive

	c.log.Info().
		Int("questions", len(questions)).
		Str("subject", c.opts.ActiveSubject).
		Dur("remaining", c.remainingLocked()).
		Msg("Exam session started")
	return nil
}

// Remaining returns max(0, duration - elapsed since startTime).
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Controller) remainingLocked() time.Duration {
	if c.student.StartTime == nil {
		return c.opts.Duration
	}
	left := c.opts.Duration - c.clk.Now().Sub(*c.student.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// Answer records ans and persists the whole student record immediately.
// A failed save keeps the answer in memory for the next autosave.
func (c *Controller) Answer(ctx context.Context, ans model.Answer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrNotActive
	}
	idx := c.indexOf(ans.QuestionID)
	if idx < 0 {
		return ErrUnknownQuestion
	}

	ans.Pairs = dedupePairs(ans.Pairs)
	c.student.UpsertAnswer(ans)
	c.reachLocked(idx)

	if err := c.store.SaveStudent(ctx, c.student.Clone()); err != nil {
		c.log.Warn().Err(err).Str("question_id", ans.QuestionID).Msg("Write-through save failed")
		metrics.AutosaveFailures.Inc()
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// dedupePairs keeps the last pair submitted for each left index.
func dedupePairs(pairs []model.PairAnswer) []model.PairAnswer {
	if len(pairs) < 2 {
		return pairs
	}
	pos := make(map[int]int, len(pairs))
	out := make([]model.PairAnswer, 0, len(pairs))
	for _, p := range pairs {
		if i, ok := pos[p.LeftIndex]; ok {
			out[i] = p
			continue
		}
		pos[p.LeftIndex] = len(out)
		out = append(out, p)
	}
	return out
}

func (c *Controller) indexOf(questionID string) int {
	for i, q := range c.questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

// Goto moves to question i. Navigation is free in any order.
func (c *Controller) Goto(ctx context.Context, i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrNotActive
	}
	if i < 0 || i >= len(c.questions) {
		return ErrOutOfRange
	}
	c.current = i
	if c.reachLocked(i) {
		// Reaching an ordering question counts as answering it, so the
		// mark is persisted right away to survive a resume.
		if err := c.store.SaveStudent(ctx, c.student.Clone()); err != nil {
			c.log.Warn().Err(err).Str("question_id", c.questions[i].ID).Msg("Saving reached question failed")
			metrics.AutosaveFailures.Inc()
		}
	}
	return nil
}

// reachLocked records that question i was shown. Only ordering questions
// are tracked. It reports whether the record changed.
func (c *Controller) reachLocked(i int) bool {
	q := c.questions[i]
	if q.Type != model.QuestionTypeOrdering || c.student.HasReached(q.ID) {
		return false
	}
	c.student.Reached = append(c.student.Reached, q.ID)
	return true
}

// Tick advances the countdown. It raises the low-time warning once and
// submits without confirmation when time runs out.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}

	left := c.remainingLocked()
	if left <= 0 {
		c.mu.Unlock()
		if _, err := c.submit(ctx, SubmitTimeout); err != nil && !errors.Is(err, ErrSubmitInProgress) {
			c.log.Error().Err(err).Msg("Automatic submission failed, retrying on next tick")
		}
		return
	}

	var warn bool
	if !c.warned && left <= c.opts.LowTimeThreshold {
		c.warned = true
		c.warningOn = true
		warn = true
	}
	c.mu.Unlock()

	if warn && c.presenter != nil {
		c.presenter.LowTimeWarning(lowTimeDialog())
	}
}

// Autosave re-persists the current record whether or not anything changed.
func (c *Controller) Autosave(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return nil
	}
	if err := c.store.SaveStudent(ctx, c.student.Clone()); err != nil {
		metrics.AutosaveFailures.Inc()
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	c.log.Debug().Int("answers", len(c.student.Answers)).Msg("Autosaved")
	return nil
}

// DismissWarning hides the low-time warning. It never re-arms it.
func (c *Controller) DismissWarning() {
	c.mu.Lock()
	c.warningOn = false
	c.mu.Unlock()
}

// RequestFinish opens the finish confirmation. The dialog warns when
// questions are still unanswered.
func (c *Controller) RequestFinish() (Dialog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return Dialog{}, ErrNotActive
	}
	c.finishOpen = true
	return finishDialog(c.unansweredLocked()), nil
}

// CancelFinish closes the confirmation and keeps the session active.
func (c *Controller) CancelFinish() {
	c.mu.Lock()
	c.finishOpen = false
	c.mu.Unlock()
}

// ConfirmFinish submits after RequestFinish. Once submitted, further calls
// return the completed record.
func (c *Controller) ConfirmFinish(ctx context.Context) (model.Student, error) {
	c.mu.Lock()
	switch {
	case c.state == StateCompleted:
		s := c.student.Clone()
		c.mu.Unlock()
		return s, nil
	case c.submitting:
		c.mu.Unlock()
		return model.Student{}, ErrSubmitInProgress
	case c.state != StateActive:
		c.mu.Unlock()
		return model.Student{}, ErrNotActive
	case !c.finishOpen:
		c.mu.Unlock()
		return model.Student{}, ErrNoPendingFinish
	}
	c.mu.Unlock()

	return c.submit(ctx, SubmitConfirmed)
}

// submit scores the attempt against the full question bank and persists it.
// Only the first caller proceeds; a failed save re-opens the session.
func (c *Controller) submit(ctx context.Context, reason SubmitReason) (model.Student, error) {
	c.mu.Lock()
	if c.submitting || c.state != StateActive {
		c.mu.Unlock()
		return model.Student{}, ErrSubmitInProgress
	}
	c.submitting = true
	c.state = StateSubmitting
	c.finishOpen = false
	final := c.student.Clone()
	c.mu.Unlock()

	// Submission cannot be cancelled once entered.
	ctx = context.WithoutCancel(ctx)

	bank, err := c.store.GetQuestions(ctx)
	if err == nil {
		final.Score = scoring.AggregateScore(final, bank)
		final.Status = model.StudentStatusCompleted
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.submitting = false
		c.mu.Unlock()
		c.log.Info().Str("reason", string(reason)).Msg("Submission dropped, session closed")
		return model.Student{}, ErrNotActive
	}
	if err == nil {
		// Saved under the lock so Close cannot interleave with the write.
		err = c.store.SaveStudent(ctx, final)
	}
	if err != nil {
		c.submitting = false
		c.state = StateActive
		c.mu.Unlock()
		c.log.Error().Err(err).Str("reason", string(reason)).Msg("Submission failed")
		metrics.SubmissionCounter.WithLabelValues(string(reason), "failed").Inc()
		return model.Student{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	c.student = final
	c.state = StateCompleted
	c.submitting = false
	close(c.done)
	c.mu.Unlock()

	c.log.Info().Str("reason", string(reason)).Int("score", final.Score).Msg("Exam submitted")
	metrics.SubmissionCounter.WithLabelValues(string(reason), "ok").Inc()
	if c.presenter != nil {
		c.presenter.Finished(final.Clone())
	}
	return final.Clone(), nil
}

// Close tears the session down without submitting. Afterwards no call
// writes to the store; a submission already past its save completes
// first. Close is idempotent and a no-op on a completed session.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed || c.state == StateCompleted {
		return
	}
	c.state = StateClosed
	c.finishOpen = false
	c.warningOn = false
	close(c.closed)
	c.log.Info().Msg("Exam session closed")
}

// Done is closed when the session reaches Completed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Questions returns the session's (subject-filtered) question bank.
func (c *Controller) Questions() []model.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Question(nil), c.questions...)
}

// unansweredLocked returns 1-based numbers of unanswered questions.
// Ordering questions count as answered once reached.
func (c *Controller) unansweredLocked() []int {
	var out []int
	for i, q := range c.questions {
		if !c.answeredLocked(q) {
			out = append(out, i+1)
		}
	}
	return out
}

func (c *Controller) answeredLocked(q model.Question) bool {
	if q.Type == model.QuestionTypeOrdering && c.student.HasReached(q.ID) {
		return true
	}
	a, ok := c.student.AnswerFor(q.ID)
	if !ok {
		return false
	}
	return scoring.IsAnswered(q, &a)
}

// View is a consistent snapshot of the session for presentation.
type View struct {
	State            string        `json:"state"`
	Student          model.Student `json:"student"`
	ActiveSubject    string        `json:"activeSubject,omitempty"`
	CurrentIndex     int           `json:"currentIndex"`
	Total            int           `json:"total"`
	Answered         []bool        `json:"answered"`
	AnsweredCount    int           `json:"answeredCount"`
	RemainingSeconds int           `json:"remainingSeconds"`
	WarningVisible   bool          `json:"warningVisible"`
	FinishRequested  bool          `json:"finishRequested"`
}

// Snapshot returns the current View.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:            c.state.String(),
		Student:          c.student.Clone(),
		ActiveSubject:    c.opts.ActiveSubject,
		CurrentIndex:     c.current,
		Total:            len(c.questions),
		Answered:         make([]bool, len(c.questions)),
		RemainingSeconds: int(c.remainingLocked() / time.Second),
		WarningVisible:   c.warningOn,
		FinishRequested:  c.finishOpen,
	}
	for i, q := range c.questions {
		if c.answeredLocked(q) {
			v.Answered[i] = true
			v.AnsweredCount++
		}
	}
	return v
}
