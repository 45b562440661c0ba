// Package quizsession drives a single quiz attempt on the client side: one question at a
// time, a countdown, advisory proctoring and a one-shot submission.
//
// Proctoring here is advisory. The client observes its own fullscreen and focus state and
// can be defeated by a motivated user; the server records violations independently.
package quizsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/proctor"
)

var (
	ErrNotStarted        = errors.New("quiz has not started")
	ErrEnded             = errors.New("quiz has ended")
	ErrAnswerRequired    = errors.New("answer the current question before advancing")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSubmitInProgress  = errors.New("submission already in progress")
	ErrOutOfRange        = errors.New("index out of range")
	ErrNoQuestions       = errors.New("quiz has no questions")

	// ErrAlreadySubmitted is what a Submitter returns when the server already holds a
	// result for this attempt. The session becomes Rejected.
	ErrAlreadySubmitted = errors.New("result already submitted")
)

// Submitter delivers the answers to the server.
type Submitter interface {
	SubmitResult(ctx context.Context, quizID uuid.UUID, req *model.SubmitResultRequest) (*model.Result, error)
}

// Reporter forwards a violation to the server and returns its decision.
type Reporter interface {
	ReportViolation(ctx context.Context, quizID uuid.UUID, kind model.ViolationKind) (*model.ViolationDecision, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Session.
type Option func(*Session)

// WithPolicy sets the navigation policy. The default is RequireAnswerToAdvance.
func WithPolicy(p NavigationPolicy) Option { return func(s *Session) { s.policy = p } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

// WithReporter forwards violations to the server. The stricter of the local and
// server decisions wins.
func WithReporter(r Reporter) Option { return func(s *Session) { s.reporter = r } }

// Session is one attempt at one quiz. It is safe for concurrent use, so a ticker,
// a signal handler and user input can drive it from separate goroutines.
type Session struct {
	mu sync.Mutex

	quiz      *model.QuizPayload
	submitter Submitter
	reporter  Reporter
	clock     Clock
	policy    NavigationPolicy

	state      State
	beforeSend State
	cursor     int
	answers    []*int
	remaining  int
	violations int64
	result     *model.Result
}

// New creates a session in the Loading state.
func New(quiz *model.QuizPayload, submitter Submitter, opts ...Option) *Session {
	s := &Session{
		quiz:      quiz,
		submitter: submitter,
		clock:     systemClock{},
		policy:    RequireAnswerToAdvance,
		state:     Loading,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start enters Active if the quiz has questions and the current time lies within
// its window.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.quiz.Questions) == 0 {
		return ErrNoQuestions
	}
	now := s.clock.Now()
	if now.Before(s.quiz.StartTime) {
		return ErrNotStarted
	}
	if now.After(s.quiz.EndTime) {
		return ErrEnded
	}
	if err := s.fire(evStart); err != nil {
		return err
	}

	s.remaining = Countdown(s.quiz.DurationMinutes, s.quiz.EndTime, now)
	s.answers = make([]*int, len(s.quiz.Questions))
	s.cursor = 0
	return nil
}

// Countdown is the number of seconds an attempt started at now may last: the quiz
// duration, cut short by the end of the window.
func Countdown(durationMinutes int, end, now time.Time) int {
	left := int(end.Sub(now) / time.Second)
	if d := durationMinutes * 60; d < left {
		return d
	}
	if left < 0 {
		return 0
	}
	return left
}

// Select records an answer for question q. Correctness is never known client-side.
func (s *Session) Select(q, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.answering() {
		return fmt.Errorf("%w: select in %s", ErrInvalidTransition, s.state)
	}
	if q < 0 || q >= len(s.answers) {
		return ErrOutOfRange
	}
	if option < 0 || option >= len(s.quiz.Questions[q].Options) {
		return ErrOutOfRange
	}
	s.answers[q] = &option
	return nil
}

// Advance moves to the next question, clamped to the last one.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.answering() {
		return fmt.Errorf("%w: advance in %s", ErrInvalidTransition, s.state)
	}
	if len(s.answers) == 0 {
		return ErrNoQuestions
	}
	if s.policy == RequireAnswerToAdvance && s.answers[s.cursor] == nil {
		return ErrAnswerRequired
	}
	if s.cursor < len(s.answers)-1 {
		s.cursor++
	}
	return nil
}

// Retreat moves to the previous question, clamped to the first one.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.answering() {
		return fmt.Errorf("%w: retreat in %s", ErrInvalidTransition, s.state)
	}
	if s.cursor > 0 {
		s.cursor--
	}
	return nil
}

// Tick advances the countdown by one second and submits when it reaches zero.
// It reports whether this tick triggered a submission.
func (s *Session) Tick(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.state.answering() {
		s.mu.Unlock()
		return false, nil
	}
	if s.remaining > 0 {
		s.remaining--
	}
	expired := s.remaining == 0
	s.mu.Unlock()

	if !expired {
		return false, nil
	}
	_, err := s.Submit(ctx)
	return true, err
}

// Violation counts a loss of fullscreen or focus. The first one blocks the session with a
// warning; the second forces submission regardless of completeness.
func (s *Session) Violation(ctx context.Context, kind model.ViolationKind) (model.ViolationAction, error) {
	s.mu.Lock()
	if !s.state.answering() {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: violation in %s", ErrInvalidTransition, s.state)
	}
	s.violations++
	action := proctor.Decide(s.violations)
	s.mu.Unlock()

	if s.reporter != nil {
		if d, err := s.reporter.ReportViolation(ctx, s.quiz.ID, kind); err == nil {
			s.mu.Lock()
			if d.Count > s.violations {
				s.violations = d.Count
			}
			s.mu.Unlock()
			if d.Action == model.ViolationActionSubmit {
				action = model.ViolationActionSubmit
			}
		}
	}

	if action == model.ViolationActionSubmit {
		if _, err := s.Submit(ctx); err != nil {
			return action, err
		}
		return action, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Active {
		if err := s.fire(evBlock); err != nil {
			return action, err
		}
	}
	return action, nil
}

// Resume leaves FullscreenBlocked once the client regained fullscreen.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fire(evResume)
}

// Submit sends the answers exactly once. On a transport failure the session returns to
// the state it was in and Submit may be retried. If the server already holds a result
// the session becomes Rejected.
func (s *Session) Submit(ctx context.Context) (*model.Result, error) {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	prev := s.state
	if err := s.fire(evSubmit); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.beforeSend = prev
	req := &model.SubmitResultRequest{
		Answers:    append([]*int(nil), s.answers...),
		Violations: int(s.violations),
	}
	s.mu.Unlock()

	res, err := s.submitter.SubmitResult(ctx, s.quiz.ID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.result = res
		_ = s.fire(evAccepted)
		return res, nil
	case errors.Is(err, ErrAlreadySubmitted):
		_ = s.fire(evRejected)
		return nil, err
	default:
		if s.beforeSend == FullscreenBlocked {
			_ = s.fire(evRetryBlocked)
		} else {
			_ = s.fire(evRetryActive)
		}
		return nil, fmt.Errorf("submit failed, retry: %w", err)
	}
}

// fire applies ev to the transition table. Callers hold mu.
func (s *Session) fire(ev event) error {
	next, ok := transitions[s.state][ev]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.state)
	}
	s.state = next
	return nil
}

// Snapshot is a consistent read of the session for rendering.
type Snapshot struct {
	State      State
	Cursor     int
	Remaining  time.Duration
	Answers    []*int
	Violations int64
	Result     *model.Result
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:      s.state,
		Cursor:     s.cursor,
		Remaining:  time.Duration(s.remaining) * time.Second,
		Answers:    append([]*int(nil), s.answers...),
		Violations: s.violations,
		Result:     s.result,
	}
}

// Quiz returns the quiz being taken.
func (s *Session) Quiz() *model.QuizPayload { return s.quiz }
