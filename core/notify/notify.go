// Package notify fans domain events out to sinks (logs, message broker, email, metrics).
// Delivery is fire-and-forget: a failing sink is logged and never fails the caller.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/academy/core"
)

// Event types
const (
	EventAttemptGraded   = "attempt.graded"
	EventUserCertified   = "user.certified"
	EventModuleCompleted = "module.completed"
	EventCourseCompleted = "course.completed"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`

	AttemptID       string `json:"attempt_id,omitempty"`
	AssessmentID    int    `json:"assessment_id,omitempty"`
	AssessmentTitle string `json:"assessment_title,omitempty"`
	Score           string `json:"score,omitempty"`
	Passed          bool   `json:"passed,omitempty"`
	CourseID        int    `json:"course_id,omitempty"`
	ModuleID        int    `json:"module_id,omitempty"`
}

type (
	Notifier interface {
		Notify(ctx context.Context, ev Event)
	}

	Sink interface {
		Name() string
		Handle(ctx context.Context, ev Event) error
	}

	Dispatcher struct {
		sinks   []Sink
		logger  core.Logger
		timeout time.Duration
		wg      sync.WaitGroup
	}
)

var _ Notifier = (*Dispatcher)(nil) // interface compliance check

func NewDispatcher(logger core.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sinks: sinks, logger: logger, timeout: timeout}
}

// Notify hands `ev` to every sink, each in its own goroutine.
// The sinks do not inherit the cancellation of `ctx`, which usually ends with the request.
func (d *Dispatcher) Notify(_ context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = core.NowFunc().UTC()
	}
	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			d.dispatch(s, ev)
		}(s)
	}
}

func (d *Dispatcher) dispatch(s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(fmt.Sprintf("notify: sink %s panicked handling %s", s.Name(), ev.Type), r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := s.Handle(ctx, ev); err != nil {
		d.logger.Error(fmt.Sprintf("notify: sink %s failed handling %s: %v", s.Name(), ev.Type, err), err)
	}
}

// Wait blocks until the in-flight deliveries are done.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSink writes every event to the app logger.
type LogSink struct {
	logger core.Logger
}

func NewLogSink(logger core.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Handle(_ context.Context, ev Event) error {
	switch ev.Type {
	case EventAttemptGraded:
		result := "FAILED"
		if ev.Passed {
			result = "PASSED"
		}
		s.logger.Info(fmt.Sprintf("user %s %s assessment %d with score %s%%", ev.UserID, result, ev.AssessmentID, ev.Score))
	case EventUserCertified:
		s.logger.Info(fmt.Sprintf("user %s is now certified (attempt %s)", ev.UserID, ev.AttemptID))
	case EventCourseCompleted:
		s.logger.Info(fmt.Sprintf("user %s completed course %d", ev.UserID, ev.CourseID))
	default:
		s.logger.Debug(fmt.Sprintf("event %s for user %s", ev.Type, ev.UserID))
	}
	return nil
}

// Nop discards all events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
