package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) {}
func (l *recordingLogger) Info(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *recordingLogger) Fatal(msg string, _ ...interface{}) {}

type sinkFunc struct {
	name string
	fn   func(ev Event) error
}

func (s sinkFunc) Name() string                             { return s.name }
func (s sinkFunc) Handle(_ context.Context, ev Event) error { return s.fn(ev) }

func TestDispatcher_Notify(t *testing.T) {
	logger := new(recordingLogger)

	var mu sync.Mutex
	received := make([]string, 0)
	ok := sinkFunc{name: "ok", fn: func(ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ev.Type)
		return nil
	}}
	failing := sinkFunc{name: "failing", fn: func(Event) error { return errors.New("broker down") }}
	panicking := sinkFunc{name: "panicking", fn: func(Event) error { panic("boom") }}

	d := NewDispatcher(logger, 0, ok, failing, panicking, NewLogSink(logger))
	d.Notify(context.Background(), Event{Type: EventUserCertified, UserID: "u1", AttemptID: "a1"})
	d.Wait()

	assert.Equal(t, []string{EventUserCertified}, received)
	require.Len(t, logger.errors, 2)
	assert.ElementsMatch(t, []string{
		"notify: sink failing failed handling user.certified: broker down",
		"notify: sink panicking panicked handling user.certified",
	}, logger.errors)
	assert.Equal(t, []string{"user u1 is now certified (attempt a1)"}, logger.infos)
}

func TestLogSink_Handle(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "passed", ev: Event{Type: EventAttemptGraded, UserID: "u", AssessmentID: 1, Score: "85.00", Passed: true},
			want: "user u PASSED assessment 1 with score 85.00%",
		},
		{
			name: "failed", ev: Event{Type: EventAttemptGraded, UserID: "u", AssessmentID: 1, Score: "80.00"},
			want: "user u FAILED assessment 1 with score 80.00%",
		},
		{name: "course", ev: Event{Type: EventCourseCompleted, UserID: "u", CourseID: 3}, want: "user u completed course 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(recordingLogger)
			require.NoError(t, NewLogSink(logger).Handle(context.Background(), tt.ev))
			assert.Equal(t, []string{tt.want}, logger.infos)
		})
	}
}
