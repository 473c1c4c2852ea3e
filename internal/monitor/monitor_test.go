package monitor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *testLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

func TestService_SamplesUntilStopped(t *testing.T) {
	var received atomic.Int64
	logger := &testLogger{}
	s := NewService(logger, 5*time.Millisecond, func() Status {
		return Status{Sent: 10, Received: received.Add(1), Queued: 3}
	})

	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		_, n := s.Last()
		return n >= 3
	}, time.Second, time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())

	last, n := s.Last()
	assert.Equal(t, int64(10), last.Sent)
	assert.Equal(t, 3, last.Queued)
	assert.Equal(t, n, logger.count())

	// no samples after Stop returns
	time.Sleep(20 * time.Millisecond)
	_, after := s.Last()
	assert.Equal(t, n, after)
}

func TestService_StartTwice(t *testing.T) {
	var calls atomic.Int32
	s := NewService(&testLogger{}, time.Millisecond, func() Status {
		calls.Add(1)
		return Status{}
	})

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestService_DisabledInterval(t *testing.T) {
	s := NewService(&testLogger{}, 0, func() Status {
		t.Error("probe must not run")
		return Status{}
	})

	s.Start()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestService_Restart(t *testing.T) {
	s := NewService(&testLogger{}, time.Millisecond, func() Status { return Status{} })

	s.Start()
	s.Stop()
	s.Start()
	assert.True(t, s.IsRunning())
	s.Stop()
}
