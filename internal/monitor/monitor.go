// Package monitor periodically samples a running soak and logs its progress.
package monitor

import (
	"sync"
	"time"
)

// Logger interface for pluggable logging.
type Logger interface {
	Info(msg string, keysAndValues ...any)
}

// Status is one progress sample.
type Status struct {
	Sent     int64
	Received int64
	Queued   int
}

// Probe returns the current status. It is called from the monitor goroutine.
type Probe func() Status

// Service manages status monitoring
type Service struct {
	logger   Logger
	probe    Probe
	interval time.Duration

	mu        sync.RWMutex
	isRunning bool
	last      Status
	samples   int
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service sampling probe every interval.
func NewService(logger Logger, interval time.Duration, probe Probe) *Service {
	return &Service{
		logger:   logger,
		probe:    probe,
		interval: interval,
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent sample and how many were taken.
func (s *Service) Last() (Status, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.samples
}

// Start starts the status monitor goroutine. It is a no-op when already
// running or when the interval is not positive.
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning || s.interval <= 0 {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		var prev Status
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.probe()

				s.mu.Lock()
				s.last = st
				s.samples++
				s.mu.Unlock()

				s.logger.Info("progress",
					"sent", st.Sent,
					"received", st.Received,
					"queued", st.Queued,
					"rate", float64(st.Received-prev.Received)/s.interval.Seconds(),
				)
				prev = st
			}
		}
	}()
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
