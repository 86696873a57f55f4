package gamepad

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Strategy decides when the Manager runs an update cycle.
type Strategy interface {
	// Start begins driving update. It is called once from Manager.Init.
	Start(update func()) error
	// Stop ends driving and waits until no update is running. Called from
	// inside a running update it returns without waiting for it.
	Stop()
}

// ManualStrategy runs a cycle only when Update is called. Use it in tests
// and when a host loop pumps updates itself.
type ManualStrategy struct {
	mu     sync.Mutex
	update func()
}

// NewManualStrategy returns an idle manual strategy.
func NewManualStrategy() *ManualStrategy {
	return &ManualStrategy{}
}

func (s *ManualStrategy) Start(update func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = update
	return nil
}

func (s *ManualStrategy) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = nil
}

// Update runs one cycle synchronously. It is a no-op before Start or after
// Stop.
func (s *ManualStrategy) Update() {
	s.mu.Lock()
	fn := s.update
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// DefaultInterval polls at roughly 60Hz.
const DefaultInterval = 16 * time.Millisecond

// IntervalStrategy runs a cycle every Interval on its own goroutine.
type IntervalStrategy struct {
	Interval time.Duration

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	runner atomic.Uint64 // goroutine running the ticker loop
}

// NewIntervalStrategy returns a strategy ticking every d, or DefaultInterval
// if d is not positive.
func NewIntervalStrategy(d time.Duration) *IntervalStrategy {
	if d <= 0 {
		d = DefaultInterval
	}
	return &IntervalStrategy{Interval: d}
}

func (s *IntervalStrategy) Start(update func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errors.New("interval strategy already started")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(interval, update, s.stop, s.done)
	return nil
}

func (s *IntervalStrategy) run(interval time.Duration, update func(), stop, done chan struct{}) {
	s.runner.Store(goid())
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			update()
		}
	}
}

func (s *IntervalStrategy) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	if s.runner.Load() == goid() {
		// Stopped by update itself; the loop exits once it returns.
		return
	}
	<-done
}
