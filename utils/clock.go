package utils

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

type RealClock struct{}

func (self RealClock) Now() time.Time {
	return time.Now()
}

func (self RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (self RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// A fixed clock for tests.
type MockClock struct {
	mu      sync.Mutex
	MockNow time.Time
}

func (self *MockClock) Now() time.Time {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.MockNow
}

func (self *MockClock) Set(t time.Time) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MockNow = t
}

func (self *MockClock) After(d time.Duration) <-chan time.Time {
	return time.After(0)
}

func (self *MockClock) Sleep(d time.Duration) {}

var (
	clock_mu sync.Mutex
	clock    Clock = RealClock{}
)

func GetTime() Clock {
	clock_mu.Lock()
	defer clock_mu.Unlock()

	return clock
}

// Install a mock clock for tests. Returns a closer that restores the
// real clock.
func MockTime(c Clock) func() {
	clock_mu.Lock()
	defer clock_mu.Unlock()

	old := clock
	clock = c

	return func() {
		clock_mu.Lock()
		defer clock_mu.Unlock()

		clock = old
	}
}
