// Package rtc holds the settable real-time clock the reporting cycle
// synchronises from network time.
package rtc

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Clock is a real-time clock that can be set once per cycle.
type Clock interface {
	Set(t time.Time) error
	Now() time.Time
}

// Soft is an in-process clock kept as an offset from the host clock. It is
// safe for concurrent use.
type Soft struct {
	mu     sync.RWMutex
	offset time.Duration
	set    bool

	// now defaults to time.Now.
	now func() time.Time
}

// NewSoft returns a Soft clock that reads the host clock until it is set.
func NewSoft() *Soft {
	return &Soft{now: time.Now}
}

func (s *Soft) Set(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = t.Sub(s.now())
	s.set = true
	return nil
}

func (s *Soft) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Add(s.offset)
}

// IsSet reports whether the clock has been set since creation.
func (s *Soft) IsSet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// System sets the host clock. It needs CAP_SYS_TIME.
type System struct{}

func (System) Set(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("settimeofday: %w", err)
	}
	return nil
}

func (System) Now() time.Time {
	return time.Now()
}
