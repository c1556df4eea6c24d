// Package gpio wires the leak sensor input, its indicator output and the
// modem power key.
package gpio

//go:generate go tool mockgen -destination=mock_pin.go -package=gpio . InputPin,OutputPin

import (
	"context"
	"sync"
	"time"
)

// InputPin is a digital input.
type InputPin interface {
	Level() (bool, error)
}

// OutputPin is a digital output.
type OutputPin interface {
	Set(high bool) error
}

// MemoryPin is an in-process pin usable as either input or output. It stands
// in for hardware in tests and on hosts without a GPIO chip.
type MemoryPin struct {
	mu     sync.Mutex
	level  bool
	writes int
}

func (p *MemoryPin) Level() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *MemoryPin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = high
	p.writes++
	return nil
}

// Writes returns how many times Set was called.
func (p *MemoryPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// PowerKey drives the modem power-reset line.
type PowerKey struct {
	Pin OutputPin
	// Pulse is the duration of each phase, 500ms when zero.
	Pulse time.Duration
}

// Reset power-cycles the modem: low, high, then low again, holding each
// level for one pulse.
func (k PowerKey) Reset(ctx context.Context) error {
	pulse := k.Pulse
	if pulse == 0 {
		pulse = 500 * time.Millisecond
	}
	for _, level := range []bool{false, true} {
		if err := k.Pin.Set(level); err != nil {
			return err
		}
		t := time.NewTimer(pulse)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return k.Pin.Set(false)
}
