package gpio

import (
	"log/slog"

	"go.uber.org/atomic"
)

// Alarm tracks the leak sensor. OnEdge is meant to run from the edge
// interrupt; it is the only writer of the alarm state.
type Alarm struct {
	sensor    InputPin
	indicator OutputPin
	active    atomic.Bool
	logger    *slog.Logger
}

// NewAlarm creates an Alarm reading sensor and driving indicator. The state
// is not sampled until the first OnEdge call.
func NewAlarm(sensor InputPin, indicator OutputPin, logger *slog.Logger) *Alarm {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alarm{
		sensor:    sensor,
		indicator: indicator,
		logger:    logger,
	}
}

// OnEdge handles an edge of either direction. It re-reads the sensor level
// rather than trusting the edge, so contact bounce settles on the real state,
// and drives the indicator to the complement of that state.
func (a *Alarm) OnEdge() {
	level, err := a.sensor.Level()
	if err != nil {
		a.logger.Error("Failed to read alarm sensor", "error", err)
		return
	}
	if a.active.Swap(level) != level {
		a.logger.Info("Alarm changed", "active", level)
	}
	if err := a.indicator.Set(!level); err != nil {
		a.logger.Error("Failed to drive alarm indicator", "error", err)
	}
}

// Active reports the last sampled alarm state.
func (a *Alarm) Active() bool {
	return a.active.Load()
}
