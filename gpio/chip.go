package gpio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/warthog618/go-gpiocdev"
)

// Lines holds the line offsets used on a GPIO chip. A negative PowerKey means
// the modem power line is not wired.
type Lines struct {
	Sensor    int
	Indicator int
	PowerKey  int
}

// Chip owns the requested lines of one GPIO character device.
type Chip struct {
	Alarm    *Alarm
	PowerKey *PowerKey

	lines []*gpiocdev.Line
}

// Open requests the alarm lines on chip (for example "gpiochip0"). The sensor
// is configured as a pulled-up input reporting both edges.
func Open(chip string, lines Lines, logger *slog.Logger) (*Chip, error) {
	c := &Chip{}

	indicator, err := gpiocdev.RequestLine(chip, lines.Indicator, gpiocdev.AsOutput(1))
	if err != nil {
		return nil, fmt.Errorf("request indicator line %d: %w", lines.Indicator, err)
	}
	c.lines = append(c.lines, indicator)

	// Edges may fire before the sensor line is assigned below.
	ready := make(chan struct{})
	var alarm *Alarm
	sensor, err := gpiocdev.RequestLine(chip, lines.Sensor,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			<-ready
			alarm.OnEdge()
		}),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request sensor line %d: %w", lines.Sensor, err)
	}
	c.lines = append(c.lines, sensor)
	alarm = NewAlarm(linePin{sensor}, linePin{indicator}, logger)
	c.Alarm = alarm
	close(ready)
	alarm.OnEdge()

	if lines.PowerKey >= 0 {
		key, err := gpiocdev.RequestLine(chip, lines.PowerKey, gpiocdev.AsOutput(0))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("request power key line %d: %w", lines.PowerKey, err)
		}
		c.lines = append(c.lines, key)
		c.PowerKey = &PowerKey{Pin: linePin{key}}
	}
	return c, nil
}

// Close releases every requested line.
func (c *Chip) Close() error {
	var errs []error
	for _, l := range c.lines {
		errs = append(errs, l.Close())
	}
	c.lines = nil
	return errors.Join(errs...)
}

type linePin struct {
	l *gpiocdev.Line
}

func (p linePin) Level() (bool, error) {
	v, err := p.l.Value()
	return v == 1, err
}

func (p linePin) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return p.l.SetValue(v)
}
