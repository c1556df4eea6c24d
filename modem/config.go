package modem

import (
	"context"
	"log/slog"
	"time"

	"i4.energy/across/watchible/journal"
	"i4.energy/across/watchible/power"
	"i4.energy/across/watchible/rtc"
)

// ErrorPolicy selects what the sequencer does when the modem answers ERROR.
type ErrorPolicy int

const (
	// ErrorPolicyAdvance treats ERROR like OK and moves on to the next step.
	ErrorPolicyAdvance ErrorPolicy = iota
	// ErrorPolicyRetry sends the failed step again, up to MaxRetries times,
	// then fails the cycle with ErrCommandFailed.
	ErrorPolicyRetry
	// ErrorPolicyFail fails the cycle with ErrCommandFailed on the first ERROR.
	ErrorPolicyFail
)

func (p ErrorPolicy) String() string {
	switch p {
	case ErrorPolicyAdvance:
		return "advance"
	case ErrorPolicyRetry:
		return "retry"
	case ErrorPolicyFail:
		return "fail"
	default:
		return "unknown"
	}
}

// AlarmSource reports the live leak alarm state.
type AlarmSource interface {
	Active() bool
}

// Resetter power-cycles the modem hardware.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Journal records completed cycles.
type Journal interface {
	Append(r journal.Record) error
}

type Config struct {
	dialer      Dialer
	script      Script
	certificate []byte

	queueSize     int
	maxLineLength int

	registrationPoll time.Duration
	gatePoll         time.Duration
	certLinePause    time.Duration
	sleepDuration    time.Duration

	errorPolicy ErrorPolicy
	maxRetries  int

	clock    rtc.Clock
	sleeper  power.Sleeper
	journal  Journal
	resetter Resetter

	alarm           AlarmSource
	reportLiveAlarm bool
	temperature     string

	logger *slog.Logger
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	if c.script != nil && len(c.script) == 0 {
		return ErrEmptyScript
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.script == nil {
		c.script = DefaultScript(DefaultBroker)
	}
	if c.queueSize == 0 {
		c.queueSize = 1024
	}
	if c.maxLineLength == 0 {
		c.maxLineLength = 1024
	}
	if c.registrationPoll == 0 {
		c.registrationPoll = 2 * time.Second
	}
	if c.gatePoll == 0 {
		c.gatePoll = 100 * time.Millisecond
	}
	if c.certLinePause == 0 {
		c.certLinePause = 50 * time.Millisecond
	}
	if c.sleepDuration == 0 {
		c.sleepDuration = 240 * time.Second
	}
	if c.maxRetries == 0 {
		c.maxRetries = 3
	}
	if c.clock == nil {
		c.clock = rtc.NewSoft()
	}
	if c.sleeper == nil {
		c.sleeper = power.Timer{}
	}
	if c.temperature == "" {
		c.temperature = "20"
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
}

// ConfigBuilder assembles a Config. Unset values fall back to defaults in
// Build.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

func (b *ConfigBuilder) WithScript(s Script) *ConfigBuilder {
	b.config.script = s
	return b
}

// WithCertificate sets the payload streamed when the modem shows a data
// prompt.
func (b *ConfigBuilder) WithCertificate(cert []byte) *ConfigBuilder {
	b.config.certificate = cert
	return b
}

func (b *ConfigBuilder) WithQueueSize(n int) *ConfigBuilder {
	b.config.queueSize = n
	return b
}

func (b *ConfigBuilder) WithMaxLineLength(n int) *ConfigBuilder {
	b.config.maxLineLength = n
	return b
}

// WithRegistrationPoll sets the pause after each registration query.
func (b *ConfigBuilder) WithRegistrationPoll(d time.Duration) *ConfigBuilder {
	b.config.registrationPoll = d
	return b
}

// WithGatePoll sets how often a gated step is re-evaluated while waiting.
func (b *ConfigBuilder) WithGatePoll(d time.Duration) *ConfigBuilder {
	b.config.gatePoll = d
	return b
}

// WithCertLinePause sets the pause after each certificate line.
func (b *ConfigBuilder) WithCertLinePause(d time.Duration) *ConfigBuilder {
	b.config.certLinePause = d
	return b
}

// WithSleepDuration sets how long to sleep once the modem enters power save.
func (b *ConfigBuilder) WithSleepDuration(d time.Duration) *ConfigBuilder {
	b.config.sleepDuration = d
	return b
}

func (b *ConfigBuilder) WithErrorPolicy(p ErrorPolicy) *ConfigBuilder {
	b.config.errorPolicy = p
	return b
}

func (b *ConfigBuilder) WithMaxRetries(n int) *ConfigBuilder {
	b.config.maxRetries = n
	return b
}

func (b *ConfigBuilder) WithClock(c rtc.Clock) *ConfigBuilder {
	b.config.clock = c
	return b
}

func (b *ConfigBuilder) WithSleeper(s power.Sleeper) *ConfigBuilder {
	b.config.sleeper = s
	return b
}

func (b *ConfigBuilder) WithJournal(j Journal) *ConfigBuilder {
	b.config.journal = j
	return b
}

// WithResetter power-cycles the modem once before the first cycle of Run.
func (b *ConfigBuilder) WithResetter(r Resetter) *ConfigBuilder {
	b.config.resetter = r
	return b
}

// WithAlarm sets the alarm source. The published report only carries its
// state when live is true; otherwise the alarm field stays false.
func (b *ConfigBuilder) WithAlarm(a AlarmSource, live bool) *ConfigBuilder {
	b.config.alarm = a
	b.config.reportLiveAlarm = live
	return b
}

func (b *ConfigBuilder) WithTemperature(t string) *ConfigBuilder {
	b.config.temperature = t
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
