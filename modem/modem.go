package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.uber.org/atomic"
	"i4.energy/across/watchible/at"
	"i4.energy/across/watchible/journal"
	"i4.energy/across/watchible/power"
	"i4.energy/across/watchible/queue"
)

// Modem drives an NB-IoT module through one reporting cycle at a time: wait
// for registration, walk the command script, publish the status report and
// sleep once the module enters power-save mode.
//
// Bytes from the transport are moved into a byte queue by a dedicated
// receive goroutine started in New. Everything else (line assembly,
// dispatch, sequencing) runs on the goroutine calling RunCycle or Run.
type Modem struct {
	// transport provides the physical connection to the modem
	transport Transport
	// config contains the modem configuration settings
	config Config
	logger *slog.Logger

	rx    *queue.Queue
	lines *LineReader

	// session is owned by the cycle goroutine; snapshot holds the copy
	// published after every line for other readers.
	session  Session
	snapshot atomic.Pointer[Session]

	dispatcher *Dispatcher
	sequencer  *Sequencer

	running atomic.Bool
	cycles  atomic.Uint64

	// receive lifecycle
	recvCtx    context.Context
	recvCancel context.CancelCauseFunc
	recvDone   chan struct{}

	closed atomic.Bool
}

// CycleResult summarises a cycle that ended in power-save mode.
type CycleResult struct {
	Cycle      uint64
	Session    Session
	Clock      time.Time
	Steps      int
	SleepUntil time.Time
}

// New creates a Modem with the given configuration. It dials the transport
// and starts receiving; no command is sent until RunCycle.
//
// ctx bounds the lifetime of the receive goroutine. Close stops it as well.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	m := &Modem{
		transport: transport,
		config:    config,
		logger:    config.logger,
		rx:        queue.New(config.queueSize),
		sequencer: NewSequencer(config.script, config.errorPolicy, config.maxRetries),
		recvDone:  make(chan struct{}),
	}
	m.lines = NewLineReader(m.rx, config.maxLineLength)
	m.dispatcher = NewDispatcher(&m.session, config.clock, transport, config.certificate, config.certLinePause, m.logger)
	m.publish()

	m.recvCtx, m.recvCancel = context.WithCancelCause(ctx)
	go m.receive()

	return m, nil
}

// receive is the only producer of m.rx.
func (m *Modem) receive() {
	defer close(m.recvDone)
	dropped, err := queue.Pump(m.recvCtx, m.transport, m.rx)
	if dropped > 0 {
		m.logger.Warn("Receive queue overflowed", "dropped", dropped)
	}
	m.recvCancel(fmt.Errorf("receive: %w", err))
}

// RunCycle performs one reporting cycle. It returns when the modem reports
// power-save entry and the configured sleep is over, when ctx is done, when
// the transport fails, or when the error policy gives up on a command.
//
// Each cycle starts from a fresh session: not registered, no broker session
// and the script cursor at zero.
func (m *Modem) RunCycle(ctx context.Context) (CycleResult, error) {
	if m.closed.Load() {
		return CycleResult{}, ErrAlreadyClosed
	}
	if !m.running.CompareAndSwap(false, true) {
		return CycleResult{}, ErrCycleRunning
	}
	defer m.running.Store(false)

	cycle := m.cycles.Inc()
	logger := m.logger.With("cycle", cycle)

	m.session = Session{}
	m.sequencer.Reset()
	m.publish()

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.recvCtx, cancel)
	defer stop()

	logger.Info("Starting cycle", "steps", len(m.config.script))

	// Nothing may be in flight yet; evaluate once to start the conversation.
	if err := m.advance(cycleCtx, logger); err != nil {
		return CycleResult{Cycle: cycle}, m.cycleErr(ctx, err)
	}

	for {
		readCtx, cancelRead := cycleCtx, context.CancelFunc(func() {})
		if m.sequencer.State() == StateWaiting {
			readCtx, cancelRead = context.WithTimeout(cycleCtx, m.config.gatePoll)
		}
		line, err := m.lines.ReadLine(readCtx)
		cancelRead()

		evaluate := false
		switch {
		case err == nil:
			category, err := m.dispatcher.Dispatch(line)
			m.publish()
			if err != nil {
				return CycleResult{Cycle: cycle}, err
			}
			if category.Completes() {
				evaluate, err = m.sequencer.Complete(category)
				if err != nil {
					logger.Error("Giving up on command", "error", err, "line", strings.TrimSpace(line))
					return CycleResult{Cycle: cycle}, err
				}
			}
		case errors.Is(err, ErrLineTooLong):
			logger.Warn("Discarded response line", "error", err, "limit", m.config.maxLineLength)
		case errors.Is(err, context.DeadlineExceeded) && cycleCtx.Err() == nil:
			// gate poll tick
		default:
			return CycleResult{Cycle: cycle}, m.cycleErr(ctx, err)
		}

		if evaluate || m.sequencer.State() == StateWaiting {
			if err := m.advance(cycleCtx, logger); err != nil {
				return CycleResult{Cycle: cycle}, m.cycleErr(ctx, err)
			}
		}

		if m.session.LowPower {
			return m.sleep(ctx, cycle, logger)
		}
	}
}

// advance asks the sequencer for the next action and performs it.
func (m *Modem) advance(ctx context.Context, logger *slog.Logger) error {
	prev := m.sequencer.State()
	action, err := m.sequencer.Next(&m.session, m.report)
	if err != nil {
		return err
	}

	switch action.Kind {
	case ActionQueryRegistration:
		logger.Debug("Not registered, querying", "command", action.Command)
		if err := m.send(action.Command); err != nil {
			return err
		}
		return power.Sleep(ctx, m.config.registrationPoll)
	case ActionSend:
		step := m.config.script[action.Step]
		logger.Debug("Sending step", "index", action.Step, "step", step.Name, "command", action.Command)
		return m.send(action.Command)
	case ActionWait:
		if prev != StateWaiting {
			step := m.config.script[action.Step]
			logger.Info("Waiting for prerequisite", "index", action.Step, "step", step.Name, "gate", step.Gate)
		}
	case ActionDone:
		if prev != StateDone {
			logger.Info("Script complete", "steps", len(m.config.script), "publishAcked", m.session.PublishAcked)
		}
	}
	return nil
}

func (m *Modem) send(cmd string) error {
	if _, err := m.transport.Write(at.Command(cmd)); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	return nil
}

// report builds the JSON status report for the publish step.
func (m *Modem) report() (string, error) {
	alarm := false
	if m.config.reportLiveAlarm && m.config.alarm != nil {
		alarm = m.config.alarm.Active()
	}
	return NewStatusReport(&m.session, alarm, m.config.temperature).Encode()
}

// sleep persists the cycle summary and sleeps until the next cycle is due.
func (m *Modem) sleep(ctx context.Context, cycle uint64, logger *slog.Logger) (CycleResult, error) {
	res := CycleResult{
		Cycle:      cycle,
		Session:    m.session,
		Clock:      m.config.clock.Now(),
		Steps:      m.sequencer.Cursor(),
		SleepUntil: time.Now().Add(m.config.sleepDuration),
	}
	logger.Info("Modem entered power save", "time", res.Clock, "steps", res.Steps, "wake", res.SleepUntil)

	if m.config.journal != nil {
		err := m.config.journal.Append(journal.Record{
			Cycle:      cycle,
			Clock:      res.Clock,
			NetClock:   res.Session.Clock,
			CCID:       res.Session.SIMIdentity,
			Battery:    res.Session.Battery,
			Registered: res.Session.Registered,
			Published:  res.Session.PublishAcked,
			Steps:      res.Steps,
			SleepUntil: res.SleepUntil,
		})
		if err != nil {
			logger.Error("Failed to write journal", "error", err)
		}
	}

	if err := m.config.sleeper.SleepUntil(ctx, res.SleepUntil); err != nil {
		return res, err
	}
	return res, nil
}

// cycleErr prefers the caller's cancellation, then a receive failure, over
// the error observed by the cycle.
func (m *Modem) cycleErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cause := context.Cause(m.recvCtx); cause != nil {
		return cause
	}
	return err
}

// Run repeats cycles until ctx is done or the transport fails. A configured
// Resetter power-cycles the modem once before the first cycle. Commands the
// error policy gave up on only end the current cycle.
func (m *Modem) Run(ctx context.Context) error {
	if m.config.resetter != nil {
		m.logger.Info("Power cycling modem")
		if err := m.config.resetter.Reset(ctx); err != nil {
			return fmt.Errorf("reset modem: %w", err)
		}
	}

	for {
		_, err := m.RunCycle(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrCommandFailed):
			m.logger.Warn("Cycle aborted, restarting", "error", err)
		default:
			return err
		}
	}
}

func (m *Modem) publish() {
	s := m.session
	m.snapshot.Store(&s)
}

// Snapshot returns a copy of the session as of the last processed line. It
// is safe to call from any goroutine.
func (m *Modem) Snapshot() Session {
	return *m.snapshot.Load()
}

// Cycles returns how many cycles have been started.
func (m *Modem) Cycles() uint64 {
	return m.cycles.Load()
}

// Close stops receiving and closes the transport. After calling Close the
// modem cannot be reused.
func (m *Modem) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}

	err := m.transport.Close()
	m.recvCancel(ErrAlreadyClosed)
	<-m.recvDone
	return err
}
