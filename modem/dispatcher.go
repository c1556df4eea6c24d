package modem

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/watchible/at"
	"i4.energy/across/watchible/rtc"
)

// Dispatcher classifies response lines and routes status lines to the
// handler owning the matching part of the Session.
type Dispatcher struct {
	session *Session
	clock   rtc.Clock
	out     io.Writer
	logger  *slog.Logger

	// certificate is streamed to out whenever the modem shows a data prompt.
	certificate []byte
	linePause   time.Duration
}

// NewDispatcher creates a Dispatcher writing into session. out receives the
// certificate on a data prompt; clock is set from +CCLK.
func NewDispatcher(session *Session, clock rtc.Clock, out io.Writer, certificate []byte, linePause time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		session:     session,
		clock:       clock,
		out:         out,
		logger:      logger,
		certificate: certificate,
		linePause:   linePause,
	}
}

// Dispatch handles one complete line and returns its category. The caller
// decides from the category whether the command in flight has completed.
// The only error is a failed write while answering a data prompt.
func (d *Dispatcher) Dispatch(line string) (at.Category, error) {
	category := at.Classify(line)
	d.logger.Debug("Modem line", "line", strings.TrimRight(line, "\r\n"), "category", category)

	switch category {
	case at.CategoryPrompt:
		if err := d.sendCertificate(); err != nil {
			return category, fmt.Errorf("answer data prompt: %w", err)
		}
	case at.CategoryStatus:
		topic, arg, ok := at.ParseStatus(line)
		if !ok {
			break
		}
		d.handle(topic, arg)
	}
	return category, nil
}

// sendCertificate streams the certificate one byte at a time, pausing after
// every newline so the modem can keep up, then terminates with Ctrl-Z.
func (d *Dispatcher) sendCertificate() error {
	if len(d.certificate) == 0 {
		d.logger.Warn("Data prompt without certificate, sending terminator only")
	}
	for _, b := range d.certificate {
		if _, err := d.out.Write([]byte{b}); err != nil {
			return err
		}
		if b == at.LF && d.linePause > 0 {
			time.Sleep(d.linePause)
		}
	}
	_, err := d.out.Write([]byte{at.CtrlZ})
	return err
}

func (d *Dispatcher) handle(topic at.Topic, arg string) {
	switch topic {
	case at.TopicRegistration:
		d.registration(arg)
	case at.TopicSIMIdentity:
		d.session.SIMIdentity = at.Strip(arg)
	case at.TopicBattery:
		d.session.Battery = at.Strip(arg)
	case at.TopicClock:
		d.clockUpdate(arg)
	case at.TopicSessionOpen:
		d.session.SessionOpen = resultOK(arg)
		d.logger.Info("Broker session open", "ok", d.session.SessionOpen)
	case at.TopicConnected:
		d.session.Connected = resultOK(arg)
		d.logger.Info("Broker connected", "ok", d.session.Connected)
	case at.TopicPublishAck:
		d.session.PublishAcked = resultOK(arg)
		d.logger.Info("Status published", "ok", d.session.PublishAcked)
	case at.TopicSessionClose:
		d.session.SessionOpen = false
		d.session.Connected = false
	case at.TopicPowerEvent:
		d.powerEvent(arg)
	case at.TopicIPAddress:
		d.session.IPAddress = at.Strip(arg)
	case at.TopicSessionStat, at.TopicReceive, at.TopicPDPContext:
		// recognised, carries nothing the cycle needs
	}
}

// registration accepts both the solicited "<n>,<stat>" and the unsolicited
// "<stat>" forms.
func (d *Dispatcher) registration(arg string) {
	stat := arg
	if i := strings.IndexByte(arg, ','); i >= 0 {
		stat = arg[i+1:]
	}
	registered := len(stat) > 0 && (stat[0] == at.RegisteredHome || stat[0] == at.RegisteredRoaming)
	if registered != d.session.Registered {
		d.logger.Info("Registration changed", "registered", registered)
	}
	d.session.Registered = registered
}

func (d *Dispatcher) clockUpdate(arg string) {
	raw := at.Strip(arg)
	c, err := at.ParseClock(raw)
	if err != nil {
		// The raw text is still worth reporting; the RTC is left alone.
		d.logger.Warn("Ignoring network time", "clock", raw, "error", err)
		d.session.Clock = raw
		return
	}
	if err := d.clock.Set(c.Time); err != nil {
		d.logger.Error("Failed to set real-time clock", "error", err)
	}
	d.session.Clock = raw
	d.session.ClockTime = c.Time
	d.logger.Info("Clock synchronised", "time", c.Time, "weekday", c.Weekday)
}

func (d *Dispatcher) powerEvent(arg string) {
	switch {
	case strings.Contains(arg, at.EnterPSM):
		d.session.LowPower = true
	case strings.Contains(arg, at.ExitPSM):
		d.session.LowPower = false
	default:
		return
	}
	d.logger.Info("Power save event", "active", d.session.LowPower)
}

// resultOK reads the result code digit of "<id>,<result>[,...]".
func resultOK(arg string) bool {
	return len(arg) > 2 && arg[2] == '0'
}
