package modem_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/watchible/journal"
	"i4.energy/across/watchible/modem"
	"i4.energy/across/watchible/sim"
)

const enterPSM = "\r\n+QNBIOTEVENT: \"ENTER PSM\"\r\n"

type staticDialer struct {
	transport modem.Transport
}

func (d staticDialer) Dial(context.Context) (modem.Transport, error) {
	return d.transport, nil
}

type fakeSleeper struct {
	mu        sync.Mutex
	deadlines []time.Time
	onSleep   func(ctx context.Context) error
}

func (s *fakeSleeper) SleepUntil(ctx context.Context, deadline time.Time) error {
	s.mu.Lock()
	s.deadlines = append(s.deadlines, deadline)
	s.mu.Unlock()
	if s.onSleep != nil {
		return s.onSleep(ctx)
	}
	return nil
}

func (s *fakeSleeper) Deadlines() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deadlines)
}

type fakeJournal struct {
	mu      sync.Mutex
	records []journal.Record
}

func (j *fakeJournal) Append(r journal.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, r)
	return nil
}

type fakeResetter struct {
	calls int
}

func (r *fakeResetter) Reset(context.Context) error {
	r.calls++
	return nil
}

type fixedAlarm bool

func (a fixedAlarm) Active() bool { return bool(a) }

// script builds ungated steps named after their commands.
func script(cmds ...string) modem.Script {
	s := make(modem.Script, 0, len(cmds))
	for _, c := range cmds {
		s = append(s, modem.Step{Name: c, Command: c})
	}
	return s
}

// brokerScript opens, connects, publishes and goes back to sleep.
func brokerScript() modem.Script {
	return modem.Script{
		{Name: "open", Command: "qmtopen=0"},
		{Name: "connect", Command: "qmtconn=0", Gate: modem.GateSessionOpen},
		{Name: "publish", Command: `qmtpub=0,0,0,0,"t","%s"`, Gate: modem.GateConnected, Publish: true},
		{Name: "sleep", Command: "qsclk=1"},
	}
}

func testBuilder(d modem.Dialer, s modem.Script) *modem.ConfigBuilder {
	return modem.NewConfigBuilder().
		WithDialer(d).
		WithScript(s).
		WithRegistrationPoll(time.Millisecond).
		WithGatePoll(5 * time.Millisecond).
		WithCertLinePause(time.Millisecond).
		WithSleeper(&fakeSleeper{})
}

func newModem(t *testing.T, b *modem.ConfigBuilder) *modem.Modem {
	t.Helper()
	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	m, err := modem.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	return m
}

type cycleOutcome struct {
	res modem.CycleResult
	err error
}

func runCycle(ctx context.Context, m *modem.Modem) <-chan cycleOutcome {
	done := make(chan cycleOutcome, 1)
	go func() {
		res, err := m.RunCycle(ctx)
		done <- cycleOutcome{res, err}
	}()
	return done
}

func expectWrite(t *testing.T, tt *modem.TestTransport, want string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if got := tt.NextWrite(ctx); got != want {
		t.Fatalf("expected write %q, got %q", want, got)
	}
}

func expectNoWrite(t *testing.T, tt *modem.TestTransport, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if got := tt.NextWrite(ctx); got != "" {
		t.Fatalf("expected no write, got %q", got)
	}
}

func TestModemNew(t *testing.T) {
	t.Run("Initialization sends nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		mockDialer := modem.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)
		NewMockSequence(mockTransport).Close().Build()

		config, err := modem.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		if err != nil {
			t.Errorf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(context.Background(), config)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m == nil {
			t.Fatal("New() should return valid modem on success")
		}
		if s := m.Snapshot(); s != (modem.Session{}) {
			t.Errorf("expected empty session, got %+v", s)
		}

		if err := m.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
		if err := m.Close(); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed on second Close(), got: %v", err)
		}
		if _, err := m.RunCycle(context.Background()); !errors.Is(err, modem.ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed from RunCycle(), got: %v", err)
		}
	})

	t.Run("Dialer error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := modem.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, errors.New("connection failed"))

		config, err := modem.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		if err != nil {
			t.Errorf("unexpected error from Build(): %v", err)
		}

		m, err := modem.New(context.Background(), config)
		if err == nil {
			t.Error("expected error from dialer failure")
		}
		if m != nil {
			t.Error("New() should return nil modem when dialer fails")
		}
	})

	t.Run("ErrNotInitialized when dialer returns no transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := modem.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		config, _ := modem.NewConfigBuilder().WithDialer(mockDialer).Build()
		m, err := modem.New(context.Background(), config)
		if !errors.Is(err, modem.ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized, got: %v", err)
		}
		if m != nil {
			t.Error("New() should return nil modem when no transport is returned")
		}
	})
}

func TestRunCycle(t *testing.T) {
	t.Run("Gated steps wait for broker results", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		seq := NewMockSequence(mockTransport)
		payload := `{"ccid":"","alarm":false,"temperature":"20","volts":"","timestamp":""}`
		gomock.InOrder(seq.
			Registered().
			Command("qmtopen=0", "\r\nOK\r\n\r\n+QMTOPEN: 0,0\r\n").
			Command("qmtconn=0", "\r\nOK\r\n\r\n+QMTCONN: 0,0,0\r\n").
			Command(`qmtpub=0,0,0,0,"t","`+payload+`"`, "\r\nOK\r\n\r\n+QMTPUB: 0,0,0\r\n").
			Command("qsclk=1", "\r\nOK\r\n"+enterPSM).
			Build()...)
		seq.Close()

		sleeper := &fakeSleeper{}
		j := &fakeJournal{}
		m := newModem(t, testBuilder(staticDialer{mockTransport}, brokerScript()).
			WithSleeper(sleeper).
			WithJournal(j).
			WithSleepDuration(time.Minute))
		defer m.Close()

		res, err := m.RunCycle(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if res.Steps != 4 {
			t.Errorf("expected 4 steps, got %d", res.Steps)
		}
		want := modem.Session{Registered: true, SessionOpen: true, Connected: true, PublishAcked: true, LowPower: true}
		if res.Session != want {
			t.Errorf("expected session %+v, got %+v", want, res.Session)
		}
		if got := m.Snapshot(); got != want {
			t.Errorf("expected snapshot %+v, got %+v", want, got)
		}

		deadlines := sleeper.Deadlines()
		if len(deadlines) != 1 || !deadlines[0].Equal(res.SleepUntil) {
			t.Errorf("expected one sleep until %v, got %v", res.SleepUntil, deadlines)
		}
		if d := time.Until(res.SleepUntil); d < 50*time.Second || d > time.Minute {
			t.Errorf("expected wake about a minute from now, got %v", d)
		}

		if len(j.records) != 1 {
			t.Fatalf("expected one journal record, got %d", len(j.records))
		}
		if r := j.records[0]; r.Cycle != 1 || !r.Published || !r.Registered || r.Steps != 4 {
			t.Errorf("unexpected journal record: %+v", r)
		}
	})

	t.Run("Registration is polled until the modem registers", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		seq := NewMockSequence(mockTransport)
		gomock.InOrder(seq.
			Searching().
			Searching().
			Registered().
			Command("qsclk=1", "\r\nOK\r\n"+enterPSM).
			Build()...)
		seq.Close()

		m := newModem(t, testBuilder(staticDialer{mockTransport}, script("qsclk=1")))
		defer m.Close()

		if _, err := m.RunCycle(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ERROR advances by default", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		seq := NewMockSequence(mockTransport)
		gomock.InOrder(seq.
			Registered().
			Error("cbc").
			Command("qsclk=1", "\r\nOK\r\n"+enterPSM).
			Build()...)
		seq.Close()

		m := newModem(t, testBuilder(staticDialer{mockTransport}, script("cbc", "qsclk=1")))
		defer m.Close()

		res, err := m.RunCycle(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Steps != 2 {
			t.Errorf("expected 2 steps, got %d", res.Steps)
		}
	})

	t.Run("Retry policy sends the failed step again", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		seq := NewMockSequence(mockTransport)
		gomock.InOrder(seq.
			Registered().
			Error("cbc").
			Error("cbc").
			OK("cbc").
			Command("qsclk=1", "\r\nOK\r\n"+enterPSM).
			Build()...)
		seq.Close()

		m := newModem(t, testBuilder(staticDialer{mockTransport}, script("cbc", "qsclk=1")).
			WithErrorPolicy(modem.ErrorPolicyRetry).
			WithMaxRetries(2))
		defer m.Close()

		if _, err := m.RunCycle(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Retry policy gives up after MaxRetries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		seq := NewMockSequence(mockTransport)
		gomock.InOrder(seq.
			Registered().
			Error("cbc").
			Error("cbc").
			Build()...)
		seq.Close()

		m := newModem(t, testBuilder(staticDialer{mockTransport}, script("cbc", "qsclk=1")).
			WithErrorPolicy(modem.ErrorPolicyRetry).
			WithMaxRetries(1))
		defer m.Close()

		_, err := m.RunCycle(context.Background())
		if !errors.Is(err, modem.ErrCommandFailed) {
			t.Errorf("expected ErrCommandFailed, got: %v", err)
		}
	})

	t.Run("Fail policy aborts on the first ERROR", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		seq := NewMockSequence(mockTransport)
		gomock.InOrder(seq.
			Registered().
			Error("cbc").
			Build()...)
		seq.Close()

		m := newModem(t, testBuilder(staticDialer{mockTransport}, script("cbc", "qsclk=1")).
			WithErrorPolicy(modem.ErrorPolicyFail))
		defer m.Close()

		_, err := m.RunCycle(context.Background())
		if !errors.Is(err, modem.ErrCommandFailed) {
			t.Errorf("expected ErrCommandFailed, got: %v", err)
		}
	})

	t.Run("Orphan OK while waiting does not advance", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, testBuilder(staticDialer{tt}, brokerScript()[:2]))
		defer m.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done := runCycle(ctx, m)

		expectWrite(t, tt, "at+cereg?")
		tt.SendData("\r\n+CEREG: 1,1\r\n\r\nOK\r\n")
		expectWrite(t, tt, "at+qmtopen=0")
		tt.SendData("\r\nOK\r\n")

		// connect is gated on the session being open
		expectNoWrite(t, tt, 100*time.Millisecond)
		tt.SendData("\r\nOK\r\n\r\nOK\r\n")
		expectNoWrite(t, tt, 100*time.Millisecond)

		tt.SendData("\r\n+QMTOPEN: 0,0\r\n")
		expectWrite(t, tt, "at+qmtconn=0")
		tt.SendData("\r\nOK\r\n\r\nOK\r\n" + enterPSM)

		out := <-done
		if out.err != nil {
			t.Fatalf("unexpected error: %v", out.err)
		}
		if out.res.Steps != 2 {
			t.Errorf("expected 2 steps, got %d", out.res.Steps)
		}
	})

	t.Run("Gate never satisfied keeps waiting until cancelled", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, testBuilder(staticDialer{tt}, brokerScript()[:2]))
		defer m.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := runCycle(ctx, m)

		expectWrite(t, tt, "at+cereg?")
		tt.SendData("\r\n+CEREG: 1,1\r\n\r\nOK\r\n")
		expectWrite(t, tt, "at+qmtopen=0")
		tt.SendData("\r\nOK\r\n\r\n+QMTOPEN: 0,3\r\n")
		expectNoWrite(t, tt, 200*time.Millisecond)

		cancel()
		out := <-done
		if !errors.Is(out.err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", out.err)
		}
		if m.Snapshot().SessionOpen {
			t.Error("session should not be open after a failed open")
		}
	})

	t.Run("Boot marker releases the command in flight", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, testBuilder(staticDialer{tt}, script("cbc", "qsclk=1")))
		defer m.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done := runCycle(ctx, m)

		expectWrite(t, tt, "at+cereg?")
		tt.SendData("\r\n+CEREG: 1,1\r\n\r\nOK\r\n")
		expectWrite(t, tt, "at+cbc")
		tt.SendData("\r\nBROM\r\n")
		expectWrite(t, tt, "at+qsclk=1")
		tt.SendData("\r\nOK\r\n" + enterPSM)

		if out := <-done; out.err != nil {
			t.Fatalf("unexpected error: %v", out.err)
		}
	})

	t.Run("Certificate is streamed on the data prompt", func(t *testing.T) {
		tt := modem.NewTestTransport()
		cert := "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"
		m := newModem(t, testBuilder(staticDialer{tt}, script(`qsslcfg=1,5,"cacert"`)).
			WithCertificate([]byte(cert)))
		defer m.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done := runCycle(ctx, m)

		expectWrite(t, tt, "at+cereg?")
		tt.SendData("\r\n+CEREG: 1,1\r\n\r\nOK\r\n")
		expectWrite(t, tt, `at+qsslcfg=1,5,"cacert"`)
		tt.SendData("> ")

		deadline := time.Now().Add(2 * time.Second)
		for !strings.HasSuffix(tt.Writes(), "\x1a") {
			if time.Now().After(deadline) {
				t.Fatalf("certificate not terminated, wrote %q", tt.Writes())
			}
			time.Sleep(time.Millisecond)
		}
		tt.SendData("\r\nOK\r\n" + enterPSM)

		if out := <-done; out.err != nil {
			t.Fatalf("unexpected error: %v", out.err)
		}
		want := "at+cereg?\r\n" + `at+qsslcfg=1,5,"cacert"` + "\r\n" + cert + "\x1a"
		if got := tt.Writes(); got != want {
			t.Errorf("expected writes %q, got %q", want, got)
		}
	})

	t.Run("Overlong lines are discarded", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, testBuilder(staticDialer{tt}, script("qccid")).
			WithMaxLineLength(32))
		defer m.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done := runCycle(ctx, m)

		expectWrite(t, tt, "at+cereg?")
		tt.SendData("\r\n+CEREG: 1,1\r\n\r\nOK\r\n")
		expectWrite(t, tt, "at+qccid")
		tt.SendData("\r\n+QCCID: " + strings.Repeat("9", 64) + "\r\n\r\nOK\r\n" + enterPSM)

		out := <-done
		if out.err != nil {
			t.Fatalf("unexpected error: %v", out.err)
		}
		if out.res.Session.SIMIdentity != "" {
			t.Errorf("expected overlong identity to be dropped, got %q", out.res.Session.SIMIdentity)
		}
	})

	t.Run("ErrCycleRunning while a cycle is in progress", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, testBuilder(staticDialer{tt}, script("cbc")))
		defer m.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := runCycle(ctx, m)
		expectWrite(t, tt, "at+cereg?")

		if _, err := m.RunCycle(context.Background()); !errors.Is(err, modem.ErrCycleRunning) {
			t.Errorf("expected ErrCycleRunning, got: %v", err)
		}

		cancel()
		<-done
	})

	t.Run("Transport failure ends the cycle", func(t *testing.T) {
		tt := modem.NewTestTransport()
		m := newModem(t, testBuilder(staticDialer{tt}, script("cbc")))

		done := runCycle(context.Background(), m)
		expectWrite(t, tt, "at+cereg?")
		tt.Close()

		select {
		case out := <-done:
			if !errors.Is(out.err, io.EOF) {
				t.Errorf("expected io.EOF, got: %v", out.err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("cycle did not end after transport failure")
		}
		m.Close()
	})
}

func TestModemWithSimulator(t *testing.T) {
	// startSim connects a Modem to a simulated BC66 over an in-memory pipe.
	startSim := func(t *testing.T, peer *sim.Peer, b func(*modem.ConfigBuilder) *modem.ConfigBuilder) *modem.Modem {
		t.Helper()
		host, device := net.Pipe()
		ctx, cancel := context.WithCancel(context.Background())
		served := make(chan struct{})
		go func() {
			defer close(served)
			peer.Serve(ctx, device)
		}()

		m := newModem(t, b(testBuilder(staticDialer{host}, modem.DefaultScript(modem.DefaultBroker))))
		t.Cleanup(func() {
			m.Close()
			cancel()
			<-served
		})
		return m
	}

	t.Run("Full cycle publishes the status report", func(t *testing.T) {
		peer := &sim.Peer{RegisterAfter: 2}
		cert := "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"
		j := &fakeJournal{}
		m := startSim(t, peer, func(b *modem.ConfigBuilder) *modem.ConfigBuilder {
			return b.WithCertificate([]byte(cert)).WithJournal(j).WithAlarm(fixedAlarm(true), true)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		res, err := m.RunCycle(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var want []string
		for range 3 {
			want = append(want, modem.CmdQueryRegistration)
		}
		for _, step := range modem.DefaultScript(modem.DefaultBroker) {
			if step.Publish {
				continue
			}
			want = append(want, step.Command)
		}
		got := slices.DeleteFunc(peer.Commands(), func(c string) bool {
			return strings.HasPrefix(c, "qmtpub=")
		})
		if !slices.Equal(got, want) {
			t.Errorf("expected commands\n%q\ngot\n%q", want, got)
		}

		if string(peer.Certificate()) != cert {
			t.Errorf("expected certificate %q, got %q", cert, peer.Certificate())
		}

		published := peer.Published()
		if len(published) != 1 {
			t.Fatalf("expected one publish, got %d", len(published))
		}
		var report modem.StatusReport
		if err := json.Unmarshal([]byte(published[0]), &report); err != nil {
			t.Fatalf("published payload is not JSON: %v", err)
		}
		wantReport := modem.StatusReport{
			CCID:        "89882280666027595366",
			Alarm:       true,
			Temperature: "20",
			Volts:       "0,78,3802",
			Timestamp:   "2023/03/26,16:32:07GMT-4",
		}
		if report != wantReport {
			t.Errorf("expected report %+v, got %+v", wantReport, report)
		}

		if want := time.Date(2023, 3, 26, 20, 32, 7, 0, time.UTC); !res.Session.ClockTime.Equal(want) {
			t.Errorf("expected network time %v, got %v", want, res.Session.ClockTime)
		}
		if d := res.Clock.Sub(res.Session.ClockTime); d < 0 || d > 5*time.Second {
			t.Errorf("expected the clock to follow network time, got %v", res.Clock)
		}
		if res.Steps != len(modem.DefaultScript(modem.DefaultBroker)) {
			t.Errorf("expected all steps sent, got %d", res.Steps)
		}
		if len(j.records) != 1 || j.records[0].CCID != wantReport.CCID {
			t.Errorf("unexpected journal: %+v", j.records)
		}
	})

	t.Run("Alarm is reported as false unless live", func(t *testing.T) {
		peer := &sim.Peer{}
		m := startSim(t, peer, func(b *modem.ConfigBuilder) *modem.ConfigBuilder {
			return b.WithAlarm(fixedAlarm(true), false)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := m.RunCycle(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		published := peer.Published()
		if len(published) != 1 || !strings.Contains(published[0], `"alarm":false`) {
			t.Errorf("expected placeholder alarm, got %q", published)
		}
	})

	t.Run("Run repeats cycles after one reset", func(t *testing.T) {
		peer := &sim.Peer{}
		resetter := &fakeResetter{}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var sleeps int
		sleeper := &fakeSleeper{onSleep: func(context.Context) error {
			sleeps++
			if sleeps == 2 {
				cancel()
				return ctx.Err()
			}
			return nil
		}}
		m := startSim(t, peer, func(b *modem.ConfigBuilder) *modem.ConfigBuilder {
			return b.WithResetter(resetter).WithSleeper(sleeper)
		})

		err := m.Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
		if resetter.calls != 1 {
			t.Errorf("expected one reset, got %d", resetter.calls)
		}
		if m.Cycles() != 2 {
			t.Errorf("expected 2 cycles, got %d", m.Cycles())
		}
		if n := len(peer.Published()); n != 2 {
			t.Errorf("expected 2 publishes, got %d", n)
		}
	})
}
