package modem

import (
	"fmt"
	"strconv"
)

// CmdQueryRegistration asks for the registration status while the modem is
// not registered. It is sent outside the script.
const CmdQueryRegistration = "cereg?"

// Gate is a session prerequisite that must hold before a step is sent.
type Gate int

const (
	GateNone        Gate = iota
	GateSessionOpen      // broker session opened (+QMTOPEN: x,0)
	GateConnected        // broker connection accepted (+QMTCONN: x,0)
)

func (g Gate) String() string {
	switch g {
	case GateNone:
		return "none"
	case GateSessionOpen:
		return "session-open"
	case GateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Satisfied reports whether the prerequisite holds for s.
func (g Gate) Satisfied(s *Session) bool {
	switch g {
	case GateSessionOpen:
		return s.SessionOpen
	case GateConnected:
		return s.Connected
	default:
		return true
	}
}

// Step is one command of the script, without the "at+" prefix.
type Step struct {
	Name    string
	Command string
	Gate    Gate
	// Publish marks a step whose Command is a format string taking the
	// status report as its only argument.
	Publish bool
}

// Script is the ordered, immutable list of steps of one reporting cycle.
type Script []Step

// Broker locates the MQTT broker the modem publishes to.
type Broker struct {
	Host     string
	Port     int
	ClientID string
	Topic    string
}

// DefaultBroker is the public test broker over TLS.
var DefaultBroker = Broker{
	Host:     "test.mosquitto.org",
	Port:     8883,
	ClientID: "watchible",
	Topic:    "device/state",
}

// DefaultScript is the provisioning and publish sequence for a BC66 module.
func DefaultScript(b Broker) Script {
	return Script{
		{Name: "registration-reports", Command: "cereg=1"},
		{Name: "sleep-off", Command: "qsclk=0"},
		{Name: "clock", Command: "cclk?"},
		{Name: "sim-identity", Command: "qccid"},
		{Name: "battery", Command: "cbc"},
		{Name: "event-reports", Command: "qnbiotevent=1,1"},
		// 5 minutes periodic TAU, 1 minute active time
		{Name: "psm-timers", Command: `cpsms=1,,,"10100101","00100001"`},
		{Name: "ca-certificate", Command: `qsslcfg=1,5,"cacert"`},
		{Name: "security-level", Command: `qsslcfg=1,5,"seclevel",1`},
		{Name: "tls", Command: `qmtcfg="ssl",0,1,1,5`},
		{Name: "session-open", Command: fmt.Sprintf(`qmtopen=0,%s,%d`, strconv.Quote(b.Host), b.Port)},
		{Name: "connect", Command: fmt.Sprintf(`qmtconn=0,%s`, strconv.Quote(b.ClientID)), Gate: GateSessionOpen},
		{Name: "publish", Command: fmt.Sprintf(`qmtpub=0,0,0,0,%s,"%%s"`, strconv.Quote(b.Topic)), Gate: GateConnected, Publish: true},
		{Name: "session-close", Command: "qmtclose=0"},
		{Name: "sleep-on", Command: "qsclk=1"},
	}
}
