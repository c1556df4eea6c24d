package at

import "strings"

// Topic names a status line family. Each variant corresponds to one row of
// the status table; adding a topic means adding a row and a handler.
type Topic int

const (
	TopicRegistration Topic = iota // +CEREG
	TopicSIMIdentity               // +QCCID
	TopicSessionOpen               // +QMTOPEN
	TopicConnected                 // +QMTCONN
	TopicPublishAck                // +QMTPUB
	TopicSessionClose              // +QMTCLOSE
	TopicSessionStat               // +QMTSTAT
	TopicReceive                   // +QMTRECV
	TopicBattery                   // +CBC
	TopicClock                     // +CCLK
	TopicPowerEvent                // +QNBIOTEVENT
	TopicIPAddress                 // +IP
	TopicPDPContext                // +CGDCONT
)

var topicNames = [...]string{
	TopicRegistration: "registration",
	TopicSIMIdentity:  "sim-identity",
	TopicSessionOpen:  "session-open",
	TopicConnected:    "connected",
	TopicPublishAck:   "publish-ack",
	TopicSessionClose: "session-close",
	TopicSessionStat:  "session-stat",
	TopicReceive:      "receive",
	TopicBattery:      "battery",
	TopicClock:        "clock",
	TopicPowerEvent:   "power-event",
	TopicIPAddress:    "ip-address",
	TopicPDPContext:   "pdp-context",
}

func (t Topic) String() string {
	if t < 0 || int(t) >= len(topicNames) {
		return "unknown"
	}
	return topicNames[t]
}

// statusTable is searched in order; the first prefix found in the line wins.
var statusTable = []struct {
	prefix string
	topic  Topic
}{
	{"+CEREG", TopicRegistration},
	{"+QCCID", TopicSIMIdentity},
	{"+QMTOPEN", TopicSessionOpen},
	{"+QMTCONN", TopicConnected},
	{"+QMTPUB", TopicPublishAck},
	{"+QMTCLOSE", TopicSessionClose},
	{"+QMTSTAT", TopicSessionStat},
	{"+QMTRECV", TopicReceive},
	{"+CBC", TopicBattery},
	{"+CCLK", TopicClock},
	{"+QNBIOTEVENT", TopicPowerEvent},
	{"+IP", TopicIPAddress},
	{"+CGDCONT", TopicPDPContext},
}

// ParseStatus matches a status line against the status table and returns the
// topic and the argument text, which starts two characters after the colon
// (the colon and one space are skipped). ok is false when no prefix matches
// or the line has no colon.
func ParseStatus(line string) (topic Topic, arg string, ok bool) {
	for _, row := range statusTable {
		if !strings.Contains(line, row.prefix) {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return 0, "", false
		}
		start := min(colon+2, len(line))
		return row.topic, line[start:], true
	}
	return 0, "", false
}
