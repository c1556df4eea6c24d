package modem

import "time"

// Session is everything learned from the modem during one reporting cycle.
//
// A Session is owned by the goroutine running the cycle. Each field is written
// by exactly one status handler (see Dispatcher) and only in response to a
// recognised status line; other goroutines read copies obtained through
// Modem.Snapshot.
type Session struct {
	// Registered is written by the +CEREG handler.
	Registered bool `json:"registered"`
	// SIMIdentity is written by the +QCCID handler.
	SIMIdentity string `json:"ccid"`
	// Battery is written by the +CBC handler.
	Battery string `json:"battery"`
	// Clock and ClockTime are written by the +CCLK handler.
	Clock     string    `json:"clock"`
	ClockTime time.Time `json:"clockTime"`
	// SessionOpen is written by the +QMTOPEN and +QMTCLOSE handlers.
	SessionOpen bool `json:"sessionOpen"`
	// Connected is written by the +QMTCONN and +QMTCLOSE handlers.
	Connected bool `json:"connected"`
	// PublishAcked is written by the +QMTPUB handler.
	PublishAcked bool `json:"publishAcked"`
	// LowPower is written by the +QNBIOTEVENT handler.
	LowPower bool `json:"lowPower"`
	// IPAddress is written by the +IP handler.
	IPAddress string `json:"ip"`
}
