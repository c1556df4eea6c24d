package modem

import "encoding/json"

// StatusReport is the JSON document published once per cycle.
type StatusReport struct {
	CCID        string `json:"ccid"`
	Alarm       bool   `json:"alarm"`
	Temperature string `json:"temperature"`
	Volts       string `json:"volts"`
	Timestamp   string `json:"timestamp"`
}

// NewStatusReport fills a report from the session.
func NewStatusReport(s *Session, alarm bool, temperature string) StatusReport {
	return StatusReport{
		CCID:        s.SIMIdentity,
		Alarm:       alarm,
		Temperature: temperature,
		Volts:       s.Battery,
		Timestamp:   s.Clock,
	}
}

// Encode renders the report as compact JSON.
func (r StatusReport) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
