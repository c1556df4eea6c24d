// Package monitor follows the status reports devices publish to the broker.
package monitor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"i4.energy/across/watchible/modem"
)

// ErrEmptyPayload is returned by Decode for a message without content.
var ErrEmptyPayload = errors.New("empty payload")

// Config locates the broker and the status topic.
type Config struct {
	// Broker is a paho broker URL, e.g. "ssl://test.mosquitto.org:8883".
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic may contain MQTT wildcards to follow several devices.
	Topic string
	QoS   byte
	// SkipVerify disables TLS certificate verification for ssl:// brokers.
	SkipVerify bool
}

// Report is a decoded status report and where it came from.
type Report struct {
	modem.StatusReport
	Topic    string
	Retained bool
	Received time.Time
}

// Handler receives every decoded report. It runs on the paho callback
// goroutine and must not block.
type Handler func(Report)

type Monitor struct {
	config Config
	handle Handler
	logger *slog.Logger
	now    func() time.Time
}

func New(config Config, handle Handler, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		config: config,
		handle: handle,
		logger: logger,
		now:    time.Now,
	}
}

// Run connects, subscribes on every (re)connect and blocks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.config.Broker)
	opts.SetClientID(m.config.ClientID)
	if m.config.Username != "" {
		opts.SetUsername(m.config.Username)
		opts.SetPassword(m.config.Password)
	}
	if m.config.SkipVerify {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logger.Warn("Broker connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		m.logger.Info("Connected to broker, subscribing", "topic", m.config.Topic)
		if token := c.Subscribe(m.config.Topic, m.config.QoS, m.onMessage); token.Wait() && token.Error() != nil {
			m.logger.Error("Subscribe failed", "topic", m.config.Topic, "error", token.Error())
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", m.config.Broker, err)
	}

	<-ctx.Done()
	client.Disconnect(500)
	return ctx.Err()
}

func (m *Monitor) onMessage(_ mqtt.Client, msg mqtt.Message) {
	report, err := Decode(msg.Payload())
	if err != nil {
		m.logger.Warn("Ignoring status message", "topic", msg.Topic(), "error", err)
		return
	}
	m.handle(Report{
		StatusReport: report,
		Topic:        msg.Topic(),
		Retained:     msg.Retained(),
		Received:     m.now(),
	})
}

// Decode parses a status report payload.
func Decode(payload []byte) (modem.StatusReport, error) {
	var r modem.StatusReport
	if len(payload) == 0 {
		return r, ErrEmptyPayload
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("decode status report: %w", err)
	}
	return r, nil
}
