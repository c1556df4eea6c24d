package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"i4.energy/across/watchible/modem"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the status server listens on (e.g. "0.0.0.0:8080").
	// Empty disables the server.
	BindAddress string
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// WebSocketURL reaches the modem through a serial bridge instead of a local port
	WebSocketURL string
	// WebSocketUsername enables HTTP Basic auth on the bridge
	WebSocketUsername string
	// SkipVerify disables TLS verification for wss:// bridges and ssl:// brokers
	SkipVerify bool
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string

	// CertPath is the CA certificate uploaded to the modem for the broker TLS session
	CertPath string
	// Broker is where the modem publishes the status report
	Broker modem.Broker

	// GPIOChip is the character device holding the alarm lines. Empty runs
	// without alarm input and without power-cycling the modem.
	GPIOChip      string
	SensorLine    int
	IndicatorLine int
	PowerKeyLine  int

	// JournalPath is the CBOR journal of completed cycles. Empty disables it.
	JournalPath string

	ErrorPolicy   modem.ErrorPolicy
	MaxRetries    int
	SleepDuration time.Duration
	// LiveAlarm reports the sensor state instead of the constant false
	LiveAlarm bool
	// SystemClock sets the host clock from network time
	SystemClock bool
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.Broker = modem.DefaultBroker
		c.SensorLine = 17
		c.IndicatorLine = 27
		c.PowerKeyLine = 22
		c.ErrorPolicy = modem.ErrorPolicyAdvance
		c.MaxRetries = 3
		c.SleepDuration = 240 * time.Second
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr, ok := os.LookupEnv("BIND_ADDRESS"); ok {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if url := os.Getenv("WS_URL"); url != "" {
			c.WebSocketURL = url
		}

		if user := os.Getenv("WS_USERNAME"); user != "" {
			c.WebSocketUsername = user
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if cert := os.Getenv("CERT_PATH"); cert != "" {
			c.CertPath = cert
		}

		if host := os.Getenv("BROKER_HOST"); host != "" {
			c.Broker.Host = host
		}

		if port := os.Getenv("BROKER_PORT"); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				c.Broker.Port = p
			}
		}

		if id := os.Getenv("CLIENT_ID"); id != "" {
			c.Broker.ClientID = id
		}

		if topic := os.Getenv("TOPIC"); topic != "" {
			c.Broker.Topic = topic
		}

		if chip := os.Getenv("GPIO_CHIP"); chip != "" {
			c.GPIOChip = chip
		}

		if path := os.Getenv("JOURNAL_PATH"); path != "" {
			c.JournalPath = path
		}

		if policy := os.Getenv("ERROR_POLICY"); policy != "" {
			p, err := parseErrorPolicy(policy)
			if err != nil {
				return err
			}
			c.ErrorPolicy = p
		}

		if sleep := os.Getenv("SLEEP_DURATION"); sleep != "" {
			if d, err := time.ParseDuration(sleep); err == nil {
				c.SleepDuration = d
			}
		}

		if live := os.Getenv("LIVE_ALARM"); live != "" {
			if b, err := strconv.ParseBool(live); err == nil {
				c.LiveAlarm = b
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags. Only flags set on
// the command line are applied.
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *pflag.Flag) {
			value := f.Value.String()
			switch f.Name {
			case "bind-address":
				c.BindAddress = value
			case "serial-port":
				c.SerialPort = value
			case "baud-rate":
				if b, err := strconv.Atoi(value); err == nil {
					c.BaudRate = b
				}
			case "url":
				c.WebSocketURL = value
			case "username":
				c.WebSocketUsername = value
			case "no-ssl-verify":
				c.SkipVerify = value == "true"
			case "log-level":
				c.LogLevel = value
			case "cert":
				c.CertPath = value
			case "broker-host":
				c.Broker.Host = value
			case "broker-port":
				if p, err := strconv.Atoi(value); err == nil {
					c.Broker.Port = p
				}
			case "client-id":
				c.Broker.ClientID = value
			case "topic":
				c.Broker.Topic = value
			case "gpio-chip":
				c.GPIOChip = value
			case "sensor-line":
				c.SensorLine, _ = strconv.Atoi(value)
			case "indicator-line":
				c.IndicatorLine, _ = strconv.Atoi(value)
			case "power-key-line":
				c.PowerKeyLine, _ = strconv.Atoi(value)
			case "journal":
				c.JournalPath = value
			case "error-policy":
				var p modem.ErrorPolicy
				if p, err = parseErrorPolicy(value); err == nil {
					c.ErrorPolicy = p
				}
			case "max-retries":
				if n, err := strconv.Atoi(value); err == nil {
					c.MaxRetries = n
				}
			case "sleep":
				if d, err := time.ParseDuration(value); err == nil {
					c.SleepDuration = d
				}
			case "live-alarm":
				c.LiveAlarm = value == "true"
			case "system-clock":
				c.SystemClock = value == "true"
			}
		})
		return err
	}
}

func parseErrorPolicy(s string) (modem.ErrorPolicy, error) {
	for _, p := range []modem.ErrorPolicy{modem.ErrorPolicyAdvance, modem.ErrorPolicyRetry, modem.ErrorPolicyFail} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown error policy %q (advance, retry, fail)", s)
}
