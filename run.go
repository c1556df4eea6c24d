package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"i4.energy/across/watchible/gpio"
	"i4.energy/across/watchible/journal"
	"i4.energy/across/watchible/modem"
	"i4.energy/across/watchible/rtc"
)

func init() {
	flags := rootCmd.Flags()
	flags.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flags.Int("baud-rate", 115200, "Baud rate for serial communication")
	flags.String("url", "", "WebSocket serial bridge URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth on the bridge")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	flags.String("bind-address", "0.0.0.0:8080", "Bind address for the status server, empty disables it")
	flags.String("cert", "", "CA certificate uploaded to the modem for the broker session")
	flags.String("broker-host", modem.DefaultBroker.Host, "MQTT broker host")
	flags.Int("broker-port", modem.DefaultBroker.Port, "MQTT broker port")
	flags.String("client-id", modem.DefaultBroker.ClientID, "MQTT client id of the device")
	flags.String("topic", modem.DefaultBroker.Topic, "MQTT topic of the status report")
	flags.String("gpio-chip", "", "GPIO chip holding the sensor, indicator and power key lines")
	flags.Int("sensor-line", 17, "Sensor input line offset")
	flags.Int("indicator-line", 27, "Indicator output line offset")
	flags.Int("power-key-line", 22, "Modem power key line offset, -1 if not wired")
	flags.String("journal", "", "Append a CBOR record of every cycle to this file")
	flags.String("error-policy", "advance", "What to do when the modem answers ERROR (advance, retry, fail)")
	flags.Int("max-retries", 3, "Retries per step with --error-policy=retry")
	flags.Duration("sleep", 240*time.Second, "Sleep between cycles once the modem is in power save")
	flags.Bool("live-alarm", false, "Report the sensor state instead of a constant false")
	flags.Bool("system-clock", false, "Set the host clock from network time (needs CAP_SYS_TIME)")
}

func runRun(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(cmd.Flags()))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	logger := newLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialer, err := newDialer(config)
	if err != nil {
		logger.Error("Failed to set up modem connection", "error", err)
		return err
	}

	builder := modem.NewConfigBuilder().
		WithDialer(dialer).
		WithScript(modem.DefaultScript(config.Broker)).
		WithErrorPolicy(config.ErrorPolicy).
		WithMaxRetries(config.MaxRetries).
		WithSleepDuration(config.SleepDuration).
		WithLogger(logger.With("component", "modem"))

	if config.CertPath != "" {
		cert, err := os.ReadFile(config.CertPath)
		if err != nil {
			logger.Error("Failed to read certificate", "error", err)
			return err
		}
		builder.WithCertificate(cert)
	}

	if config.SystemClock {
		builder.WithClock(rtc.System{})
	}

	if config.JournalPath != "" {
		j, err := journal.Open(config.JournalPath)
		if err != nil {
			logger.Error("Failed to open journal", "error", err)
			return err
		}
		defer j.Close()
		builder.WithJournal(j)
	}

	if config.GPIOChip != "" {
		chip, err := gpio.Open(config.GPIOChip, gpio.Lines{
			Sensor:    config.SensorLine,
			Indicator: config.IndicatorLine,
			PowerKey:  config.PowerKeyLine,
		}, logger.With("component", "gpio"))
		if err != nil {
			logger.Error("Failed to open GPIO chip", "error", err)
			return err
		}
		defer chip.Close()
		builder.WithAlarm(chip.Alarm, config.LiveAlarm)
		if chip.PowerKey != nil {
			builder.WithResetter(chip.PowerKey)
		}
	}

	modemConfig, err := builder.Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		return err
	}

	m, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to create modem", "error", err)
		return err
	}
	defer func() {
		logger.Info("Closing modem connection")
		if err := m.Close(); err != nil {
			logger.Error("Failed to close modem", "error", err)
		}
	}()

	logger.Info("Starting watchible", "broker", config.Broker.Host, "topic", config.Broker.Topic, "errorPolicy", config.ErrorPolicy)

	var httpServer *http.Server
	if config.BindAddress != "" {
		httpServer = &http.Server{
			Addr: config.BindAddress,
			Handler: &Server{
				Logger: logger.With("component", "server"),
				Modem:  m,
			},
		}
		go func() {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed", "error", err)
				stop()
			}
		}()
	}

	err = m.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Received shutdown signal")
		err = nil
	} else if err != nil {
		logger.Error("Modem stopped", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Closing HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to gracefully shutdown server", "error", err)
		}
	}
	return err
}

func newDialer(config *Config) (modem.Dialer, error) {
	if config.WebSocketURL == "" {
		mode := modem.DefaultMode
		mode.BaudRate = config.BaudRate
		return modem.SerialDialer{PortName: config.SerialPort, Mode: &mode}, nil
	}

	d := modem.WebSocketDialer{
		URL:        config.WebSocketURL,
		Username:   config.WebSocketUsername,
		SkipVerify: config.SkipVerify,
	}
	if d.Username != "" {
		password, err := getPassword()
		if err != nil {
			return nil, fmt.Errorf("bridge password: %w", err)
		}
		d.Password = password
	}
	return d, nil
}
