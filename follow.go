package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"i4.energy/across/watchible/modem"
	"i4.energy/across/watchible/monitor"
)

var (
	monitorBroker     string
	monitorTopic      string
	monitorClientID   string
	monitorUsername   string
	monitorSkipVerify bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow status reports on the broker",
	Long: `Subscribe to the status topic and print every report devices publish,
one JSON document per line on stdout.

The broker password is read from the MQTT_PASSWORD environment variable.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	defaultBroker := fmt.Sprintf("ssl://%s:%d", modem.DefaultBroker.Host, modem.DefaultBroker.Port)
	monitorCmd.Flags().StringVar(&monitorBroker, "broker", defaultBroker, "Broker URL (tcp://, ssl://, ws://)")
	monitorCmd.Flags().StringVar(&monitorTopic, "topic", modem.DefaultBroker.Topic, "Topic to follow, wildcards allowed")
	monitorCmd.Flags().StringVar(&monitorClientID, "client-id", "watchible-monitor", "MQTT client id")
	monitorCmd.Flags().StringVar(&monitorUsername, "username", "", "MQTT username")
	monitorCmd.Flags().BoolVar(&monitorSkipVerify, "no-ssl-verify", false, "Skip TLS certificate verification")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logger := newLogger(logLevel).With("component", "monitor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	mon := monitor.New(monitor.Config{
		Broker:     monitorBroker,
		ClientID:   monitorClientID,
		Username:   monitorUsername,
		Password:   os.Getenv("MQTT_PASSWORD"),
		Topic:      monitorTopic,
		SkipVerify: monitorSkipVerify,
	}, func(r monitor.Report) {
		logger.Debug("Status report", "topic", r.Topic, "ccid", r.CCID, "alarm", r.Alarm)
		if err := enc.Encode(r); err != nil {
			logger.Error("Failed to print report", "error", err)
		}
	}, logger)

	err := mon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
