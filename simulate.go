package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"i4.energy/across/watchible/sim"
)

var (
	simRegisterAfter int
	simCCID          string
	simClock         string
	simBattery       string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate a BC66 modem on a pseudo-terminal",
	Long: `Open a pseudo-terminal and answer the reporting script on it the way a
BC66 module does. Point another watchible instance at the printed device
with --serial-port to run full cycles without hardware.`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	simCmd.Flags().IntVar(&simRegisterAfter, "register-after", 2, "Registration queries answered as searching")
	simCmd.Flags().StringVar(&simCCID, "ccid", "", "SIM identity reported by +QCCID")
	simCmd.Flags().StringVar(&simClock, "clock", "", "Network time reported by +CCLK")
	simCmd.Flags().StringVar(&simBattery, "battery", "", "Battery report of +CBC")
	rootCmd.AddCommand(simCmd)
}

func runSim(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logger := newLogger(logLevel).With("component", "sim")

	ptmx, tty, err := pty.Open()
	if err != nil {
		return fmt.Errorf("open pseudo-terminal: %w", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	// The client side must see bytes exactly as written, without echo or
	// newline translation.
	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		return fmt.Errorf("set raw mode on %s: %w", tty.Name(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stdout, tty.Name())
	logger.Info("Simulated modem ready", "device", tty.Name(), "registerAfter", simRegisterAfter)

	peer := &sim.Peer{
		RegisterAfter: simRegisterAfter,
		CCID:          simCCID,
		Clock:         simClock,
		Battery:       simBattery,
		Logger:        logger,
	}
	err = peer.Serve(ctx, ptmx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
