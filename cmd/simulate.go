// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/spf13/cobra"
)

var (
	simulateValues map[string]string
	simulateOnce   bool
)

// simulatePollInterval bounds how long the device blocks on a read before
// checking for shutdown.
const simulatePollInterval = 100 * time.Millisecond

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emulate the controller's configuration mode on a serial port",
	Long: `Emulate the controller's configuration mode on a serial port.

The simulated controller answers the sync byte, then serves read, write and
reset commands with the same status codes as the firmware. After a reset it
waits for the next sync, keeping the stored values, unless --once is given.

Connect pidconf to the other end of a null-modem pair (for example two ports
created with socat) to exercise the client without hardware.

Example:
  pidconf simulate --port /dev/pts/4 --set kp=1.5 --set recv-samples=5`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringToStringVar(&simulateValues, "set", nil, "Initial parameter value as name=value (repeatable)")
	simulateCmd.Flags().BoolVar(&simulateOnce, "once", false, "Exit after the first reset command")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		return fmt.Errorf("--port is required for simulate")
	}
	logger := newLogger(cfg.LogLevel)

	dev := pidconf.NewDevice(logger)
	if err := presetDevice(dev, simulateValues); err != nil {
		return err
	}

	conn, err := OpenSerialConnection(cfg.Port, cfg.Baud, simulatePollInterval)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("pidconf - Simulated Controller\n")
	fmt.Printf("Serial: %s @ %d baud\n", cfg.Port, cfg.Baud)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	for {
		if err := dev.Serve(ctx, conn); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Printf("Reset received. Stored values:\n")
		printDeviceValues(dev)
		if simulateOnce {
			return nil
		}
	}
}

// presetDevice applies name=value pairs in a stable order
func presetDevice(dev *pidconf.Device, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := strconv.ParseFloat(values[name], 64)
		if err != nil {
			return fmt.Errorf("--set %s: %w", name, pidconf.ErrInvalidValue)
		}
		if err := dev.Set(name, v); err != nil {
			return fmt.Errorf("--set %s: %w", name, err)
		}
	}
	return nil
}

func printDeviceValues(dev *pidconf.Device) {
	for _, p := range pidconf.Parameters() {
		v, err := dev.Value(p.Name)
		if err != nil {
			continue
		}
		fmt.Printf("  %-13s %s\n", p.Name, pidconf.FormatValue(p, v))
	}
}
