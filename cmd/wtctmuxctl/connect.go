package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loppo-llc/wtctmux/wtctmux"
)

var connectDwell time.Duration

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to tmux, print a snapshot of the tracked state, then disconnect",
	RunE:  runConnect,
}

func init() {
	connectCmd.Flags().DurationVar(&connectDwell, "dwell", 500*time.Millisecond, "time to let the event loop settle before snapshotting")
}

func runConnect(cmd *cobra.Command, args []string) error {
	core, err := newCore()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := core.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer core.Disconnect()

	select {
	case <-time.After(connectDwell):
	case <-ctx.Done():
		return nil
	}

	printSnapshot(core)
	return nil
}

func printSnapshot(core *wtctmux.Core) {
	fmt.Printf("sessions: %d\n", core.SessionCount())
	for _, s := range core.Sessions() {
		fmt.Printf("  $%d %q active-window=@%d windows=%v\n", s.ID, s.Name, s.ActiveWindow, s.Windows)
	}
	for _, w := range core.Windows() {
		fmt.Printf("  @%d panes=%d active-pane=%%%d\n", w.ID, w.PaneCount, w.ActivePane)
	}
	for _, p := range core.Panes() {
		fmt.Printf("  %%%d window=@%d active=%v %dx%d@(%d,%d)\n", p.ID, p.WindowID, p.Active, p.W, p.H, p.X, p.Y)
	}
	for _, c := range core.Clients() {
		fmt.Printf("  client %q session=$%d\n", c.Name, c.AttachedSession)
	}
}
