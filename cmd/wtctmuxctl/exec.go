package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:                "exec -- CMD [ARGS...]",
	Short:              "Run one tmux command through the façade and print its reply",
	DisableFlagParsing: true,
	Args:               cobra.MinimumNArgs(1),
	RunE:               runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	// DisableFlagParsing means the persistent flags above weren't
	// parsed for us; cobra still lets us re-parse them out of args
	// manually, but the common case is `wtctmuxctl exec -- list-sessions`
	// with no flags, so args here is already the tmux command.
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		return fmt.Errorf("exec requires a tmux command")
	}

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

	out, err := core.Exec(args)
	if err != nil {
		return fmt.Errorf("exec %v: %w", args, err)
	}
	os.Stdout.Write(out)
	return nil
}
