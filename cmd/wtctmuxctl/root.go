package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loppo-llc/wtctmux/internal/wtclog"
	"github.com/loppo-llc/wtctmux/wtctmux"
)

var version = "0.1.0"

var (
	flagBinFile    string
	flagSocketName string
	flagSocketPath string
	flagConfigFile string
	flagTOMLConfig string
	flagTimeoutMS  int
	flagWidth      int
	flagHeight     int
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "wtctmuxctl",
	Short:         "Manual-test harness for the wtctmux control-mode tracker",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBinFile, "bin", "", "tmux executable path (default: /usr/bin/tmux, /opt/homebrew/bin/tmux on macOS)")
	pf.StringVar(&flagSocketName, "socket-name", "", "tmux -L socket name")
	pf.StringVar(&flagSocketPath, "socket-path", "", "tmux -S socket path (overrides socket-name)")
	pf.StringVar(&flagConfigFile, "tmux-config", "", "tmux -f config file")
	pf.StringVar(&flagTOMLConfig, "config", "", "wtctmuxctl config.toml path (its non-zero values override the flags above)")
	pf.IntVar(&flagTimeoutMS, "timeout-ms", 0, "bounded-wait ceiling in milliseconds (0: default)")
	pf.IntVar(&flagWidth, "width", 0, "control CC viewport width (0: default)")
	pf.IntVar(&flagHeight, "height", 0, "control CC viewport height (0: default)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(connectCmd, execCmd, watchCmd)
}

// Execute runs the root command and returns a process exit code,
// mirroring gastown's cmd/gt os.Exit(cmd.Execute()) convention
// (adapted since our root command returns error, not an int).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wtctmuxctl:", err)
		return 1
	}
	return 0
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return wtclog.Component(logger, "wtctmuxctl")
}

// newCore builds a wtctmux.Config from persistent flags, optionally
// merging a TOML file over it (flags set the baseline, and every field
// the file sets to a non-zero value replaces the flag's value — that is
// wtctmux.LoadConfigFile's merge direction), and constructs the façade.
// It does not Connect.
func newCore(cb ...func(*wtctmux.Config)) (*wtctmux.Core, error) {
	cfg := wtctmux.Config{
		Logger:     newLogger(),
		BinFile:    flagBinFile,
		SocketName: flagSocketName,
		SocketPath: flagSocketPath,
		ConfigFile: flagConfigFile,
		Timeout:    time.Duration(flagTimeoutMS) * time.Millisecond,
		Width:      flagWidth,
		Height:     flagHeight,
	}
	for _, f := range cb {
		f(&cfg)
	}

	if flagTOMLConfig != "" {
		merged, err := wtctmux.LoadConfigFile(flagTOMLConfig, cfg)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = merged
	}

	return wtctmux.New(cfg), nil
}
