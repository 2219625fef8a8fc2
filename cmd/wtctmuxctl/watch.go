package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loppo-llc/wtctmux/internal/reload"
	"github.com/loppo-llc/wtctmux/internal/tmuxmodel"
	"github.com/loppo-llc/wtctmux/wtctmux"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to tmux and print every tracked event until interrupted",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	core, err := newCore(func(cfg *wtctmux.Config) {
		cfg.Callbacks = watchCallbacks()
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := core.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer core.Disconnect()

	fmt.Println("watching — press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

func watchCallbacks() reload.Callbacks {
	return reload.Callbacks{
		NewSession:    func(s *tmuxmodel.Session) error { fmt.Printf("+session $%d %q\n", s.ID, s.Name); return nil },
		SessionClosed: func(s *tmuxmodel.Session) error { fmt.Printf("-session $%d %q\n", s.ID, s.Name); return nil },
		SessionWindowChanged: func(s *tmuxmodel.Session) error {
			fmt.Printf("~session $%d active-window=@%d\n", s.ID, s.ActiveWindow)
			return nil
		},

		NewWindow:    func(w *tmuxmodel.Window) error { fmt.Printf("+window @%d\n", w.ID); return nil },
		WindowClosed: func(w *tmuxmodel.Window) error { fmt.Printf("-window @%d\n", w.ID); return nil },
		WindowPaneChanged: func(w *tmuxmodel.Window) error {
			fmt.Printf("~window @%d active-pane=%%%d\n", w.ID, w.ActivePane)
			return nil
		},

		NewPane:    func(p *tmuxmodel.Pane) error { fmt.Printf("+pane %%%d window=@%d\n", p.ID, p.WindowID); return nil },
		PaneClosed: func(p *tmuxmodel.Pane) error { fmt.Printf("-pane %%%d\n", p.ID); return nil },
		PaneResized: func(p *tmuxmodel.Pane) error {
			fmt.Printf("~pane %%%d resized %dx%d\n", p.ID, p.W, p.H)
			return nil
		},
		PaneModeChanged: func(p *tmuxmodel.Pane) error {
			fmt.Printf("~pane %%%d mode=%v\n", p.ID, p.InMode)
			return nil
		},

		ClientSessionChanged: func(c *tmuxmodel.Client) error {
			fmt.Printf("~client %q session=$%d\n", c.Name, c.AttachedSession)
			return nil
		},
	}
}
