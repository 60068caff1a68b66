package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"libraquant/internal/domain"
	"libraquant/internal/utils"
)

func newLoginCmd() *cobra.Command {
	var phone, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with your registered phone number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("LIBRA_PASSWORD")
			}
			session, err := rt.terminal.Login(cmd.Context(), phone, password)
			if err != nil {
				return fmt.Errorf("%s", domain.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (admin=%t), session valid until %s IST\n",
				session.User.Name, session.User.IsAdmin,
				utils.GetMarketTime(session.ExpiresAt(rt.terminal.SessionTTL())).Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "10 digit phone number")
	cmd.Flags().StringVar(&password, "password", "", "password (default $LIBRA_PASSWORD)")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.terminal.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.resume(cmd.Context())
			if err != nil {
				return err
			}
			deviceID, err := rt.terminal.DeviceID(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Name\t%s\n", session.User.Name)
			fmt.Fprintf(w, "Phone\t%s\n", session.User.PhoneNumber)
			fmt.Fprintf(w, "Admin\t%t\n", session.User.IsAdmin)
			if session.User.ExpiryDate != "" {
				fmt.Fprintf(w, "Plan expires\t%s\n", session.User.ExpiryDate)
			}
			fmt.Fprintf(w, "Session ends\t%s IST\n",
				utils.GetMarketTime(session.ExpiresAt(rt.terminal.SessionTTL())).Format("2006-01-02 15:04"))
			fmt.Fprintf(w, "Device\t%s\n", deviceID)
			return w.Flush()
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the latest signals and print the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.resume(cmd.Context()); err != nil {
				return err
			}
			engine, err := rt.terminal.Engine()
			if err != nil {
				return err
			}
			// Restore already ran the initial sync; report its outcome
			status := engine.Status()
			if status.Connection == domain.ConnError {
				fmt.Fprintf(cmd.OutOrStdout(), "! %s\n\n", domain.UserMessage(status.LastError))
			}

			snap, err := rt.terminal.Dashboard()
			if err != nil {
				return err
			}
			printSignals(cmd.OutOrStdout(), snap.Signals)
			fmt.Fprintln(cmd.OutOrStdout())
			printWatchlist(cmd.OutOrStdout(), snap.Watchlist)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing and print alerts until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.resume(cmd.Context()); err != nil {
				return err
			}
			engine, err := rt.terminal.Engine()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			engine.OnStatusChange(func(s domain.SyncStatus) {
				if s.Connection == domain.ConnError {
					rt.notifier.printf("! %s\n", domain.UserMessage(s.LastError))
				}
			})
			fmt.Fprintf(out, "Watching for signal changes every %s, Ctrl+C to stop\n", rt.cfg.Sheet.PollInterval)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the desk's track record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.resume(cmd.Context()); err != nil {
				return err
			}
			stats, err := rt.terminal.Stats()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Closed trades\t%d\n", stats.TotalTrades)
			fmt.Fprintf(w, "Win rate\t%.1f%%\n", stats.WinRate)
			fmt.Fprintf(w, "Accuracy\t%.1f%%\n", stats.Accuracy)
			fmt.Fprintf(w, "Net points\t%+.2f\n", stats.NetPoints)
			fmt.Fprintf(w, "Estimated P&L\t%s\n", domain.FormatRupees(stats.EstimatedPnL))
			return w.Flush()
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <signal-id>",
		Short: "Ask the analyst for a read of one signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.resume(cmd.Context()); err != nil {
				return err
			}
			text, err := rt.terminal.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show this device's id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deviceID, err := rt.terminal.DeviceID(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device: %s\n", deviceID)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <phone>",
		Short: "Release a subscriber's device lock (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.resume(cmd.Context()); err != nil {
				return err
			}
			if err := rt.terminal.ResetDevice(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device binding for %s reset\n", args[0])
			return nil
		},
	})
	return cmd
}

func newSoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sound [on|off]",
		Short:     "Show or set the alert bell",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				switch args[0] {
				case "on", "off":
					if err := rt.terminal.SetSoundEnabled(ctx, args[0] == "on"); err != nil {
						return err
					}
				default:
					return fmt.Errorf("expected on or off, got %q", args[0])
				}
			}
			on, err := rt.terminal.SoundEnabled(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert bell: %t\n", on)
			return nil
		},
	}
}

func printSignals(out io.Writer, signals []domain.Signal) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCALL\tENTRY\tSL\tTARGETS\tSTATUS\tPOINTS")
	for _, s := range signals {
		targets := make([]string, len(s.Targets))
		for i, t := range s.Targets {
			targets[i] = fmt.Sprintf("%.2f", t)
		}
		points := "-"
		if s.PnLPoints != nil {
			points = fmt.Sprintf("%+.2f", *s.PnLPoints)
		}
		fmt.Fprintf(w, "%s\t%s %s %s %s\t%.2f\t%.2f\t%s\t%s\t%s\n",
			s.ID, s.Action, s.Instrument, s.Symbol, s.Type,
			s.EntryPrice, s.StopLoss, strings.Join(targets, "/"), s.Status.Label(), points)
	}
	_ = w.Flush()
}

func printWatchlist(out io.Writer, items []domain.WatchlistItem) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\tAT")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%.2f\t%+.2f%%\t%s\n", it.Symbol, it.Price, it.Change, it.LastUpdated)
	}
	_ = w.Flush()
}

// printNotifier writes alerts to the terminal
type printNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	sound func(context.Context) (bool, error)
}

func (p *printNotifier) NotifySignalChanges(ctx context.Context, changes []domain.SignalChange) {
	bell := ""
	if p.sound != nil {
		if on, err := p.sound(ctx); err == nil && on {
			bell = "\a"
		}
	}
	for _, c := range changes {
		s := c.Signal
		if c.Kind == domain.ChangeNew {
			p.printf("%s[NEW] %s %s %s %s %s @ %.2f SL %.2f\n", bell, s.ID, s.Action, s.Instrument, s.Symbol, s.Type, s.EntryPrice, s.StopLoss)
			continue
		}
		p.printf("%s[%s] %s %s %s (was %s)\n", bell, s.Status.Label(), s.ID, s.Instrument, s.Symbol, c.PrevStatus.Label())
	}
}

func (p *printNotifier) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}
