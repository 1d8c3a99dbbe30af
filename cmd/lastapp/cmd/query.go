package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/lastapp/internal/client"
	"github.com/actionsum/lastapp/internal/daemon"
	"github.com/actionsum/lastapp/internal/reporter"
)

var (
	jsonOutput    bool
	historyLimit  int
	historyPeriod string
	showAttempts  bool
	showApps      bool
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the tracked applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if !running {
				fmt.Fprintln(out, "Status: Not running")
				fmt.Fprintln(out, `Run "lastapp probe" to inspect this session without the daemon.`)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := newClient(cfg).Status(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, st)
			}

			fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
			fmt.Fprintf(out, "Display server: %s\n", st.DisplayServer)
			fmt.Fprintf(out, "Activation protocol: %s\n", st.Protocol)
			fmt.Fprintf(out, "Event source: %s\n", orNone(st.Source))
			fmt.Fprintf(out, "\nCurrent app:  %s\n", orNone(string(st.History.Current)))
			fmt.Fprintf(out, "Previous app: %s\n", orNone(string(st.History.Previous)))
			fmt.Fprintf(out, "\nSession state:\n")
			fmt.Fprintf(out, "  Locked: %v\n", st.Probe.Locked)
			fmt.Fprintf(out, "  Emergency call: %v\n", st.Probe.EmergencyCall)
			fmt.Fprintf(out, "  Power-down alert: %v\n", st.Probe.PowerDownAlert)
			fmt.Fprintf(out, "  Icon editing: %v\n", st.Probe.IconEditing)
			fmt.Fprintf(out, "\nSwitch requests: %d, activation failures: %d, activations observed: %d\n",
				st.Metrics.SwitchRequests, st.Metrics.ActivationFailures, st.Metrics.ActivationsObserved)
			return nil
		},
	}

	switchCmd = &cobra.Command{
		Use:   "switch",
		Short: "Switch to the previously focused application",
		Long: `Asks the running daemon to bring back the application that was focused
before the current one. Nothing happens while the screen is locked, a
power-down dialog is open, or no previous application is known.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			resp, err := newClient(cfg).Switch(ctx)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && resp != nil && resp.Allowed {
					return fmt.Errorf("activation failed: %s", apiErr.Message)
				}
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Allowed {
				fmt.Fprintln(cmd.OutOrStdout(), "Switched to previous application")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Not switched: %s\n", resp.Reason)
			}
			return nil
		},
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent focus changes, switch attempts or per-app counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			c := newClient(cfg)
			out := cmd.OutOrStdout()
			now := time.Now()

			switch {
			case showApps:
				report, err := c.Apps(ctx, historyPeriod)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, report)
				}
				fmt.Fprint(out, reporter.FormatReportText(report))

			case showAttempts:
				attempts, err := c.Attempts(ctx, historyLimit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, attempts)
				}
				fmt.Fprint(out, reporter.FormatAttemptsText(attempts, now))

			default:
				events, err := c.Events(ctx, historyLimit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, events)
				}
				fmt.Fprint(out, reporter.FormatEventsText(events, now))
			}
			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{statusCmd, switchCmd, historyCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	historyCmd.Flags().BoolVar(&showAttempts, "attempts", false, "list switch attempts instead of focus changes")
	historyCmd.Flags().BoolVar(&showApps, "apps", false, "list activation counts per application")
	historyCmd.Flags().StringVar(&historyPeriod, "period", "week", "period for --apps (day, week, month)")

	rootCmd.AddCommand(statusCmd, switchCmd, historyCmd)
}

func writeJSON(w io.Writer, v any) error {
	data, err := reporter.FormatJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, data)
	return err
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
