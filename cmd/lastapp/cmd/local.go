package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/actionsum/lastapp/internal/database"
	"github.com/actionsum/lastapp/pkg/detector"
	"github.com/actionsum/lastapp/pkg/probe"
)

var assumeYes bool

// probeReport is what `lastapp probe --json` prints
type probeReport struct {
	DisplayServer string      `json:"display_server"`
	Compositor    string      `json:"compositor,omitempty"`
	XConnection   bool        `json:"x_connection"`
	Tools         []string    `json:"tools"`
	Protocol      string      `json:"protocol"`
	WatchMode     string      `json:"watch_mode"`
	State         probe.State `json:"state"`
}

var (
	probeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Inspect this session without the daemon",
		Long: `Detects the display server, compositor and activation protocol the daemon
would use, and takes one reading of the session state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sess, err := detector.Build(cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			caps := sess.Capabilities
			report := probeReport{
				DisplayServer: sess.DisplayServer,
				Compositor:    sess.Compositor,
				XConnection:   caps.XConnection,
				Protocol:      string(sess.Protocol),
				WatchMode:     sess.WatchMode,
				State:         probe.Read(sess.Probe),
			}
			tools := []struct {
				name string
				ok   bool
			}{
				{"xdotool", caps.HasXdotool},
				{"wmctrl", caps.HasWmctrl},
				{"swaymsg", caps.HasSwaymsg},
				{"hyprctl", caps.HasHyprctl},
			}
			for _, tool := range tools {
				if tool.ok {
					report.Tools = append(report.Tools, tool.name)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, report)
			}

			fmt.Fprintf(out, "Display server: %s\n", report.DisplayServer)
			if report.Compositor != "" {
				fmt.Fprintf(out, "Compositor: %s\n", report.Compositor)
			}
			fmt.Fprintf(out, "X connection: %v\n", report.XConnection)
			fmt.Fprintf(out, "Tools: %s\n", orNone(strings.Join(report.Tools, ", ")))
			fmt.Fprintf(out, "Activation protocol: %s\n", report.Protocol)
			fmt.Fprintf(out, "Watch mode: %s\n", report.WatchMode)
			fmt.Fprintf(out, "\nForeground: %s\n", orNone(string(report.State.Foreground)))
			fmt.Fprintf(out, "Locked: %v\n", report.State.Locked)
			fmt.Fprintf(out, "Emergency call: %v\n", report.State.EmergencyCall)
			fmt.Fprintf(out, "Power-down alert: %v\n", report.State.PowerDownAlert)
			fmt.Fprintf(out, "Icon editing: %v\n", report.State.IconEditing)
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded focus changes and switch attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !assumeYes {
				fmt.Fprint(out, "This will delete all recorded data. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
			}

			db, err := database.Connect(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Initialize(); err != nil {
				return err
			}
			if err := database.NewRepository(db).Clear(); err != nil {
				return fmt.Errorf("failed to clear database: %w", err)
			}

			fmt.Fprintln(out, "Database cleared successfully")
			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	probeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	clearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(probeCmd, clearCmd)
}
