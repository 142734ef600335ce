package main

import (
	"errors"
	"fmt"

	"github.com/scribeflow/scribeflow/internal/bus"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/daemon"
	"github.com/scribeflow/scribeflow/internal/deps"
	"github.com/scribeflow/scribeflow/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "scribeflow",
	Short: "Realtime speech-to-text dictation for Wayland",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		abortCmd(),
		statusCmd(),
		peekCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := daemon.New()
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Start listening, or finish and deliver the transcript",
		RunE:  sendCmd(bus.CmdToggle, "toggle dictation"),
	}
}

func abortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort",
		Short: "Discard the current dictation",
		RunE:  sendCmd(bus.CmdAbort, "abort dictation"),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current dictation status",
		RunE:  sendCmd(bus.CmdStatus, "get status"),
	}
}

func peekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek",
		Short: "Show the live transcript (committed text + current partial)",
		RunE:  sendCmd(bus.CmdPeek, "peek transcript"),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE:  sendCmd(bus.CmdVersion, "get version"),
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE:  sendCmd(bus.CmdQuit, "stop daemon"),
	}
}

func sendCmd(b byte, what string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		resp, err := bus.SendCommand(b)
		if err != nil {
			return fmt.Errorf("failed to %s: %w", what, err)
		}
		fmt.Print(resp)
		return nil
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that required external tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(tui.StyleHeader.Render("Scribeflow dependencies"))
			var missing int
			for _, s := range deps.CheckAll() {
				switch {
				case s.Installed:
					fmt.Printf("%s %-12s %s\n", tui.StyleSuccess.Render("✓"), s.Name, tui.StyleMuted.Render(s.Version))
				case s.Required:
					missing++
					fmt.Printf("%s %-12s %s\n", tui.StyleError.Render("✗"), s.Name, tui.StyleMuted.Render(s.Purpose))
				default:
					fmt.Printf("%s %-12s %s\n", tui.StyleMuted.Render("-"), s.Name, tui.StyleMuted.Render(s.Purpose+" (optional)"))
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
				return err
			}
			if cfg == nil {
				cfg = config.DefaultConfig()
			}

			result, err := tui.Run(cfg)
			if err != nil || result.Cancelled {
				return err
			}
			return config.Save(result.Config)
		},
	}
}
