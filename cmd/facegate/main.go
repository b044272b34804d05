package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/facegate/internal/config"
	"github.com/alfredjeanlab/facegate/internal/ui"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "facegate <command>",
	Short:         "Boot-time failsafe gate in front of an unlock check",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		setup(c)
		return nil
	},
}

// setup installs c as the process configuration. c must have a valid log
// level.
func setup(c *config.Config) {
	level, _ := c.SlogLevel()
	cfg = c
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "gate", Title: "Gate:"},
		&cobra.Group{ID: "operator", Title: "Operator:"},
		&cobra.Group{ID: "audit", Title: "Audit:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Gate
	rootCmd.AddCommand(runCmd)

	// Operator
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(armCmd)
	rootCmd.AddCommand(disarmCmd)
	rootCmd.AddCommand(configCmd)

	// Audit
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errSessionTerminated) {
			os.Exit(exitTerminate)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
