package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Print the effective configuration",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, w := range cfg.Warnings() {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if jsonOutput {
			printJSON(cfg.Export())
			return nil
		}
		if cfg.File != "" {
			fmt.Printf("# loaded from %s\n", cfg.File)
		} else {
			fmt.Println("# no config file, defaults and environment only")
		}
		return cfg.WriteTOML(os.Stdout)
	},
}
