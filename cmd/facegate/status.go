package main

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show gate state, failure count, and boot registration",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newGate().Status()
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(st)
			return nil
		}
		printStatus(os.Stdout, st)
		return nil
	},
}
