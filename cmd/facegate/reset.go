package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Clear the failure count",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newGate().Reset(); err != nil {
			return err
		}
		fmt.Printf("Failure count reset (%s)\n", cfg.CounterPath)
		return nil
	},
}
