package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var armCmd = &cobra.Command{
	Use:   "arm",
	Short: "Install the boot registration and clear the failure count",
	Long: `Re-arm the gate after a trip, or install it for the first time.

The marker comment and invocation line are inserted into the boot
registration file as one block, before a trailing "exit 0" when present.
Arming an already registered gate only clears the failure count.`,
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inserted, err := newGate().Arm()
		if err != nil {
			return err
		}
		if inserted {
			fmt.Printf("Gate armed: registration added to %s\n", cfg.RegistrationPath)
		} else {
			fmt.Printf("Gate armed: already registered in %s\n", cfg.RegistrationPath)
		}
		return nil
	},
}

var disarmCmd = &cobra.Command{
	Use:     "disarm",
	Short:   "Remove the boot registration without touching the failure count",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := newGate().Disarm()
		if err != nil {
			return err
		}
		if removed {
			fmt.Printf("Gate disarmed: registration removed from %s\n", cfg.RegistrationPath)
		} else {
			fmt.Printf("Gate not registered in %s\n", cfg.RegistrationPath)
		}
		return nil
	},
}
