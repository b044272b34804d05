package main

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/facegate/internal/config"
	"github.com/alfredjeanlab/facegate/internal/events"
	"github.com/alfredjeanlab/facegate/internal/gate"
	"github.com/alfredjeanlab/facegate/internal/journal"
	"github.com/alfredjeanlab/facegate/internal/model"
	"github.com/spf13/cobra"
)

// Exit status of "facegate run" when the session must not proceed.
const exitTerminate = 1

// errSessionTerminated is returned by "facegate run" when the gate decided
// against the session. main exits with exitTerminate without printing it.
var errSessionTerminated = errors.New("session terminated")

// configProblems holds what runCmd's lenient load dropped.
var configProblems config.Problems

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the gate once (boot entry point)",
	Long: `Run the unlock check and update the failure count.

Exits 0 when the session may continue and 1 when it was terminated. Once
the failure threshold is reached the gate removes its own boot
registration and stops running the check until it is re-armed.

A configuration the gate cannot run with (a malformed config file, an
unusable counter, registration, or unlock path, or a bad marker) trips the
gate. Problems in other settings are logged and their defaults used.`,
	GroupID: "gate",
	Args:    cobra.NoArgs,
	// The boot path never stops on a config error, so it replaces the root
	// loader with the lenient one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, p := config.LoadLenient()
		setup(c)
		configProblems = p
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		for _, err := range configProblems.Other {
			logger.Warn("config: ignoring setting, using default", "err", err)
		}
		for _, w := range cfg.Warnings() {
			logger.Warn("config: " + w)
		}

		g := newGate()
		publisher := newPublisher()
		g.Publisher = publisher

		var res gate.Result
		if err := configProblems.GateErr(); err != nil {
			res = g.FailClosed(ctx, "loading config", err)
		} else {
			res = g.Evaluate(ctx)
		}
		publisher.Close()

		if jsonOutput {
			printJSON(res.Attempt)
		}
		if res.Decision != model.Continue {
			return errSessionTerminated
		}
		return nil
	},
}

// newGate builds a gate from the loaded configuration with the journal
// attached.
func newGate() *gate.Gate {
	g := gate.New(cfg, logger)
	g.Journal = journal.New(cfg.JournalPath)
	return g
}

// newPublisher connects to NATS when configured. Events are best effort, so
// a connection failure falls back to the no-op publisher.
func newPublisher() events.Publisher {
	if cfg.NATSURL == "" {
		return &events.NoopPublisher{}
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		logger.Warn("events: NATS unavailable, not publishing", "url", cfg.NATSURL, "err", err)
		return &events.NoopPublisher{}
	}
	return p
}
