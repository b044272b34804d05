package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/facegate/internal/events"
	"github.com/alfredjeanlab/facegate/internal/model"
	"github.com/alfredjeanlab/facegate/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream gate events from NATS",
	GroupID: "audit",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("nats-url")
		if url == "" {
			url = cfg.NATSURL
		}
		if url == "" {
			return fmt.Errorf("no NATS server configured (set FACEGATE_NATS_URL or --nats-url)")
		}
		topic, _ := cmd.Flags().GetString("topic")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sub, err := events.NewNATSSubscriber(url,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats: disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats: reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		return watchEvents(ctx, sub, topic, os.Stdout)
	},
}

// watchEvents prints every message on topic until ctx is done.
func watchEvents(ctx context.Context, sub events.Subscriber, topic string, w io.Writer) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(w, msg)
		}
	}
}

func printEvent(w io.Writer, msg events.Message) {
	if jsonOutput {
		fmt.Fprintln(w, string(msg.Data))
		return
	}
	var a model.Attempt
	if err := json.Unmarshal(msg.Data, &a); err != nil {
		fmt.Fprintf(w, "%s  %s\n", ui.RenderMuted(msg.Topic), string(msg.Data))
		return
	}
	line := fmt.Sprintf("%s  %-10s %-8s host=%s count=%d/%d",
		a.At.Local().Format("2006-01-02 15:04:05"),
		a.ID, ui.RenderOutcome(a.Outcome), a.Host, a.CountAfter, a.Threshold)
	if a.Reason != "" {
		line += " reason=" + fmt.Sprintf("%q", a.Reason)
	}
	if a.Error != "" {
		line += " err=" + fmt.Sprintf("%q", a.Error)
	}
	fmt.Fprintln(w, line)
}

func init() {
	watchCmd.Flags().String("nats-url", "", "NATS server URL (default $FACEGATE_NATS_URL)")
	watchCmd.Flags().String("topic", events.TopicAll, "subject to subscribe to")
}
