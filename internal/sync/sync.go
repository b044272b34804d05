// Package sync ships the attempt journal to external audit destinations.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// Destination is the interface for a sync target (S3, git, Postgres).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Source supplies the attempts to export. *journal.Journal satisfies it.
type Source interface {
	Read() ([]model.Attempt, error)
}

// Push exports the source once and writes the payload to every destination.
// Every destination is attempted; the returned error joins their failures.
func Push(ctx context.Context, src Source, host string, destinations []Destination) (int, error) {
	attempts, err := src.Read()
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}
	var buf bytes.Buffer
	if err := ExportJSONL(attempts, host, &buf); err != nil {
		return 0, err
	}
	data := buf.Bytes()

	var errs []error
	for i, dest := range destinations {
		if err := dest.Write(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("destination %d: %w", i, err))
		}
	}
	return len(data), errors.Join(errs...)
}

// Scheduler repeats Push on a fixed interval.
type Scheduler struct {
	source       Source
	host         string
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	pushes   atomic.Int64
	failures atomic.Int64
}

// NewScheduler creates a scheduler that pushes src to destinations every
// interval.
func NewScheduler(src Source, host string, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		source:       src,
		host:         host,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Run pushes once immediately and then on every tick until ctx is done.
// A failed push is logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.pushOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stats returns how many pushes ran and how many of them failed.
func (s *Scheduler) Stats() (pushes, failures int64) {
	return s.pushes.Load(), s.failures.Load()
}

func (s *Scheduler) pushOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.pushes.Add(1)
	n, err := Push(ctx, s.source, s.host, s.destinations)
	if err != nil {
		s.failures.Add(1)
		s.logger.Error("sync: push failed", "err", err)
		return
	}
	s.logger.Info("sync: push completed", "destinations", len(s.destinations), "bytes", n)
}
