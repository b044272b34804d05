// Package gate implements the boot-time failsafe gate.
//
// Each evaluation runs the unlock command at most once. Consecutive failures
// are persisted in a counter; when the count reaches the threshold the gate
// trips: it stops running the check, removes its own boot registration, and
// ends the session. Only an operator re-arming the gate brings it back.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alfredjeanlab/facegate/internal/config"
	"github.com/alfredjeanlab/facegate/internal/counter"
	"github.com/alfredjeanlab/facegate/internal/events"
	"github.com/alfredjeanlab/facegate/internal/idgen"
	"github.com/alfredjeanlab/facegate/internal/model"
	"github.com/alfredjeanlab/facegate/internal/registration"
	"github.com/alfredjeanlab/facegate/internal/session"
	"github.com/alfredjeanlab/facegate/internal/unlock"
)

// DefaultThreshold is the number of consecutive failures that trips the gate.
const DefaultThreshold = config.DefaultThreshold

// Runner runs the unlock check once.
type Runner interface {
	Run(ctx context.Context) unlock.Result
}

// Shield suppresses interrupt signals until the returned release is called.
type Shield interface {
	Acquire() (release func())
}

// Recorder keeps a durable record of attempts.
type Recorder interface {
	Append(a model.Attempt) error
}

// Result is the outcome of one evaluation.
type Result struct {
	Decision model.Decision
	Attempt  model.Attempt
}

// Gate holds the collaborators of a single evaluation. Fields are exported
// so callers can replace individual pieces; New fills them from a Config.
type Gate struct {
	Counter      *counter.Store
	Registration *registration.File
	Runner       Runner
	Terminator   session.Terminator
	Shield       Shield
	Publisher    events.Publisher
	Journal      Recorder
	Logger       *slog.Logger

	Host          string
	Threshold     int
	GraceInterval time.Duration

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// New creates a gate wired to the files and commands named in cfg. Events
// go nowhere until Publisher is replaced.
func New(cfg *config.Config, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.Threshold
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	host, _ := os.Hostname()
	return &Gate{
		Counter:       counter.New(cfg.CounterPath, threshold),
		Registration:  registration.New(cfg.RegistrationPath, cfg.Marker, cfg.InvocationLine),
		Runner:        unlock.NewRunner(cfg.UnlockCommand, cfg.CheckTimeout),
		Terminator:    session.NewCommandTerminator(cfg.SessionUser, cfg.TerminateCommand),
		Shield:        unlock.Shield{},
		Publisher:     &events.NoopPublisher{},
		Logger:        logger,
		Host:          host,
		Threshold:     threshold,
		GraceInterval: cfg.GraceInterval,
	}
}

// Evaluate runs one gate cycle and returns the boot decision. It returns
// model.Continue only when the unlock check succeeded and the counter reset
// was persisted. Every other path requests session termination before
// returning model.Terminate.
//
// Counter persistence errors fail closed: the gate behaves as if the
// threshold had been reached and trips.
func (g *Gate) Evaluate(ctx context.Context) Result {
	release := g.Shield.Acquire()
	defer release()

	att := g.newAttempt()

	lock, err := g.Counter.Lock()
	if err != nil {
		return g.counterUnavailable(ctx, att, "acquiring counter lock", err)
	}
	defer lock.Release()

	count, err := g.Counter.Load()
	if err != nil {
		return g.counterUnavailable(ctx, att, "loading counter", err)
	}
	att.CountBefore = count
	att.CountAfter = count

	if model.StateFor(count, g.Threshold) == model.StateTripped {
		att.Reason = "failure threshold already reached"
		return g.trip(ctx, att)
	}

	g.Logger.Debug("gate: running unlock check", "count", count, "threshold", g.Threshold)
	res := g.Runner.Run(ctx)
	att.Ran = true
	att.ExitCode = res.ExitCode
	att.TimedOut = res.TimedOut
	att.Duration = res.Duration

	if res.OK() {
		if err := g.Counter.Save(0); err != nil {
			return g.counterUnavailable(ctx, att, "resetting counter", err)
		}
		att.CountAfter = 0
		att.Outcome = model.OutcomeSuccess
		g.Logger.Info("gate: unlock check succeeded", "previous_failures", count)
		g.record(ctx, att)
		return Result{Decision: model.Continue, Attempt: att}
	}

	if res.Err != nil {
		att.Error = res.Err.Error()
	}
	next := count + 1
	if err := g.Counter.Save(next); err != nil {
		return g.counterUnavailable(ctx, att, "incrementing counter", err)
	}
	att.CountAfter = next

	if model.StateFor(next, g.Threshold) == model.StateTripped {
		att.Reason = fmt.Sprintf("%d consecutive failed unlock checks", next)
		return g.trip(ctx, att)
	}

	att.Outcome = model.OutcomeFailure
	g.Logger.Warn("gate: unlock check failed",
		"count", next, "threshold", g.Threshold,
		"exit_code", res.ExitCode, "timed_out", res.TimedOut)
	g.record(ctx, att)

	g.pause(ctx, g.GraceInterval)
	g.terminate(ctx)
	return Result{Decision: model.Terminate, Attempt: att}
}

// FailClosed takes the trip path without consulting the counter or running
// the unlock command. The boot path uses it when the gate cannot be set up
// as configured.
func (g *Gate) FailClosed(ctx context.Context, op string, err error) Result {
	release := g.Shield.Acquire()
	defer release()

	g.Logger.Error("gate: cannot evaluate, failing closed", "op", op, "err", err)
	return g.failClosed(ctx, g.newAttempt(), op, "gate misconfigured", err)
}

// counterUnavailable handles a counter persistence error. The counter file
// is left as it is.
func (g *Gate) counterUnavailable(ctx context.Context, att model.Attempt, op string, err error) Result {
	g.Logger.Error("gate: counter unavailable, failing closed", "op", op, "path", g.Counter.Path(), "err", err)
	return g.failClosed(ctx, att, op, "counter unavailable", err)
}

func (g *Gate) failClosed(ctx context.Context, att model.Attempt, op, reason string, err error) Result {
	att.Error = fmt.Sprintf("%s: %v", op, err)
	att.Reason = reason
	att.CountAfter = g.Threshold
	return g.trip(ctx, att)
}

func (g *Gate) newAttempt() model.Attempt {
	now := g.clock()
	return model.Attempt{
		ID:        idgen.Attempt(now),
		Host:      g.Host,
		At:        now,
		Threshold: g.Threshold,
	}
}

// trip removes the boot registration and terminates the session. The unlock
// command is never run from here.
func (g *Gate) trip(ctx context.Context, att model.Attempt) Result {
	att.Outcome = model.OutcomeTripped

	removed, err := g.Registration.Remove()
	if err != nil {
		g.Logger.Error("gate: failed to remove boot registration", "path", g.Registration.Path(), "err", err)
		if att.Error == "" {
			att.Error = fmt.Sprintf("removing registration: %v", err)
		}
	}
	g.Logger.Error("gate: failsafe tripped, gate disarmed",
		"reason", att.Reason, "count", att.CountAfter, "threshold", g.Threshold,
		"registration_removed", removed)
	g.record(ctx, att)

	g.terminate(ctx)
	return Result{Decision: model.Terminate, Attempt: att}
}

func (g *Gate) terminate(ctx context.Context) {
	if err := g.Terminator.Terminate(ctx); err != nil {
		g.Logger.Error("gate: failed to request session termination", "err", err)
	}
}

// record publishes the attempt and appends it to the journal. Neither can
// change the decision.
func (g *Gate) record(ctx context.Context, att model.Attempt) {
	if g.Publisher != nil {
		if err := g.Publisher.Publish(ctx, events.TopicFor(att.Outcome), att); err != nil {
			g.Logger.Warn("gate: failed to publish attempt", "id", att.ID, "err", err)
		}
	}
	if g.Journal != nil {
		if err := g.Journal.Append(att); err != nil {
			g.Logger.Warn("gate: failed to journal attempt", "id", att.ID, "err", err)
		}
	}
}

func (g *Gate) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if g.sleep != nil {
		g.sleep(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (g *Gate) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now().UTC()
}
