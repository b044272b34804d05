// Package events publishes gate outcomes to an event bus so operators can
// see failed checks and trips as they happen.
package events

import (
	"context"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// Event topic constants
const (
	TopicAttemptSucceeded = "facegate.attempt.succeeded"
	TopicAttemptFailed    = "facegate.attempt.failed"
	TopicGateTripped      = "facegate.gate.tripped"

	// TopicAll matches every gate topic.
	TopicAll = "facegate.>"
)

// TopicFor returns the topic an attempt with the given outcome is published on.
func TopicFor(o model.Outcome) string {
	switch o {
	case model.OutcomeSuccess:
		return TopicAttemptSucceeded
	case model.OutcomeTripped:
		return TopicGateTripped
	default:
		return TopicAttemptFailed
	}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
