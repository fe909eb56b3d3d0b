package interview

import (
	"context"

	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/turns"
)

// ClientSender delivers outbound frames to the session's client. The
// orchestrator calls it from its single processing goroutine.
type ClientSender interface {
	Send(message protocol.ServerMessage)
}

// ClientSenderFunc adapts a function to ClientSender.
type ClientSenderFunc func(message protocol.ServerMessage)

// Send implements ClientSender.
func (f ClientSenderFunc) Send(message protocol.ServerMessage) { f(message) }

// SessionConfig is the per-session configuration fixed by the start
// command.
type SessionConfig struct {
	Pattern     protocol.Pattern
	Proficiency string
	Personas    map[string]string
}

// ConnectionFactory builds the agent connection for one role. It is
// injected at construction time so the orchestrator never branches on
// which backend variant it is driving.
type ConnectionFactory func(ctx context.Context, role turns.Role, config SessionConfig, opts ...agent.Option) (agent.Connection, error)

// Option configures an orchestrator.
type Option func(*Orchestrator)

// WithRules replaces the default scoring rubric.
func WithRules(rules scoring.RuleSet) Option {
	return func(o *Orchestrator) {
		o.engine = scoring.NewEngine(rules)
	}
}

// WithStore sets the persistence collaborator.
func WithStore(store Store) Option {
	return func(o *Orchestrator) {
		if store != nil {
			o.store = store
		}
	}
}

// WithDisplayNames overrides the names stamped onto transcript entries.
func WithDisplayNames(names map[turns.Role]string) Option {
	return func(o *Orchestrator) {
		for role, name := range names {
			o.displayNames[role] = name
		}
	}
}

// WithEndMarker overrides the in-band token that signals normal
// termination.
func WithEndMarker(marker string) Option {
	return func(o *Orchestrator) {
		if marker != "" {
			o.endMarker = marker
		}
	}
}

// WithAbortMarker overrides the in-band token that signals aborted
// termination.
func WithAbortMarker(marker string) Option {
	return func(o *Orchestrator) {
		if marker != "" {
			o.abortMarker = marker
		}
	}
}
