// Package interview coordinates one simulated interview session: a human
// moderator and up to two independently-driven conversational agents,
// relayed over a message-oriented client connection.
//
// The orchestrator owns the turn state machine and the transcript log
// exclusively. Client messages and agent callbacks arrive asynchronously
// but are funneled into one task queue and processed serially by Run, so
// turn-state invariants hold without locks.
package interview

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/transcript"
	"github.com/parloq/interview-core/core/turns"
)

const (
	// DefaultEndMarker is the in-band token signaling normal termination.
	DefaultEndMarker = "[END_OF_INTERVIEW]"
	// DefaultAbortMarker is the in-band token signaling aborted termination.
	DefaultAbortMarker = "[ABORT_INTERVIEW]"

	taskQueueSize = 256
)

var sessionsStarted, _ = meter.Int64Counter("interview.sessions.started")

// Orchestrator drives one session. Construct with New, feed it client
// messages via Handle/HandleRaw, and drain it with Run.
type Orchestrator struct {
	sessionID string

	sender  ClientSender
	factory ConnectionFactory
	store   Store
	engine  *scoring.Engine

	displayNames map[turns.Role]string
	endMarker    string
	abortMarker  string

	tasks chan func()

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	// Everything below is touched only from the Run goroutine.
	baseContext     context.Context
	machine         *turns.Machine
	log             *transcript.Log
	config          SessionConfig
	connections     map[turns.Role]agent.Connection
	ready           map[turns.Role]bool
	pendingStart    *protocol.StartSession
	startAnnounced  bool
	awaitingAdvance map[turns.Role]bool
	awaitingInput   bool
	ended           bool
	endReason       string
}

// New constructs an orchestrator for one session. The factory decides
// which connection variant backs each role; the orchestrator never does.
func New(sender ClientSender, factory ConnectionFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessionID: uuid.NewString(),
		sender:    sender,
		factory:   factory,
		store:     nopStore{},
		engine:    scoring.NewEngine(scoring.DefaultRuleSet()),
		displayNames: map[turns.Role]string{
			turns.RoleInterviewer: "Interviewer",
			turns.RoleCandidate:   "Candidate",
			turns.RoleHuman:       "Moderator",
		},
		endMarker:       DefaultEndMarker,
		abortMarker:     DefaultAbortMarker,
		tasks:           make(chan func(), taskQueueSize),
		baseContext:     context.Background(),
		machine:         turns.New(turns.ModeStep),
		connections:     map[turns.Role]agent.Connection{},
		ready:           map[turns.Role]bool{},
		awaitingAdvance: map[turns.Role]bool{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = transcript.NewLog(o.displayNames)
	return o
}

// SessionID returns the session's identifier.
func (o *Orchestrator) SessionID() string { return o.sessionID }

// Run processes queued tasks until ctx is cancelled or Close is called,
// then tears down every agent connection. Call exactly once.
func (o *Orchestrator) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.cancelMu.Lock()
	o.cancel = cancel
	o.cancelMu.Unlock()

	o.baseContext = ctx
	defer o.teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-o.tasks:
			task()
		}
	}
}

// Close stops the session; safe to call from any goroutine and more than
// once. Connection teardown happens inside the Run goroutine.
func (o *Orchestrator) Close() {
	o.cancelMu.Lock()
	cancel := o.cancel
	o.cancelMu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) teardown() {
	for role, connection := range o.connections {
		if err := connection.Close(); err != nil {
			logger.Warn("failed to close agent connection", "session", o.sessionID, "role", string(role), "error", err)
		}
	}
	o.connections = map[turns.Role]agent.Connection{}
	o.ready = map[turns.Role]bool{}
}

// HandleRaw decodes and queues one inbound client frame. Malformed and
// unknown frames are logged, answered with a non-fatal error notice, and
// dropped.
func (o *Orchestrator) HandleRaw(raw []byte) {
	message, err := protocol.Decode(raw)
	if err != nil {
		logger.Warn("dropping client message", "session", o.sessionID, "error", err)
		o.enqueue(func() {
			o.send(protocol.NewError(fmt.Sprintf("unrecognized message: %v", err)))
		})
		return
	}
	o.Handle(message)
}

// Handle queues one decoded client message for serial processing.
func (o *Orchestrator) Handle(message protocol.ClientMessage) {
	o.enqueue(func() { o.dispatchClient(message) })
}

func (o *Orchestrator) enqueue(task func()) {
	select {
	case o.tasks <- task:
	default:
		logger.Warn("session task queue full, dropping event", "session", o.sessionID)
	}
}

func (o *Orchestrator) send(message protocol.ServerMessage) {
	o.sender.Send(message)
}

func (o *Orchestrator) emitTurnState() {
	snapshot := o.machine.Snapshot()
	o.send(protocol.NewTurnState(snapshot))
	// Older clients only understand the phase-change notice; both are
	// emitted permanently.
	o.send(protocol.NewPhaseChange(snapshot.Phase))
}
