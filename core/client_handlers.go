package interview

import (
	"context"
	"fmt"

	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/turns"
)

func rolesFor(pattern protocol.Pattern) []turns.Role {
	switch pattern {
	case protocol.PatternInterviewerOnly:
		return []turns.Role{turns.RoleInterviewer}
	case protocol.PatternCandidateOnly:
		return []turns.Role{turns.RoleCandidate}
	}
	return []turns.Role{turns.RoleInterviewer, turns.RoleCandidate}
}

func firstSpeakerFor(pattern protocol.Pattern) turns.Role {
	if pattern == protocol.PatternCandidateOnly {
		return turns.RoleCandidate
	}
	return turns.RoleInterviewer
}

func (o *Orchestrator) targetRoles(target protocol.Target) []turns.Role {
	var roles []turns.Role
	for _, role := range rolesFor(o.config.Pattern) {
		if target == protocol.TargetBoth || string(role) == string(target) {
			if _, ok := o.connections[role]; ok {
				roles = append(roles, role)
			}
		}
	}
	return roles
}

func (o *Orchestrator) dispatchClient(message protocol.ClientMessage) {
	switch typedMessage := message.(type) {
	case protocol.StartSession:
		o.handleStartSession(typedMessage)
	case protocol.SetMode:
		o.handleSetMode(typedMessage)
	case protocol.NextTurn:
		o.handleNextTurn()
	case protocol.HumanText:
		o.handleHumanText(typedMessage)
	case protocol.HumanAudioAppend:
		o.handleHumanAudioAppend(typedMessage)
	case protocol.HumanAudioCommit:
		o.handleHumanAudioCommit(typedMessage)
	case protocol.HumanSpeechStart:
		o.handleHumanSpeechStart()
	case protocol.HumanSpeechDone:
		o.handleHumanSpeechDone()
	case protocol.PlaybackFinished:
		o.handlePlaybackFinished(typedMessage)
	case protocol.EndSession:
		o.endSession("client_request")
	}
}

func (o *Orchestrator) handleStartSession(message protocol.StartSession) {
	if o.pendingStart != nil || o.startAnnounced {
		// Duplicate start; the begin logic replays at most once.
		return
	}
	if o.ended {
		o.send(protocol.NewError("session already ended"))
		return
	}

	ctx, span := tracer.Start(o.baseContext, "interview.StartSession")
	defer span.End()

	o.config = SessionConfig{
		Pattern:     message.Pattern,
		Proficiency: message.Proficiency,
		Personas:    message.Personas,
	}

	mode := turns.Mode(message.Mode)
	roles := rolesFor(message.Pattern)
	if len(roles) < 2 {
		// Auto mode chains interviewer to candidate; with a single agent
		// there is nothing to chain to, so those sessions run stepped.
		mode = turns.ModeStep
	}
	o.machine.SetMode(mode)

	for _, role := range roles {
		connection, err := o.factory(ctx, role, o.config, o.connectionOptions(role)...)
		if err != nil {
			o.send(protocol.NewError(fmt.Sprintf("failed to create %s connection: %v", role, err)))
			return
		}
		o.connections[role] = connection
		o.ready[role] = false
	}

	startCopy := message
	o.pendingStart = &startCopy
	sessionsStarted.Add(ctx, 1)

	go func(sessionID string, pattern protocol.Pattern) {
		if err := o.store.StartSession(context.Background(), sessionID, pattern); err != nil {
			logger.Warn("persistence start failed", "session", sessionID, "error", err)
		}
	}(o.sessionID, message.Pattern)

	for role, connection := range o.connections {
		if err := connection.Connect(ctx); err != nil {
			o.ready[role] = false
			o.send(protocol.NewError(fmt.Sprintf("failed to connect %s: %v", role, err)))
		}
	}

	o.maybeBegin()
}

func (o *Orchestrator) connectionOptions(role turns.Role) []agent.Option {
	return []agent.Option{
		agent.WithSessionReadyCallback(func() {
			o.enqueue(func() { o.handleAgentReady(role) })
		}),
		agent.WithTranscriptDeltaCallback(func(delta string) {
			o.enqueue(func() { o.handleTranscriptDelta(role, delta) })
		}),
		agent.WithTranscriptDoneCallback(func(transcript string) {
			o.enqueue(func() { o.handleTranscriptDone(role, transcript) })
		}),
		agent.WithAudioDeltaCallback(func(audio string) {
			o.enqueue(func() { o.handleAudioDelta(role, audio) })
		}),
		agent.WithAudioDoneCallback(func() {
			o.enqueue(func() { o.handleAudioDone(role) })
		}),
		agent.WithResponseDoneCallback(func(report agent.ResponseReport) {
			o.enqueue(func() { o.handleResponseDone(role, report) })
		}),
		agent.WithInputTranscriptDeltaCallback(func(delta string) {
			o.enqueue(func() { o.handleInputTranscriptDelta(role, delta) })
		}),
		agent.WithInputTranscriptDoneCallback(func(transcript string) {
			o.enqueue(func() { o.handleInputTranscriptDone(role, transcript) })
		}),
		agent.WithErrorCallback(func(err error) {
			o.enqueue(func() { o.handleAgentError(role, err) })
		}),
		agent.WithCloseCallback(func() {
			o.enqueue(func() { o.handleAgentClose(role) })
		}),
	}
}

// maybeBegin replays the deferred start logic once every required
// connection is ready. Idempotent: announces at most once per session.
func (o *Orchestrator) maybeBegin() {
	if o.pendingStart == nil || o.startAnnounced || o.ended {
		return
	}
	for _, role := range rolesFor(o.config.Pattern) {
		if !o.ready[role] {
			return
		}
	}

	o.startAnnounced = true
	o.send(protocol.NewSessionReady(o.sessionID, o.config.Pattern, rolesFor(o.config.Pattern)))

	first := firstSpeakerFor(o.config.Pattern)
	o.machine.Start(first)
	o.emitTurnState()
	o.requestResponse(first)
}

func (o *Orchestrator) handleSetMode(message protocol.SetMode) {
	o.machine.SetMode(turns.Mode(message.Mode))
	o.emitTurnState()
}

func (o *Orchestrator) handleNextTurn() {
	if !o.machine.WaitingForNext() {
		// Duplicate or premature request, nothing to resolve.
		return
	}
	o.machine.OnNextTurn()
	o.emitTurnState()
	o.requestResponse(o.machine.CurrentSpeaker())
}

func (o *Orchestrator) handleHumanText(message protocol.HumanText) {
	if o.ended || message.Text == "" {
		return
	}
	o.commitHumanUtterance(message.Text, o.targetRoles(message.Target))
}

func (o *Orchestrator) handleHumanAudioAppend(message protocol.HumanAudioAppend) {
	for _, role := range o.targetRoles(message.Target) {
		if err := o.connections[role].AppendAudio(message.Audio); err != nil {
			o.send(protocol.NewError(fmt.Sprintf("failed to stream audio to %s: %v", role, err)))
		}
	}
}

func (o *Orchestrator) handleHumanAudioCommit(message protocol.HumanAudioCommit) {
	roles := o.targetRoles(message.Target)
	if len(roles) == 0 {
		return
	}
	// Only the first targeted connection's transcription commits the
	// human entry; the rest receive the text as context afterwards.
	o.awaitingInput = true
	for _, role := range roles {
		if err := o.connections[role].CommitAudio(); err != nil {
			o.send(protocol.NewError(fmt.Sprintf("failed to commit audio to %s: %v", role, err)))
		}
	}
}

func (o *Orchestrator) handleHumanSpeechStart() {
	o.machine.OnHumanSpeakStart()
	o.emitTurnState()
}

func (o *Orchestrator) handleHumanSpeechDone() {
	if o.ended {
		return
	}
	o.advanceAfterHumanTurn()
}

func (o *Orchestrator) handlePlaybackFinished(message protocol.PlaybackFinished) {
	role := turns.Role(message.Speaker)
	if o.awaitingAdvance[role] {
		o.advanceAgentTurn(role)
		return
	}
	// Legacy clients omit the speaker; advance the only pending turn.
	if message.Speaker == "" && len(o.awaitingAdvance) == 1 {
		for pending := range o.awaitingAdvance {
			o.advanceAgentTurn(pending)
		}
	}
}

// commitHumanUtterance records one moderator utterance, shares it with
// the targeted agents, and advances the turn machine.
func (o *Orchestrator) commitHumanUtterance(text string, forwardTo []turns.Role) {
	entry := o.log.Commit(turns.RoleHuman, text)
	o.send(protocol.NewTranscriptCommitted(entry))
	o.persistEntry(entry)

	for _, role := range forwardTo {
		if err := o.connections[role].AddTextMessage(fmt.Sprintf("%s: %s", entry.DisplayName, text)); err != nil {
			o.send(protocol.NewError(fmt.Sprintf("failed to forward text to %s: %v", role, err)))
		}
	}

	o.advanceAfterHumanTurn()
}

func (o *Orchestrator) advanceAfterHumanTurn() {
	o.machine.OnHumanSpeakDone()
	o.emitTurnState()

	if o.machine.Mode() != turns.ModeAuto {
		return
	}
	next := o.machine.CurrentSpeaker()
	if _, ok := o.connections[next]; !ok {
		// Pattern without an interviewer: hand the floor to whichever
		// agent exists.
		next = firstSpeakerFor(o.config.Pattern)
		o.machine.SetSpeaker(next)
		o.emitTurnState()
	}
	o.requestResponse(next)
}

func (o *Orchestrator) requestResponse(role turns.Role) {
	connection, ok := o.connections[role]
	if !ok {
		logger.Warn("no connection for requested speaker", "session", o.sessionID, "role", string(role))
		return
	}
	if err := connection.RequestResponse(); err != nil {
		o.send(protocol.NewError(fmt.Sprintf("failed to request %s response: %v", role, err)))
		return
	}
	o.awaitingAdvance[role] = true
}
