package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/transcript"
	"github.com/parloq/interview-core/core/turns"
)

func (o *Orchestrator) handleAgentReady(role turns.Role) {
	if o.ended {
		return
	}
	o.ready[role] = true
	o.maybeBegin()
}

func (o *Orchestrator) handleTranscriptDelta(role turns.Role, delta string) {
	if o.ended {
		return
	}
	o.log.AddDelta(role, delta)
	o.send(protocol.NewTranscriptDelta(role, delta))
}

// handleTranscriptDone commits the agent's utterance, shares it with the
// other agent as context, and watches for in-band termination markers.
func (o *Orchestrator) handleTranscriptDone(role turns.Role, fullTranscript string) {
	if o.ended {
		return
	}
	text := fullTranscript
	if text == "" {
		text = o.log.PendingDelta(role)
	}

	entry := o.log.Commit(role, text)
	o.send(protocol.NewTranscriptCommitted(entry))
	o.persistEntry(entry)
	o.crossPost(role, entry)

	if strings.Contains(text, o.abortMarker) {
		o.endSession("abort_marker")
		return
	}
	if strings.Contains(text, o.endMarker) {
		o.endSession("end_marker")
	}
}

// crossPost delivers a committed utterance to every other agent so both
// sides hear the whole conversation.
func (o *Orchestrator) crossPost(from turns.Role, entry transcript.Entry) {
	for role, connection := range o.connections {
		if role == from {
			continue
		}
		if err := connection.AddTextMessage(fmt.Sprintf("%s: %s", entry.DisplayName, entry.Text)); err != nil {
			logger.Warn("failed to cross-post transcript", "session", o.sessionID, "from", string(from), "to", string(role), "error", err)
		}
	}
}

func (o *Orchestrator) handleAudioDelta(role turns.Role, audio string) {
	if o.ended {
		return
	}
	o.send(protocol.NewAudioDelta(role, audio))
}

// handleAudioDone is the authoritative end of an agent's spoken turn. A
// later playback_finished for the same turn deduplicates against
// awaitingAdvance and becomes a no-op.
func (o *Orchestrator) handleAudioDone(role turns.Role) {
	if o.ended {
		return
	}
	o.send(protocol.NewAudioDone(role))
	if o.awaitingAdvance[role] {
		o.advanceAgentTurn(role)
	}
}

func (o *Orchestrator) advanceAgentTurn(role turns.Role) {
	delete(o.awaitingAdvance, role)
	if o.ended {
		return
	}

	o.machine.OnAgentSpeakingDone(role)
	o.emitTurnState()

	// Auto mode chains at most one step: interviewer to candidate. The
	// machine already paused on user_choice in every other case.
	if o.machine.Mode() == turns.ModeAuto && !o.machine.WaitingForNext() {
		next := o.machine.CurrentSpeaker()
		if next == turns.RoleInterviewer || next == turns.RoleCandidate {
			o.requestResponse(next)
		}
	}
}

func (o *Orchestrator) handleResponseDone(role turns.Role, report agent.ResponseReport) {
	if o.ended {
		return
	}
	if !report.Failed() {
		return
	}
	// A failed response never produces audio_done, so the turn would hang
	// waiting for an advance that cannot arrive.
	delete(o.awaitingAdvance, role)
	o.send(protocol.NewError(fmt.Sprintf("%s response failed: %s (%s)", role, report.ErrorMessage, report.ErrorCode)))
	logger.Warn("agent response failed", "session", o.sessionID, "role", string(role), "code", report.ErrorCode, "message", report.ErrorMessage)
}

func (o *Orchestrator) handleInputTranscriptDelta(role turns.Role, delta string) {
	if o.ended || !o.awaitingInput {
		return
	}
	o.log.AddDelta(turns.RoleHuman, delta)
	o.send(protocol.NewTranscriptDelta(turns.RoleHuman, delta))
}

// handleInputTranscriptDone commits the moderator's transcribed speech.
// When the audio was committed to both agents, only the first completed
// transcription wins; awaitingInput gates out the duplicate.
func (o *Orchestrator) handleInputTranscriptDone(role turns.Role, fullTranscript string) {
	if o.ended || !o.awaitingInput {
		return
	}
	o.awaitingInput = false

	text := fullTranscript
	if text == "" {
		text = o.log.PendingDelta(turns.RoleHuman)
	}
	if text == "" {
		return
	}

	var others []turns.Role
	for other := range o.connections {
		if other != role {
			others = append(others, other)
		}
	}
	o.commitHumanUtterance(text, others)
}

func (o *Orchestrator) handleAgentError(role turns.Role, err error) {
	o.ready[role] = false
	logger.Warn("agent connection error", "session", o.sessionID, "role", string(role), "error", err)
	o.send(protocol.NewError(fmt.Sprintf("%s connection error: %v", role, err)))
}

// handleAgentClose keeps one connection's failure out of the other's
// state: the session stays open, the closed role just stops being ready.
func (o *Orchestrator) handleAgentClose(role turns.Role) {
	if o.ended {
		return
	}
	o.ready[role] = false
	delete(o.awaitingAdvance, role)
	logger.Warn("agent connection closed unexpectedly", "session", o.sessionID, "role", string(role))
	o.send(protocol.NewError(fmt.Sprintf("%s connection closed", role)))
}

func (o *Orchestrator) persistEntry(entry transcript.Entry) {
	go func(sessionID string, entry transcript.Entry) {
		if err := o.store.AddTranscript(context.Background(), sessionID, entry); err != nil {
			logger.Warn("persistence transcript failed", "session", sessionID, "error", err)
		}
	}(o.sessionID, entry)
}

// endSession terminates the session exactly once: it freezes the turn
// machine, evaluates the moderator's performance, and pushes the
// evaluation followed by the session_ended notice.
func (o *Orchestrator) endSession(reason string) {
	if o.ended {
		return
	}
	o.ended = true
	o.endReason = reason

	o.machine.End()
	o.emitTurnState()

	if result, ok := o.evaluateSafely(); ok {
		o.send(protocol.NewEvaluation(result))
		go func(sessionID string, result scoring.EvaluationResult) {
			if err := o.store.SaveEvaluation(context.Background(), sessionID, result); err != nil {
				logger.Warn("persistence evaluation failed", "session", sessionID, "error", err)
			}
		}(o.sessionID, result)
	}

	o.send(protocol.NewSessionEnded(reason))

	go func(sessionID, reason string) {
		if err := o.store.EndSession(context.Background(), sessionID, reason); err != nil {
			logger.Warn("persistence end failed", "session", sessionID, "error", err)
		}
	}(o.sessionID, reason)

	logger.Info("session ended", "session", o.sessionID, "reason", reason, "entries", o.log.Len())
}

// evaluateSafely shields the teardown path from rubric panics (a
// miscompiled custom rule must not swallow the session_ended notice).
func (o *Orchestrator) evaluateSafely() (result scoring.EvaluationResult, ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("evaluation panicked", "session", o.sessionID, "panic", fmt.Sprint(recovered))
			ok = false
		}
	}()
	return o.engine.Evaluate(o.log.GetAll()), true
}
