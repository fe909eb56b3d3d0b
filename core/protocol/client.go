// Package protocol defines the message contract between a client and a
// session orchestrator. Inbound messages decode into a closed union so the
// orchestrator can match them exhaustively; string-typed dispatch stops at
// this package boundary.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks an inbound message whose type is not part of the
// contract. The orchestrator logs and drops these.
var ErrUnknownType = errors.New("unknown client message type")

// Target addresses human input at one or both agents.
type Target string

const (
	TargetInterviewer Target = "interviewer"
	TargetCandidate   Target = "candidate"
	TargetBoth        Target = "both"
)

// Pattern selects which roles participate in a session.
type Pattern string

const (
	PatternInterviewerOnly Pattern = "interviewer"
	PatternCandidateOnly   Pattern = "candidate"
	PatternBoth            Pattern = "both"
)

// ClientMessage is implemented by every inbound message variant.
type ClientMessage interface {
	isClientMessage()
}

// StartSession begins a session with the given configuration.
type StartSession struct {
	Mode        string
	Pattern     Pattern
	Proficiency string
	Personas    map[string]string
}

// SetMode changes the turn-advance policy mid-session.
type SetMode struct {
	Mode string
}

// NextTurn resolves a pending user choice.
type NextTurn struct{}

// HumanText submits moderator text to one or both agents.
type HumanText struct {
	Target Target
	Text   string
}

// HumanAudioAppend streams a chunk of moderator audio to a target.
type HumanAudioAppend struct {
	Target Target
	Audio  string
}

// HumanAudioCommit finalizes streamed moderator audio at a target.
type HumanAudioCommit struct {
	Target Target
}

// HumanSpeechStart signals the moderator started speaking.
type HumanSpeechStart struct{}

// HumanSpeechDone signals the moderator finished speaking.
type HumanSpeechDone struct{}

// PlaybackFinished reports that the client finished playing a speaker's
// generated audio.
type PlaybackFinished struct {
	Speaker string
}

// EndSession requests session termination.
type EndSession struct{}

func (StartSession) isClientMessage()     {}
func (SetMode) isClientMessage()          {}
func (NextTurn) isClientMessage()         {}
func (HumanText) isClientMessage()        {}
func (HumanAudioAppend) isClientMessage() {}
func (HumanAudioCommit) isClientMessage() {}
func (HumanSpeechStart) isClientMessage() {}
func (HumanSpeechDone) isClientMessage()  {}
func (PlaybackFinished) isClientMessage() {}
func (EndSession) isClientMessage()       {}

type clientEnvelope struct {
	Type        string            `json:"type"`
	Mode        string            `json:"mode"`
	Pattern     string            `json:"pattern"`
	Proficiency string            `json:"proficiency"`
	Personas    map[string]string `json:"personas"`
	Target      string            `json:"target"`
	Text        string            `json:"text"`
	Audio       string            `json:"audio"`
	Speaker     string            `json:"speaker"`
}

// legacyAliases maps message types accepted permanently for backward
// compatibility onto their modern equivalents.
var legacyAliases = map[string]string{
	"start":         "start_session",
	"audio":         "human_audio_append",
	"audio_commit":  "human_audio_commit",
	"playback_done": "playback_finished",
	"continue":      "next_turn",
	"speech_start":  "human_speech_start",
	"speech_done":   "human_speech_done",
	"stop":          "end_session",
}

func normalizeTarget(target string) Target {
	switch Target(target) {
	case TargetInterviewer, TargetCandidate:
		return Target(target)
	}
	return TargetBoth
}

// Decode parses one inbound client frame. Unknown types return
// ErrUnknownType; legacy aliases decode to the same variants as their
// modern counterparts.
func Decode(raw []byte) (ClientMessage, error) {
	var envelope clientEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed client message: %w", err)
	}

	messageType := envelope.Type
	if modern, ok := legacyAliases[messageType]; ok {
		messageType = modern
	}

	switch messageType {
	case "start_session":
		pattern := Pattern(envelope.Pattern)
		switch pattern {
		case PatternInterviewerOnly, PatternCandidateOnly, PatternBoth:
		default:
			pattern = PatternBoth
		}
		return StartSession{
			Mode:        envelope.Mode,
			Pattern:     pattern,
			Proficiency: envelope.Proficiency,
			Personas:    envelope.Personas,
		}, nil
	case "set_mode":
		return SetMode{Mode: envelope.Mode}, nil
	case "next_turn":
		return NextTurn{}, nil
	case "human_text":
		return HumanText{Target: normalizeTarget(envelope.Target), Text: envelope.Text}, nil
	case "human_audio_append":
		return HumanAudioAppend{Target: normalizeTarget(envelope.Target), Audio: envelope.Audio}, nil
	case "human_audio_commit":
		return HumanAudioCommit{Target: normalizeTarget(envelope.Target)}, nil
	case "human_speech_start":
		return HumanSpeechStart{}, nil
	case "human_speech_done":
		return HumanSpeechDone{}, nil
	case "playback_finished":
		return PlaybackFinished{Speaker: envelope.Speaker}, nil
	case "end_session":
		return EndSession{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
}
