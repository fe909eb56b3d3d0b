package protocol

import (
	"time"

	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/transcript"
	"github.com/parloq/interview-core/core/turns"
)

// TurnStateBody is the turn-state snapshot pushed after every transition.
type TurnStateBody struct {
	Phase          string         `json:"phase"`
	Speaker        string         `json:"speaker"`
	WaitingForNext bool           `json:"waiting_for_next"`
	Mode           string         `json:"mode"`
	TurnCount      int            `json:"turn_count"`
	RoleTurns      map[string]int `json:"role_turns,omitempty"`
}

// EvaluationBody carries one evaluation in all three presentations.
type EvaluationBody struct {
	Result  scoring.Payload `json:"result"`
	Report  string          `json:"report"`
	Summary string          `json:"summary"`
}

// ServerMessage is the single outbound envelope. Only the fields relevant
// to Type are populated; everything else is omitted on the wire.
type ServerMessage struct {
	Type string `json:"type"`

	SessionID    string   `json:"session_id,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	Participants []string `json:"participants,omitempty"`

	TurnState *TurnStateBody `json:"turn_state,omitempty"`

	Speaker     string `json:"speaker,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Delta       string `json:"delta,omitempty"`
	Text        string `json:"text,omitempty"`
	EntryID     string `json:"entry_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Audio       string `json:"audio,omitempty"`

	Evaluation *EvaluationBody `json:"evaluation,omitempty"`

	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// Phase mirrors the legacy phase-change notice for older clients.
	Phase string `json:"phase,omitempty"`
}

// NewSessionReady announces that all required connections are usable.
func NewSessionReady(sessionID string, pattern Pattern, participants []turns.Role) ServerMessage {
	names := make([]string, 0, len(participants))
	for _, participant := range participants {
		names = append(names, string(participant))
	}
	return ServerMessage{
		Type:         "session_ready",
		SessionID:    sessionID,
		Pattern:      string(pattern),
		Participants: names,
	}
}

// NewTurnState snapshots the turn machine for the client.
func NewTurnState(snapshot turns.Snapshot) ServerMessage {
	roleTurns := make(map[string]int, len(snapshot.RoleTurns))
	for role, count := range snapshot.RoleTurns {
		roleTurns[string(role)] = count
	}
	return ServerMessage{
		Type: "turn_state",
		TurnState: &TurnStateBody{
			Phase:          string(snapshot.Phase),
			Speaker:        string(snapshot.CurrentSpeaker),
			WaitingForNext: snapshot.WaitingForNext,
			Mode:           string(snapshot.Mode),
			TurnCount:      snapshot.TurnCount,
			RoleTurns:      roleTurns,
		},
	}
}

// NewPhaseChange mirrors the turn state as the legacy phase-change notice.
func NewPhaseChange(phase turns.Phase) ServerMessage {
	return ServerMessage{Type: "phase_change", Phase: string(phase)}
}

// NewTranscriptDelta relays a streamed transcript fragment.
func NewTranscriptDelta(speaker turns.Role, delta string) ServerMessage {
	return ServerMessage{Type: "transcript_delta", Speaker: string(speaker), Delta: delta}
}

// NewTranscriptCommitted announces a committed transcript entry.
func NewTranscriptCommitted(entry transcript.Entry) ServerMessage {
	return ServerMessage{
		Type:        "transcript_committed",
		Speaker:     string(entry.Speaker),
		DisplayName: entry.DisplayName,
		Text:        entry.Text,
		EntryID:     entry.ID,
		Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// NewAudioDelta relays a streamed audio chunk.
func NewAudioDelta(speaker turns.Role, audio string) ServerMessage {
	return ServerMessage{Type: "audio_delta", Speaker: string(speaker), Audio: audio}
}

// NewAudioDone announces that a speaker's generated audio is complete.
func NewAudioDone(speaker turns.Role) ServerMessage {
	return ServerMessage{Type: "audio_done", Speaker: string(speaker)}
}

// NewEvaluation pushes the session evaluation in all three presentations.
func NewEvaluation(result scoring.EvaluationResult) ServerMessage {
	return ServerMessage{
		Type: "evaluation",
		Evaluation: &EvaluationBody{
			Result:  scoring.FormatPayload(result),
			Report:  scoring.FormatReport(result),
			Summary: scoring.FormatSummary(result),
		},
	}
}

// NewError surfaces a non-fatal error to the client.
func NewError(message string) ServerMessage {
	return ServerMessage{Type: "error", Message: message}
}

// NewSessionEnded announces session termination with its reason.
func NewSessionEnded(reason string) ServerMessage {
	return ServerMessage{Type: "session_ended", Reason: reason}
}
