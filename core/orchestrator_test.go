package interview

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/agent/scripted"
	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/transcript"
	"github.com/parloq/interview-core/core/turns"
)

type messageRecorder struct {
	mu       sync.Mutex
	messages []protocol.ServerMessage
	arrivals chan protocol.ServerMessage
}

func newMessageRecorder() *messageRecorder {
	return &messageRecorder{arrivals: make(chan protocol.ServerMessage, 256)}
}

func (r *messageRecorder) Send(message protocol.ServerMessage) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
	select {
	case r.arrivals <- message:
	default:
	}
}

func (r *messageRecorder) all() []protocol.ServerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]protocol.ServerMessage, len(r.messages))
	copy(messages, r.messages)
	return messages
}

func (r *messageRecorder) count(messageType string) int {
	count := 0
	for _, message := range r.all() {
		if message.Type == messageType {
			count++
		}
	}
	return count
}

func (r *messageRecorder) waitFor(t *testing.T, match func(protocol.ServerMessage) bool) protocol.ServerMessage {
	t.Helper()
	for _, message := range r.all() {
		if match(message) {
			return message
		}
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case message := <-r.arrivals:
			if match(message) {
				return message
			}
		case <-deadline:
			t.Fatalf("timed out waiting for server message")
			return protocol.ServerMessage{}
		}
	}
}

func (r *messageRecorder) waitForType(t *testing.T, messageType string) protocol.ServerMessage {
	t.Helper()
	return r.waitFor(t, func(message protocol.ServerMessage) bool {
		return message.Type == messageType
	})
}

func scriptedFactory(lines map[turns.Role][]string, connections map[turns.Role]*scripted.Connection) ConnectionFactory {
	var mu sync.Mutex
	return func(_ context.Context, role turns.Role, _ SessionConfig, opts ...agent.Option) (agent.Connection, error) {
		connection := scripted.New(scripted.Config{
			Lines:    lines[role],
			Interval: time.Millisecond,
		}, opts...)
		mu.Lock()
		connections[role] = connection
		mu.Unlock()
		return connection, nil
	}
}

func startOrchestrator(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("orchestrator did not stop")
		}
	})
}

func TestSessionRunsToEndMarker(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"Tell me about your last project."},
		turns.RoleCandidate:   {"I led the migration. [END_OF_INTERVIEW]"},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})

	ready := recorder.waitForType(t, "session_ready")
	if ready.Pattern != string(protocol.PatternBoth) {
		t.Errorf("session_ready pattern = %q, want %q", ready.Pattern, protocol.PatternBoth)
	}
	if len(ready.Participants) != 2 {
		t.Errorf("participants = %v, want two", ready.Participants)
	}

	interviewerEntry := recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleInterviewer)
	})
	if interviewerEntry.Text != "Tell me about your last project." {
		t.Errorf("interviewer text = %q", interviewerEntry.Text)
	}

	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	o.Handle(protocol.NextTurn{})

	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleCandidate)
	})
	evaluation := recorder.waitForType(t, "evaluation")
	if evaluation.Evaluation == nil || evaluation.Evaluation.Report == "" {
		t.Errorf("evaluation missing report body")
	}
	ended := recorder.waitForType(t, "session_ended")
	if ended.Reason != "end_marker" {
		t.Errorf("end reason = %q, want end_marker", ended.Reason)
	}

	if got := recorder.count("evaluation"); got != 1 {
		t.Errorf("evaluation pushed %d times, want exactly once", got)
	}
	if got := recorder.count("session_ended"); got != 1 {
		t.Errorf("session_ended pushed %d times, want exactly once", got)
	}

	// Each agent heard the other's committed line as context.
	candidateContext := connections[turns.RoleCandidate].ContextMessages()
	if len(candidateContext) == 0 || !strings.Contains(candidateContext[0], "Tell me about your last project.") {
		t.Errorf("candidate context = %v, want interviewer line", candidateContext)
	}
}

func TestAbortMarkerEndsWithDistinctReason(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"We have to stop here. [ABORT_INTERVIEW]"},
		turns.RoleCandidate:   {"unused"},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})

	ended := recorder.waitForType(t, "session_ended")
	if ended.Reason != "abort_marker" {
		t.Errorf("end reason = %q, want abort_marker", ended.Reason)
	}
	if got := recorder.count("evaluation"); got != 1 {
		t.Errorf("evaluation pushed %d times, want exactly once", got)
	}
}

func TestDuplicateStartIsIgnored(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"First question."},
		turns.RoleCandidate:   {"First answer."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})
	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})

	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleInterviewer)
	})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	if got := recorder.count("session_ready"); got != 1 {
		t.Errorf("session_ready pushed %d times, want exactly once", got)
	}
	if got := recorder.count("transcript_committed"); got != 1 {
		t.Errorf("committed %d entries after duplicate start, want 1", got)
	}
}

func TestDuplicateNextTurnRequestsOneResponse(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"Question one.", "Question two."},
		turns.RoleCandidate:   {"Answer one.", "Answer two."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	o.Handle(protocol.NextTurn{})
	o.Handle(protocol.NextTurn{})

	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleCandidate)
	})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext && m.TurnState.TurnCount == 3
	})

	if got := recorder.count("transcript_committed"); got != 2 {
		t.Errorf("committed %d entries after duplicate next_turn, want 2", got)
	}
}

func TestFailedResponseIsNonFatal(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	// Empty interviewer script reports a failed response immediately.
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleCandidate: {"Still here."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})

	errorNotice := recorder.waitForType(t, "error")
	if !strings.Contains(errorNotice.Message, "script_empty") {
		t.Errorf("error message = %q, want script_empty code", errorNotice.Message)
	}
	if got := recorder.count("session_ended"); got != 0 {
		t.Errorf("session ended after failed response, want it to stay open")
	}

	// The moderator can still drive the conversation afterwards.
	o.Handle(protocol.HumanText{Text: "Let me rephrase.", Target: protocol.TargetBoth})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleHuman)
	})
}

func TestAgentCloseIsIsolatedFromSession(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"First question.", "Second question."},
		turns.RoleCandidate:   {"First answer."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	if err := connections[turns.RoleCandidate].Close(); err != nil {
		t.Fatalf("closing candidate connection: %v", err)
	}

	notice := recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "error" && strings.Contains(m.Message, "candidate connection closed")
	})
	if notice.Message == "" {
		t.Fatalf("expected a close notice")
	}
	if got := recorder.count("session_ended"); got != 0 {
		t.Errorf("session ended after one agent connection closed, want it to stay open")
	}

	// The surviving connection and the moderator are unaffected.
	o.Handle(protocol.HumanText{Text: "Carry on with the interviewer.", Target: protocol.TargetInterviewer})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleHuman)
	})

	o.Handle(protocol.EndSession{})
	ended := recorder.waitForType(t, "session_ended")
	if ended.Reason != "client_request" {
		t.Errorf("end reason = %q, want client_request", ended.Reason)
	}
}

func TestHumanTextCommitsAndForwards(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"Opening question."},
		turns.RoleCandidate:   {"Opening answer."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	o.Handle(protocol.HumanText{Text: "Please focus on architecture.", Target: protocol.TargetBoth})

	committed := recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleHuman)
	})
	if committed.DisplayName != "Moderator" {
		t.Errorf("display name = %q, want Moderator", committed.DisplayName)
	}

	deadline := time.After(2 * time.Second)
	for {
		messages := connections[turns.RoleCandidate].ContextMessages()
		found := false
		for _, message := range messages {
			if message == "Moderator: Please focus on architecture." {
				found = true
			}
		}
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("candidate never received forwarded text, got %v", messages)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAutoModeChainsInterviewerToCandidate(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"Walk me through your approach."},
		turns.RoleCandidate:   {"I start with the data model."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "auto", Pattern: protocol.PatternBoth})

	// The candidate answers without any next_turn from the moderator.
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleCandidate)
	})
	// But auto mode still pauses after the candidate's turn.
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	if got := recorder.count("transcript_committed"); got != 2 {
		t.Errorf("committed %d entries, want interviewer and candidate", got)
	}
}

func TestSingleAgentPatternForcesStepMode(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleCandidate: {"Practicing my answer."},
	}, connections)

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "auto", Pattern: protocol.PatternCandidateOnly})

	ready := recorder.waitForType(t, "session_ready")
	if len(ready.Participants) != 1 || ready.Participants[0] != string(turns.RoleCandidate) {
		t.Errorf("participants = %v, want candidate only", ready.Participants)
	}

	state := recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})
	if state.TurnState.Mode != string(turns.ModeStep) {
		t.Errorf("mode = %q, want forced step", state.TurnState.Mode)
	}
	if _, created := connections[turns.RoleInterviewer]; created {
		t.Errorf("interviewer connection created for candidate-only pattern")
	}
}

func TestCommittedAudioTranscriptionBecomesHumanEntry(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	var mu sync.Mutex
	factory := func(_ context.Context, role turns.Role, _ SessionConfig, opts ...agent.Option) (agent.Connection, error) {
		config := scripted.Config{
			Lines:    []string{"Scripted line."},
			Interval: time.Millisecond,
		}
		if role == turns.RoleInterviewer {
			config.InputTranscripts = []string{"How would you scale this?"}
		}
		connection := scripted.New(config, opts...)
		mu.Lock()
		connections[role] = connection
		mu.Unlock()
		return connection, nil
	}

	o := New(recorder, factory)
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	o.Handle(protocol.HumanAudioAppend{Target: protocol.TargetInterviewer, Audio: "Zm9v"})
	o.Handle(protocol.HumanAudioCommit{Target: protocol.TargetInterviewer})

	committed := recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "transcript_committed" && m.Speaker == string(turns.RoleHuman)
	})
	if committed.Text != "How would you scale this?" {
		t.Errorf("human entry text = %q, want transcription", committed.Text)
	}
}

func TestEndSessionOnClientRequest(t *testing.T) {
	recorder := newMessageRecorder()
	connections := map[turns.Role]*scripted.Connection{}
	factory := scriptedFactory(map[turns.Role][]string{
		turns.RoleInterviewer: {"Question."},
		turns.RoleCandidate:   {"Answer."},
	}, connections)

	store := &recordingStore{}
	o := New(recorder, factory, WithStore(store))
	startOrchestrator(t, o)

	o.Handle(protocol.StartSession{Mode: "step", Pattern: protocol.PatternBoth})
	recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.WaitingForNext
	})

	o.Handle(protocol.EndSession{})

	ended := recorder.waitForType(t, "session_ended")
	if ended.Reason != "client_request" {
		t.Errorf("end reason = %q, want client_request", ended.Reason)
	}
	finalState := recorder.waitFor(t, func(m protocol.ServerMessage) bool {
		return m.Type == "turn_state" && m.TurnState.Phase == string(turns.PhaseEnded)
	})
	if finalState.TurnState.WaitingForNext {
		t.Errorf("ended session still waiting for next turn")
	}

	// Commands after the end are absorbed silently.
	o.Handle(protocol.NextTurn{})
	o.Handle(protocol.HumanText{Text: "too late", Target: protocol.TargetBoth})
	time.Sleep(50 * time.Millisecond)
	if got := recorder.count("session_ended"); got != 1 {
		t.Errorf("session_ended pushed %d times, want exactly once", got)
	}

	deadline := time.After(2 * time.Second)
	for store.evaluationCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("evaluation never persisted")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

type recordingStore struct {
	mu          sync.Mutex
	started     []string
	entries     []transcript.Entry
	evaluations []scoring.EvaluationResult
	endReasons  []string
}

func (s *recordingStore) StartSession(_ context.Context, sessionID string, _ protocol.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, sessionID)
	return nil
}

func (s *recordingStore) AddTranscript(_ context.Context, _ string, entry transcript.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingStore) EndSession(_ context.Context, _ string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endReasons = append(s.endReasons, reason)
	return nil
}

func (s *recordingStore) SaveEvaluation(_ context.Context, _ string, result scoring.EvaluationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations = append(s.evaluations, result)
	return nil
}

func (s *recordingStore) evaluationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evaluations)
}
