package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session ready", event: NewSessionReady(), expected: KindSessionReady},
		{name: "audio delta", event: NewAudioDelta("UklGRg=="), expected: KindAudioDelta},
		{name: "audio done", event: NewAudioDone(), expected: KindAudioDone},
		{name: "transcript delta", event: NewTranscriptDelta("seg"), expected: KindTranscriptDelta},
		{name: "transcript done", event: NewTranscriptDone("text"), expected: KindTranscriptDone},
		{name: "response done", event: NewResponseDone("completed", "", ""), expected: KindResponseDone},
		{name: "input transcript delta", event: NewInputTranscriptDelta("seg"), expected: KindInputTranscriptDelta},
		{name: "input transcript done", event: NewInputTranscriptDone("text"), expected: KindInputTranscriptDone},
		{name: "error", event: NewErrorEvent("500", "boom"), expected: KindError},
		{name: "unknown", event: NewUnknown("mystery.type"), expected: KindUnknown},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestResponseDoneFailed(t *testing.T) {
	if NewResponseDone("completed", "", "").Failed() {
		t.Fatalf("expected completed response not to be failed")
	}
	if !NewResponseDone("failed", "server_error", "boom").Failed() {
		t.Fatalf("expected non-completed response to be failed")
	}
}
