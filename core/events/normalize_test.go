package events

import "testing"

func TestNormalizeKnownTypes(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected Kind
	}{
		{name: "session created", raw: `{"type":"session.created"}`, expected: KindSessionReady},
		{name: "session updated", raw: `{"type":"session.updated"}`, expected: KindSessionReady},
		{name: "audio delta", raw: `{"type":"response.audio.delta","delta":"UklGRg=="}`, expected: KindAudioDelta},
		{name: "audio done", raw: `{"type":"response.audio.done"}`, expected: KindAudioDone},
		{name: "audio transcript delta", raw: `{"type":"response.audio_transcript.delta","delta":"hel"}`, expected: KindTranscriptDelta},
		{name: "audio transcript done", raw: `{"type":"response.audio_transcript.done","transcript":"hello"}`, expected: KindTranscriptDone},
		{name: "text delta", raw: `{"type":"response.text.delta","delta":"hel"}`, expected: KindTranscriptDelta},
		{name: "text done", raw: `{"type":"response.text.done","transcript":"hello"}`, expected: KindTranscriptDone},
		{name: "response done", raw: `{"type":"response.done","response":{"status":"completed"}}`, expected: KindResponseDone},
		{name: "input transcript delta", raw: `{"type":"conversation.item.input_audio_transcription.delta","delta":"he"}`, expected: KindInputTranscriptDelta},
		{name: "input transcript done", raw: `{"type":"conversation.item.input_audio_transcription.completed","transcript":"hey"}`, expected: KindInputTranscriptDone},
		{name: "error", raw: `{"type":"error","error":{"code":"bad","message":"boom"}}`, expected: KindError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Normalize([]byte(testCase.raw)).Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestNormalizeExtractsFields(t *testing.T) {
	event := Normalize([]byte(`{"type":"response.audio_transcript.delta","delta":"frag"}`))
	delta, ok := event.(TranscriptDelta)
	if !ok {
		t.Fatalf("expected TranscriptDelta, got %T", event)
	}
	if delta.Delta != "frag" {
		t.Fatalf("expected delta %q, got %q", "frag", delta.Delta)
	}

	event = Normalize([]byte(`{"type":"response.done","response":{"status":"failed","status_details":{"error":{"code":"server_error","message":"upstream exploded"}}}}`))
	done, ok := event.(ResponseDone)
	if !ok {
		t.Fatalf("expected ResponseDone, got %T", event)
	}
	if done.Status != "failed" || done.ErrorCode != "server_error" || done.ErrorMessage != "upstream exploded" {
		t.Fatalf("expected nested error flattened, got %+v", done)
	}
	if !done.Failed() {
		t.Fatalf("expected failed response")
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	inputs := []string{
		`{"type":"somebody.invented.this"}`,
		`{"type":""}`,
		`{}`,
		`not json at all`,
		``,
		`{"type":"response.done"}`,
	}
	for _, input := range inputs {
		event := Normalize([]byte(input))
		if event == nil {
			t.Fatalf("expected non-nil event for input %q", input)
		}
	}

	unknown, ok := Normalize([]byte(`{"type":"somebody.invented.this"}`)).(Unknown)
	if !ok {
		t.Fatalf("expected Unknown for unrecognized type")
	}
	if unknown.RawType != "somebody.invented.this" {
		t.Fatalf("expected raw type retained, got %q", unknown.RawType)
	}
}

func TestShouldLogFiltersNoise(t *testing.T) {
	if ShouldLog(NewAudioDelta("UklGRg==")) {
		t.Fatalf("expected audio deltas to be non-loggable")
	}
	for _, rawType := range []string{"rate_limits.updated", "input_audio_buffer.speech_started", "input_audio_buffer.speech_stopped"} {
		if ShouldLog(Normalize([]byte(`{"type":"` + rawType + `"}`))) {
			t.Fatalf("expected %q to be non-loggable", rawType)
		}
	}
	if !ShouldLog(NewTranscriptDone("text")) {
		t.Fatalf("expected transcript done to be loggable")
	}
	if !ShouldLog(NewUnknown("mystery.type")) {
		t.Fatalf("expected generic unknown types to be loggable")
	}
}
