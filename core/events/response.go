package events

const (
	// KindAudioDelta identifies a streamed synthesized audio chunk.
	KindAudioDelta Kind = "response.audio_delta"
	// KindAudioDone identifies synthesized audio stream completion.
	KindAudioDone Kind = "response.audio_done"
	// KindTranscriptDelta identifies streamed response transcript text.
	KindTranscriptDelta Kind = "response.transcript_delta"
	// KindTranscriptDone identifies response transcript completion.
	KindTranscriptDone Kind = "response.transcript_done"
	// KindResponseDone identifies completion of a whole generated response.
	KindResponseDone Kind = "response.done"
)

// ResponseStatusCompleted is the upstream status of a successful response.
const ResponseStatusCompleted = "completed"

// AudioDelta carries a base64-encoded synthesized audio chunk.
type AudioDelta struct {
	Base
	Audio string
}

// NewAudioDelta creates an audio delta event.
func NewAudioDelta(audio string) AudioDelta {
	return AudioDelta{Base: NewBase(KindAudioDelta), Audio: audio}
}

// AudioDone marks the end of the synthesized audio stream for one response.
type AudioDone struct{ Base }

// NewAudioDone creates an audio done event.
func NewAudioDone() AudioDone {
	return AudioDone{Base: NewBase(KindAudioDone)}
}

// TranscriptDelta carries a streamed response transcript fragment.
type TranscriptDelta struct {
	Base
	Delta string
}

// NewTranscriptDelta creates a transcript delta event.
func NewTranscriptDelta(delta string) TranscriptDelta {
	return TranscriptDelta{Base: NewBase(KindTranscriptDelta), Delta: delta}
}

// TranscriptDone carries the full transcript of one generated response.
type TranscriptDone struct {
	Base
	Transcript string
}

// NewTranscriptDone creates a transcript done event.
func NewTranscriptDone(transcript string) TranscriptDone {
	return TranscriptDone{Base: NewBase(KindTranscriptDone), Transcript: transcript}
}

// ResponseDone marks the end of one generated response, successful or not.
type ResponseDone struct {
	Base
	Status       string
	ErrorCode    string
	ErrorMessage string
}

// Failed reports whether the response ended without completing.
func (e ResponseDone) Failed() bool {
	return e.Status != ResponseStatusCompleted
}

// NewResponseDone creates a response done event.
func NewResponseDone(status, errorCode, errorMessage string) ResponseDone {
	return ResponseDone{
		Base:         NewBase(KindResponseDone),
		Status:       status,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}
}
