package events

const (
	// KindInputTranscriptDelta identifies streamed transcription of audio
	// sent upstream.
	KindInputTranscriptDelta Kind = "input.transcript_delta"
	// KindInputTranscriptDone identifies input transcription completion.
	KindInputTranscriptDone Kind = "input.transcript_done"
)

// InputTranscriptDelta carries a streamed fragment of the transcription of
// audio this session sent upstream.
type InputTranscriptDelta struct {
	Base
	Delta string
}

// NewInputTranscriptDelta creates an input transcript delta event.
func NewInputTranscriptDelta(delta string) InputTranscriptDelta {
	return InputTranscriptDelta{Base: NewBase(KindInputTranscriptDelta), Delta: delta}
}

// InputTranscriptDone carries the full transcription of one committed
// upstream audio buffer.
type InputTranscriptDone struct {
	Base
	Transcript string
}

// NewInputTranscriptDone creates an input transcript done event.
func NewInputTranscriptDone(transcript string) InputTranscriptDone {
	return InputTranscriptDone{Base: NewBase(KindInputTranscriptDone), Transcript: transcript}
}
