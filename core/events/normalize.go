package events

import "encoding/json"

// wireError is the upstream error shape, nested in several message types.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireStatusDetails struct {
	Error *wireError `json:"error"`
}

type wireResponse struct {
	Status        string             `json:"status"`
	StatusDetails *wireStatusDetails `json:"status_details"`
}

// envelope is the superset of upstream message fields this module reads.
// Unknown fields are ignored by design.
type envelope struct {
	Type       string        `json:"type"`
	Delta      string        `json:"delta"`
	Transcript string        `json:"transcript"`
	Error      *wireError    `json:"error"`
	Response   *wireResponse `json:"response"`
}

// normalizers maps upstream type strings onto union constructors. Several
// upstream types collapse onto one normalized kind: text and audio
// transcript streams are not distinguished downstream.
var normalizers = map[string]func(envelope) Event{
	"session.created": func(envelope) Event { return NewSessionReady() },
	"session.updated": func(envelope) Event { return NewSessionReady() },

	"response.audio.delta": func(e envelope) Event { return NewAudioDelta(e.Delta) },
	"response.audio.done":  func(envelope) Event { return NewAudioDone() },

	"response.audio_transcript.delta": func(e envelope) Event { return NewTranscriptDelta(e.Delta) },
	"response.audio_transcript.done":  func(e envelope) Event { return NewTranscriptDone(e.Transcript) },
	"response.text.delta":             func(e envelope) Event { return NewTranscriptDelta(e.Delta) },
	"response.text.done":              func(e envelope) Event { return NewTranscriptDone(e.Transcript) },

	"response.done": normalizeResponseDone,

	"conversation.item.input_audio_transcription.delta": func(e envelope) Event {
		return NewInputTranscriptDelta(e.Delta)
	},
	"conversation.item.input_audio_transcription.completed": func(e envelope) Event {
		return NewInputTranscriptDone(e.Transcript)
	},

	"error": func(e envelope) Event {
		if e.Error != nil {
			return NewErrorEvent(e.Error.Code, e.Error.Message)
		}
		return NewErrorEvent("", "")
	},
}

func normalizeResponseDone(e envelope) Event {
	status := ""
	errorCode := ""
	errorMessage := ""
	if e.Response != nil {
		status = e.Response.Status
		if e.Response.StatusDetails != nil && e.Response.StatusDetails.Error != nil {
			errorCode = e.Response.StatusDetails.Error.Code
			errorMessage = e.Response.StatusDetails.Error.Message
		}
	}
	return NewResponseDone(status, errorCode, errorMessage)
}

// Normalize maps one raw upstream message onto the normalized union. It is
// total: malformed payloads and unrecognized type strings yield Unknown.
func Normalize(raw []byte) Event {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return NewUnknown("")
	}
	if normalize, ok := normalizers[e.Type]; ok {
		return normalize(e)
	}
	return NewUnknown(e.Type)
}

// noisyRawTypes are upstream notices too frequent or too low-information
// to keep in operational logs.
var noisyRawTypes = map[string]bool{
	"rate_limits.updated":               true,
	"input_audio_buffer.speech_started": true,
	"input_audio_buffer.speech_stopped": true,
}

// ShouldLog reports whether the event is worth an operational log line.
// Pure filter; no side effects.
func ShouldLog(event Event) bool {
	switch typedEvent := event.(type) {
	case AudioDelta:
		return false
	case Unknown:
		return !noisyRawTypes[typedEvent.RawType]
	}
	return true
}
