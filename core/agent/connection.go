// Package agent defines the capability contract shared by every streaming
// conversational endpoint variant. The orchestrator is handed a Connection
// by configuration and never learns which variant it is talking to.
package agent

import "context"

// Connection is one streaming conversational endpoint driving a single
// role. Implementations guarantee the callback ordering contract: per
// RequestResponse call, transcript deltas strictly precede exactly one
// transcript done, audio deltas strictly precede exactly one audio done,
// and exactly one response done closes the sequence.
type Connection interface {
	// Connect begins session setup. The session-ready callback fires
	// asynchronously, exactly once, when the remote session is usable.
	Connect(ctx context.Context) error
	// AddTextMessage injects text as conversational context without
	// requesting a response.
	AddTextMessage(text string) error
	// AppendAudio streams a base64-encoded audio chunk into the input
	// buffer.
	AppendAudio(base64Chunk string) error
	// CommitAudio finalizes the input audio buffer as one utterance.
	CommitAudio() error
	// ClearAudio discards the uncommitted input audio buffer.
	ClearAudio() error
	// RequestResponse asks the agent to produce its next turn.
	RequestResponse() error
	// CancelResponse aborts in-flight generation.
	CancelResponse() error
	// Close tears the connection down; the close callback always
	// eventually fires.
	Close() error
}

// ResponseReport describes how one generated response ended.
type ResponseReport struct {
	Status       string
	ErrorCode    string
	ErrorMessage string
}

// Failed reports whether the response ended without completing.
func (r ResponseReport) Failed() bool {
	return r.Status != "completed"
}

// Callbacks holds the observer hooks a connection invokes. Unset hooks
// are no-ops.
type Callbacks struct {
	// SessionReadyCallback is called once the remote session is usable.
	SessionReadyCallback func()
	// TranscriptDeltaCallback is called per streamed response text fragment.
	TranscriptDeltaCallback func(delta string)
	// TranscriptDoneCallback is called once per response with the full text.
	TranscriptDoneCallback func(transcript string)
	// AudioDeltaCallback is called per streamed synthesized audio chunk.
	AudioDeltaCallback func(audio string)
	// AudioDoneCallback is called when generated speech is fully available.
	AudioDoneCallback func()
	// ResponseDoneCallback is called once per response with its final status.
	ResponseDoneCallback func(report ResponseReport)
	// InputTranscriptDeltaCallback streams the transcription of committed
	// input audio.
	InputTranscriptDeltaCallback func(delta string)
	// InputTranscriptDoneCallback delivers the full input transcription.
	InputTranscriptDoneCallback func(transcript string)
	// ErrorCallback is called on upstream errors; these are non-fatal to
	// the connection unless the close callback also fires.
	ErrorCallback func(err error)
	// CloseCallback is called exactly once when the connection is torn down.
	CloseCallback func()
}

// Option configures connection callbacks.
type Option func(*Callbacks)

// NewCallbacks applies opts over no-op defaults, so implementations never
// have to nil-check before invoking a hook.
func NewCallbacks(opts ...Option) Callbacks {
	callbacks := Callbacks{
		SessionReadyCallback:         func() {},
		TranscriptDeltaCallback:      func(string) {},
		TranscriptDoneCallback:       func(string) {},
		AudioDeltaCallback:           func(string) {},
		AudioDoneCallback:            func() {},
		ResponseDoneCallback:         func(ResponseReport) {},
		InputTranscriptDeltaCallback: func(string) {},
		InputTranscriptDoneCallback:  func(string) {},
		ErrorCallback:                func(error) {},
		CloseCallback:                func() {},
	}
	for _, opt := range opts {
		opt(&callbacks)
	}
	return callbacks
}

func WithSessionReadyCallback(callback func()) Option {
	return func(c *Callbacks) { c.SessionReadyCallback = callback }
}

func WithTranscriptDeltaCallback(callback func(delta string)) Option {
	return func(c *Callbacks) { c.TranscriptDeltaCallback = callback }
}

func WithTranscriptDoneCallback(callback func(transcript string)) Option {
	return func(c *Callbacks) { c.TranscriptDoneCallback = callback }
}

func WithAudioDeltaCallback(callback func(audio string)) Option {
	return func(c *Callbacks) { c.AudioDeltaCallback = callback }
}

func WithAudioDoneCallback(callback func()) Option {
	return func(c *Callbacks) { c.AudioDoneCallback = callback }
}

func WithResponseDoneCallback(callback func(report ResponseReport)) Option {
	return func(c *Callbacks) { c.ResponseDoneCallback = callback }
}

func WithInputTranscriptDeltaCallback(callback func(delta string)) Option {
	return func(c *Callbacks) { c.InputTranscriptDeltaCallback = callback }
}

func WithInputTranscriptDoneCallback(callback func(transcript string)) Option {
	return func(c *Callbacks) { c.InputTranscriptDoneCallback = callback }
}

func WithErrorCallback(callback func(err error)) Option {
	return func(c *Callbacks) { c.ErrorCallback = callback }
}

func WithCloseCallback(callback func()) Option {
	return func(c *Callbacks) { c.CloseCallback = callback }
}
