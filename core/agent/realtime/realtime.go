// Package realtime implements the agent connection over a streaming
// speech-to-speech websocket endpoint.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/events"
)

const defaultURL = "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview"

// Config identifies and shapes the remote agent session.
type Config struct {
	// URL is the websocket endpoint; a default realtime endpoint is used
	// when empty.
	URL string
	// APIKey authenticates the session; falls back to OPENAI_API_KEY.
	APIKey string
	// Instructions is the role prompt installed via session.update.
	Instructions string
	// Voice selects the synthesized voice.
	Voice string
	// TranscriptionModel enables transcription of input audio when set.
	TranscriptionModel string
}

// Connection drives one remote realtime session.
type Connection struct {
	config    Config
	callbacks agent.Callbacks

	writeMu sync.Mutex
	ws      *websocket.Conn

	readyOnce sync.Once
	closeOnce sync.Once
}

// New creates an unconnected realtime connection.
func New(config Config, opts ...agent.Option) *Connection {
	if config.URL == "" {
		config.URL = defaultURL
	}
	if config.Voice == "" {
		config.Voice = "alloy"
	}
	return &Connection{
		config:    config,
		callbacks: agent.NewCallbacks(opts...),
	}
}

// Connect dials the endpoint, installs the session configuration and
// starts the read pump. The session-ready callback fires when the remote
// session acknowledges.
func (c *Connection) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "realtime.Connect")
	defer span.End()

	apiKey := c.config.APIKey
	if apiKey == "" {
		key, ok := os.LookupEnv("OPENAI_API_KEY")
		if !ok {
			return fmt.Errorf("realtime api key not found")
		}
		apiKey = key
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.URL, header)
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}
	c.ws = ws

	if err := c.send(c.sessionUpdate()); err != nil {
		_ = ws.Close()
		return fmt.Errorf("failed to configure session: %w", err)
	}

	go c.processIncomingMessages(ws)
	return nil
}

func (c *Connection) sessionUpdate() map[string]any {
	session := map[string]any{
		"modalities":   []string{"text", "audio"},
		"instructions": c.config.Instructions,
		"voice":        c.config.Voice,
	}
	if c.config.TranscriptionModel != "" {
		session["input_audio_transcription"] = map[string]any{
			"model": c.config.TranscriptionModel,
		}
	}
	return map[string]any{"type": "session.update", "session": session}
}

// processIncomingMessages reads from its own reference to the socket;
// Close nils the shared field concurrently, so the pump must never load it.
func (c *Connection) processIncomingMessages(ws *websocket.Conn) {
	defer c.closeOnce.Do(c.callbacks.CloseCallback)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.callbacks.ErrorCallback(fmt.Errorf("websocket read failed: %w", err))
			}
			return
		}

		event := events.Normalize(data)
		if events.ShouldLog(event) {
			logger.Debug("upstream event", "kind", string(event.Kind()))
		}
		c.dispatch(event)
	}
}

func (c *Connection) dispatch(event events.Event) {
	switch typedEvent := event.(type) {
	case events.SessionReady:
		c.readyOnce.Do(c.callbacks.SessionReadyCallback)
	case events.TranscriptDelta:
		c.callbacks.TranscriptDeltaCallback(typedEvent.Delta)
	case events.TranscriptDone:
		c.callbacks.TranscriptDoneCallback(typedEvent.Transcript)
	case events.AudioDelta:
		c.callbacks.AudioDeltaCallback(typedEvent.Audio)
	case events.AudioDone:
		c.callbacks.AudioDoneCallback()
	case events.ResponseDone:
		c.callbacks.ResponseDoneCallback(agent.ResponseReport{
			Status:       typedEvent.Status,
			ErrorCode:    typedEvent.ErrorCode,
			ErrorMessage: typedEvent.ErrorMessage,
		})
	case events.InputTranscriptDelta:
		c.callbacks.InputTranscriptDeltaCallback(typedEvent.Delta)
	case events.InputTranscriptDone:
		c.callbacks.InputTranscriptDoneCallback(typedEvent.Transcript)
	case events.ErrorEvent:
		c.callbacks.ErrorCallback(fmt.Errorf("upstream error %s: %s", typedEvent.Code, typedEvent.Message))
	case events.Unknown:
		// Unmodeled upstream chatter; already filtered by ShouldLog.
	}
}

func (c *Connection) send(message any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.ws == nil {
		return fmt.Errorf("realtime connection is not connected")
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// AddTextMessage injects text into the remote conversation as context.
func (c *Connection) AddTextMessage(text string) error {
	return c.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// AppendAudio streams a base64 audio chunk into the input buffer.
func (c *Connection) AppendAudio(base64Chunk string) error {
	return c.send(map[string]any{"type": "input_audio_buffer.append", "audio": base64Chunk})
}

// CommitAudio finalizes the input audio buffer.
func (c *Connection) CommitAudio() error {
	return c.send(map[string]any{"type": "input_audio_buffer.commit"})
}

// ClearAudio discards the uncommitted input audio buffer.
func (c *Connection) ClearAudio() error {
	return c.send(map[string]any{"type": "input_audio_buffer.clear"})
}

// RequestResponse asks the remote agent to produce its next turn.
func (c *Connection) RequestResponse() error {
	return c.send(map[string]any{"type": "response.create"})
}

// CancelResponse aborts in-flight generation.
func (c *Connection) CancelResponse() error {
	return c.send(map[string]any{"type": "response.cancel"})
}

// Close tears the websocket down. The close callback fires once the read
// pump exits, or immediately if the pump never started.
func (c *Connection) Close() error {
	c.writeMu.Lock()
	ws := c.ws
	c.ws = nil
	c.writeMu.Unlock()

	if ws == nil {
		c.closeOnce.Do(c.callbacks.CloseCallback)
		return nil
	}
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err := ws.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}
	return nil
}
