// Package scripted provides a deterministic agent connection that replays
// a pre-written list of lines, honoring the same callback ordering and
// timing contract as the realtime variant but without any network I/O.
package scripted

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/parloq/interview-core/core/agent"
)

// ExhaustionPolicy decides what happens when RequestResponse is called
// more times than the script has lines.
type ExhaustionPolicy string

const (
	// ExhaustionLoop wraps back to the first line, the behavior the
	// modeled system exhibits.
	ExhaustionLoop ExhaustionPolicy = "loop"
	// ExhaustionStrict reports a failed response instead of wrapping.
	ExhaustionStrict ExhaustionPolicy = "strict"
)

const (
	defaultChunkSize = 8
	defaultInterval  = 10 * time.Millisecond
)

// Config shapes the scripted playback.
type Config struct {
	// Lines are replayed in order, one per RequestResponse call.
	Lines []string
	// InputTranscripts are replayed in order, one per CommitAudio call.
	InputTranscripts []string
	// ChunkSize is the number of runes per streamed transcript delta.
	ChunkSize int
	// Interval is the pause between streamed chunks.
	Interval time.Duration
	// Exhaustion selects loop-vs-fail behavior past the last line.
	Exhaustion ExhaustionPolicy
}

// Connection is the deterministic test double.
type Connection struct {
	config    Config
	callbacks agent.Callbacks

	mu           sync.Mutex
	connected    bool
	closed       bool
	lineIndex    int
	commitIndex  int
	audioPending int
	contextLog   []string
	cancelActive context.CancelFunc

	readyOnce sync.Once
	closeOnce sync.Once
	inflight  sync.WaitGroup
}

// New creates a scripted connection. Zero config fields fall back to an
// 8-rune chunk size, a 10ms interval and the loop exhaustion policy.
func New(config Config, opts ...agent.Option) *Connection {
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaultChunkSize
	}
	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}
	if config.Exhaustion == "" {
		config.Exhaustion = ExhaustionLoop
	}
	return &Connection{
		config:    config,
		callbacks: agent.NewCallbacks(opts...),
	}
}

// Connect marks the connection usable and fires the ready callback
// asynchronously, exactly once.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("scripted connection is closed")
	}
	c.connected = true
	c.mu.Unlock()

	c.readyOnce.Do(func() {
		go c.callbacks.SessionReadyCallback()
	})
	return nil
}

// AddTextMessage records injected context; retrievable via ContextMessages.
func (c *Connection) AddTextMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("scripted connection is closed")
	}
	c.contextLog = append(c.contextLog, text)
	return nil
}

// ContextMessages returns every text message injected so far.
func (c *Connection) ContextMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]string, len(c.contextLog))
	copy(messages, c.contextLog)
	return messages
}

// AppendAudio counts a pending input audio chunk.
func (c *Connection) AppendAudio(base64Chunk string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("scripted connection is closed")
	}
	c.audioPending++
	return nil
}

// CommitAudio finalizes pending input audio and replays the next scripted
// input transcript, if one is configured.
func (c *Connection) CommitAudio() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("scripted connection is closed")
	}
	c.audioPending = 0
	transcript := ""
	hasTranscript := false
	if c.commitIndex < len(c.config.InputTranscripts) {
		transcript = c.config.InputTranscripts[c.commitIndex]
		hasTranscript = true
		c.commitIndex++
	}
	c.mu.Unlock()

	if hasTranscript {
		c.callbacks.InputTranscriptDeltaCallback(transcript)
		c.callbacks.InputTranscriptDoneCallback(transcript)
	}
	return nil
}

// ClearAudio discards pending input audio.
func (c *Connection) ClearAudio() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.audioPending = 0
	return nil
}

// RequestResponse streams the next scripted line through the full
// callback sequence: transcript deltas, transcript done, audio deltas,
// audio done, response done.
func (c *Connection) RequestResponse() error {
	c.mu.Lock()
	if c.closed || !c.connected {
		c.mu.Unlock()
		return fmt.Errorf("scripted connection is not connected")
	}
	if c.cancelActive != nil {
		c.mu.Unlock()
		return fmt.Errorf("response already in flight")
	}
	if len(c.config.Lines) == 0 {
		c.mu.Unlock()
		go c.callbacks.ResponseDoneCallback(agent.ResponseReport{
			Status:       "failed",
			ErrorCode:    "script_empty",
			ErrorMessage: "no scripted lines configured",
		})
		return nil
	}
	if c.lineIndex >= len(c.config.Lines) {
		if c.config.Exhaustion == ExhaustionStrict {
			c.mu.Unlock()
			go c.callbacks.ResponseDoneCallback(agent.ResponseReport{
				Status:       "failed",
				ErrorCode:    "script_exhausted",
				ErrorMessage: "scripted lines exhausted",
			})
			return nil
		}
		c.lineIndex = 0
	}
	line := c.config.Lines[c.lineIndex]
	c.lineIndex++

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelActive = cancel
	c.inflight.Add(1)
	c.mu.Unlock()

	go c.stream(ctx, line)
	return nil
}

func (c *Connection) stream(ctx context.Context, line string) {
	defer c.inflight.Done()
	defer func() {
		c.mu.Lock()
		c.cancelActive = nil
		c.mu.Unlock()
	}()

	chunks := chunkRunes(line, c.config.ChunkSize)
	for _, chunk := range chunks {
		if !c.pause(ctx) {
			c.callbacks.ResponseDoneCallback(agent.ResponseReport{Status: "cancelled"})
			return
		}
		c.callbacks.TranscriptDeltaCallback(chunk)
	}
	c.callbacks.TranscriptDoneCallback(line)

	// Synthesized audio is simulated as the base64 of each text chunk, so
	// tests can assert chunk boundaries without a codec.
	for _, chunk := range chunks {
		if !c.pause(ctx) {
			c.callbacks.ResponseDoneCallback(agent.ResponseReport{Status: "cancelled"})
			return
		}
		c.callbacks.AudioDeltaCallback(base64.StdEncoding.EncodeToString([]byte(chunk)))
	}
	c.callbacks.AudioDoneCallback()
	c.callbacks.ResponseDoneCallback(agent.ResponseReport{Status: "completed"})
}

func (c *Connection) pause(ctx context.Context) bool {
	timer := time.NewTimer(c.config.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// CancelResponse aborts the in-flight scripted stream, if any.
func (c *Connection) CancelResponse() error {
	c.mu.Lock()
	cancel := c.cancelActive
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Close stops streaming and fires the close callback exactly once.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.closed = true
	cancel := c.cancelActive
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.inflight.Wait()
	c.closeOnce.Do(c.callbacks.CloseCallback)
	return nil
}

func chunkRunes(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
