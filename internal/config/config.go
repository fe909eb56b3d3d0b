// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AgentBackend selects which connection variant the server hands to new
// sessions.
type AgentBackend string

const (
	// BackendRealtime drives sessions against the remote realtime endpoint.
	BackendRealtime AgentBackend = "realtime"
	// BackendScripted drives sessions with deterministic scripted agents,
	// useful for demos and local development without an API key.
	BackendScripted AgentBackend = "scripted"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string
	// Backend selects the agent connection variant.
	Backend AgentBackend
	// RealtimeURL overrides the realtime websocket endpoint.
	RealtimeURL string
	// APIKey authenticates realtime sessions; OPENAI_API_KEY is also
	// honored by the connection itself.
	APIKey string
	// InterviewerVoice and CandidateVoice select synthesized voices.
	InterviewerVoice string
	CandidateVoice   string
	// TranscriptionModel enables moderator audio transcription when set.
	TranscriptionModel string
	// RulesPath points at a YAML scoring rubric; empty keeps the default.
	RulesPath string
	// ShutdownTimeout bounds graceful server shutdown.
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:         envOr("INTERVIEW_LISTEN_ADDR", ":8080"),
		Backend:            AgentBackend(envOr("INTERVIEW_AGENT_BACKEND", string(BackendRealtime))),
		RealtimeURL:        os.Getenv("INTERVIEW_REALTIME_URL"),
		APIKey:             os.Getenv("OPENAI_API_KEY"),
		InterviewerVoice:   envOr("INTERVIEW_INTERVIEWER_VOICE", "alloy"),
		CandidateVoice:     envOr("INTERVIEW_CANDIDATE_VOICE", "verse"),
		TranscriptionModel: envOr("INTERVIEW_TRANSCRIPTION_MODEL", "whisper-1"),
		RulesPath:          os.Getenv("INTERVIEW_RULES_PATH"),
		ShutdownTimeout:    10 * time.Second,
	}

	switch cfg.Backend {
	case BackendRealtime, BackendScripted:
	default:
		return Config{}, fmt.Errorf("unknown agent backend %q", cfg.Backend)
	}

	if raw, ok := os.LookupEnv("INTERVIEW_SHUTDOWN_TIMEOUT_SECONDS"); ok {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid shutdown timeout %q", raw)
		}
		cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
	}

	if cfg.Backend == BackendRealtime && cfg.APIKey == "" {
		return Config{}, fmt.Errorf("realtime backend requires OPENAI_API_KEY")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
