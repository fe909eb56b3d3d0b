// Command interviewd serves interview sessions over websocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	interview "github.com/parloq/interview-core/core"
	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/agent/realtime"
	"github.com/parloq/interview-core/core/agent/scripted"
	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/turns"
	"github.com/parloq/interview-core/internal/config"
	"github.com/parloq/interview-core/internal/httpserver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	options, err := orchestratorOptions(cfg)
	if err != nil {
		return err
	}

	server := httpserver.New(connectionFactory(cfg), options...)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		fmt.Printf("interviewd listening on %s (backend: %s)\n", cfg.ListenAddr, cfg.Backend)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func orchestratorOptions(cfg config.Config) ([]interview.Option, error) {
	var options []interview.Option
	if cfg.RulesPath != "" {
		file, err := os.Open(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("opening rules file: %w", err)
		}
		defer file.Close()
		rules, err := scoring.LoadRuleSet(file)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", cfg.RulesPath, err)
		}
		options = append(options, interview.WithRules(rules))
	}
	return options, nil
}

func connectionFactory(cfg config.Config) interview.ConnectionFactory {
	if cfg.Backend == config.BackendScripted {
		return scriptedFactory()
	}
	return realtimeFactory(cfg)
}

func realtimeFactory(cfg config.Config) interview.ConnectionFactory {
	return func(_ context.Context, role turns.Role, session interview.SessionConfig, opts ...agent.Option) (agent.Connection, error) {
		voice := cfg.InterviewerVoice
		if role == turns.RoleCandidate {
			voice = cfg.CandidateVoice
		}
		return realtime.New(realtime.Config{
			URL:                cfg.RealtimeURL,
			APIKey:             cfg.APIKey,
			Instructions:       instructionsFor(role, session),
			Voice:              voice,
			TranscriptionModel: cfg.TranscriptionModel,
		}, opts...), nil
	}
}

func scriptedFactory() interview.ConnectionFactory {
	demoLines := map[turns.Role][]string{
		turns.RoleInterviewer: {
			"Thanks for joining. Could you walk me through a recent project you are proud of?",
			"Interesting. What was the hardest technical decision you had to make there?",
			"That covers everything I wanted to ask. [END_OF_INTERVIEW]",
		},
		turns.RoleCandidate: {
			"Of course. I recently led the rollout of an event-driven ingestion pipeline.",
			"Choosing between at-least-once delivery and strict ordering took the most deliberation.",
		},
	}
	return func(_ context.Context, role turns.Role, _ interview.SessionConfig, opts ...agent.Option) (agent.Connection, error) {
		return scripted.New(scripted.Config{Lines: demoLines[role]}, opts...), nil
	}
}

// instructionsFor builds the role prompt from the session configuration,
// folding in any persona override supplied by the client.
func instructionsFor(role turns.Role, session interview.SessionConfig) string {
	if persona, ok := session.Personas[string(role)]; ok && persona != "" {
		return persona
	}

	proficiency := session.Proficiency
	if proficiency == "" {
		proficiency = "mid-level"
	}
	switch role {
	case turns.RoleCandidate:
		return fmt.Sprintf(
			"You are a %s software engineering candidate in a job interview. "+
				"Answer questions naturally and concretely, drawing on realistic project experience. "+
				"Keep answers under four sentences.",
			proficiency)
	default:
		return fmt.Sprintf(
			"You are a professional technical interviewer assessing a %s software engineering candidate. "+
				"Ask one focused question at a time and follow up on weak answers. "+
				"When the interview has run its course, say your closing remark and append the marker %s.",
			proficiency, interview.DefaultEndMarker)
	}
}
