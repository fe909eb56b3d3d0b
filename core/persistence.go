package interview

import (
	"context"

	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/scoring"
	"github.com/parloq/interview-core/core/transcript"
)

// Store is the persistence collaborator. All calls are fire-and-forget
// from the orchestrator's point of view: failures are logged and never
// block the conversational path.
type Store interface {
	StartSession(ctx context.Context, sessionID string, pattern protocol.Pattern) error
	AddTranscript(ctx context.Context, sessionID string, entry transcript.Entry) error
	EndSession(ctx context.Context, sessionID string, reason string) error
	SaveEvaluation(ctx context.Context, sessionID string, result scoring.EvaluationResult) error
}

type nopStore struct{}

func (nopStore) StartSession(context.Context, string, protocol.Pattern) error { return nil }
func (nopStore) AddTranscript(context.Context, string, transcript.Entry) error {
	return nil
}
func (nopStore) EndSession(context.Context, string, string) error { return nil }
func (nopStore) SaveEvaluation(context.Context, string, scoring.EvaluationResult) error {
	return nil
}
