// Package events defines the normalized agent-connection event contract.
//
// Upstream realtime endpoints speak an open-ended set of string-tagged
// message types; this package maps them onto a closed union that the rest
// of the module can match exhaustively. Event kinds are grouped by
// namespace:
//
//   - session.*: connection lifecycle.
//   - response.*: one generated agent turn (transcript text, synthesized
//     audio, completion status).
//   - input.*: transcription of audio the session sent upstream.
//
// Semantics used across the package:
//
//   - Delta: append-only streamed piece, emitted in stream order.
//   - Done: terminal immutable value for the current stream phase.
//
// Normalization is total: any unrecognized upstream type becomes Unknown,
// never an error.
package events
