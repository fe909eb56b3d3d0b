// Package httpserver exposes interview sessions over websocket, one
// session per connection, plus health and protocol-introspection
// endpoints.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	interview "github.com/parloq/interview-core/core"
	"github.com/parloq/interview-core/core/protocol"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var sessionsOpened, _ = meter.Int64Counter("interview.http.sessions.opened")

// Server routes websocket clients onto per-connection orchestrators.
type Server struct {
	factory  interview.ConnectionFactory
	options  []interview.Option
	upgrader websocket.Upgrader
}

// New creates a server. Every accepted websocket connection gets its own
// orchestrator built from factory and opts.
func New(factory interview.ConnectionFactory, opts ...interview.Option) *Server {
	return &Server{
		factory: factory,
		options: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the instrumented HTTP handler for the whole API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/protocol/schema", s.handleSchema)
	mux.HandleFunc("/session", s.handleSession)
	return otelhttp.NewHandler(mux, "interview.http")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSchema serves the generated JSON schema of the outbound message
// envelope so clients can validate against the live server version.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(protocol.Schema())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sender := &wsSender{ws: ws}
	orchestrator := interview.New(sender, s.factory, s.options...)
	sessionsOpened.Add(r.Context(), 1)
	logger.Info("session opened", "session", orchestrator.SessionID(), "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		orchestrator.Run(ctx)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("client read failed", "session", orchestrator.SessionID(), "error", err)
			}
			break
		}
		orchestrator.HandleRaw(data)
	}

	orchestrator.Close()
	<-done
	_ = ws.Close()
	logger.Info("session closed", "session", orchestrator.SessionID())
}

// wsSender serializes outbound frames onto one websocket. The
// orchestrator sends from a single goroutine, but close racing a late
// send still needs the lock.
type wsSender struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (s *wsSender) Send(message protocol.ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ws.WriteJSON(message); err != nil {
		logger.Warn("failed to write server message", "type", message.Type, "error", err)
	}
}
