package events

// KindSessionReady identifies upstream session readiness.
const KindSessionReady Kind = "session.ready"

// SessionReady marks the upstream session as usable.
type SessionReady struct{ Base }

// NewSessionReady creates a session ready event.
func NewSessionReady() SessionReady {
	return SessionReady{Base: NewBase(KindSessionReady)}
}
