package events

const (
	// KindError identifies an upstream error notice.
	KindError Kind = "error"
	// KindUnknown identifies an upstream message this module does not model.
	KindUnknown Kind = "unknown"
)

// ErrorEvent carries an upstream error notice.
type ErrorEvent struct {
	Base
	Code    string
	Message string
}

// NewErrorEvent creates an error event.
func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Base: NewBase(KindError), Code: code, Message: message}
}

// Unknown wraps an unrecognized upstream message type. It carries no
// payload; the raw type string is retained for diagnostics only.
type Unknown struct {
	Base
	RawType string
}

// NewUnknown creates an unknown event.
func NewUnknown(rawType string) Unknown {
	return Unknown{Base: NewBase(KindUnknown), RawType: rawType}
}
