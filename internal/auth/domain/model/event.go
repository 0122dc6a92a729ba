package model

// SessionChangedEvent is the event bus type carrying a SessionEvent.
const SessionChangedEvent = "session.changed"

// SessionEventKind names a transition in a user's session lifecycle.
type SessionEventKind string

const (
	EventInitialSession SessionEventKind = "INITIAL_SESSION"
	EventSignedIn       SessionEventKind = "SIGNED_IN"
	EventSignedOut      SessionEventKind = "SIGNED_OUT"
	EventTokenRefreshed SessionEventKind = "TOKEN_REFRESHED"
)

// SessionEvent is delivered to OnSessionChange subscribers. Session is nil
// for EventSignedOut; UserID and SessionID are always set.
type SessionEvent struct {
	Kind      SessionEventKind
	UserID    string
	SessionID string
	Session   *Session
}
