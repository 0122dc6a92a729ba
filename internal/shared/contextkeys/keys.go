package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "photoshoot-studio context key " + string(c)
}

const (
	// UserIDKey carries the authenticated owner id set by the auth middleware.
	UserIDKey = contextKey("userID")
	// UserEmailKey carries the authenticated user's email.
	UserEmailKey = contextKey("userEmail")
	// SessionIDKey carries the id of the session the access token belongs to.
	SessionIDKey = contextKey("sessionID")
	// TokenKey carries the raw access token.
	TokenKey = contextKey("token")
	// RequestIDKey carries the request id assigned by the requestid middleware.
	RequestIDKey = contextKey("requestID")
	// RouteKey carries the client route a projector is currently serving.
	RouteKey = contextKey("route")
	// ComponentKey and OperationKey annotate log lines.
	ComponentKey = contextKey("component")
	OperationKey = contextKey("operation")
)
