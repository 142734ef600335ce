package scribe

import (
	"errors"
	"fmt"
)

// AuthError indicates a bad or rejected credential. Fatal to the session;
// never retried internally.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: status %d: %s", e.Status, e.Body)
}

// FormatError indicates a well-formed HTTP response whose body lacks the
// expected fields.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "unexpected response format: " + e.Reason
}

// NetworkError wraps a transport-level failure of a one-shot call.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// ConnectError wraps a failure to establish the streaming session. The
// caller decides whether to retry the connect.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "connect: " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError wraps a mid-session socket failure. Triggers the session
// controller's reconnection policy.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates a malformed incoming frame. Logged and dropped;
// never terminates the session.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return e.Err }

// ServerError is an explicit error frame reported by the server. Fatal
// server errors (auth, quota) tear the session down; generic ones do not.
type ServerError struct {
	Kind    string
	Message string
	Fatal   bool
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return e.Message
}

// IsFatalServerError reports whether err carries a session-terminal server
// error frame.
func IsFatalServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Fatal
}
