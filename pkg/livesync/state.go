package livesync

import (
	"errors"
	"fmt"
)

// ConnState is the lifecycle state of the event stream connection
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Error
)

// ErrInvalidTransition is returned for a transition the current state does
// not allow
var ErrInvalidTransition = errors.New("invalid connection state transition")

// String returns a display name
func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// Dial starts a connection attempt. Allowed from Disconnected and Error.
func (s ConnState) Dial() (ConnState, error) {
	switch s {
	case Disconnected, Error:
		return Connecting, nil
	}
	return s, transitionError("dial", s)
}

// Open marks the stream as established. Allowed from Connecting.
func (s ConnState) Open() (ConnState, error) {
	if s == Connecting {
		return Connected, nil
	}
	return s, transitionError("open", s)
}

// Fail records a transport or fetch failure. Allowed from Connecting and
// Connected.
func (s ConnState) Fail() (ConnState, error) {
	switch s {
	case Connecting, Connected:
		return Error, nil
	}
	return s, transitionError("fail", s)
}

// Close tears the connection down. Allowed from every state.
func (s ConnState) Close() (ConnState, error) {
	return Disconnected, nil
}

func transitionError(op string, from ConnState) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, from)
}
