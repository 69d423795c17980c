package peer

import (
	"errors"
	"fmt"
)

var (
	ErrPeerClosed     = errors.New("peer connection closed")
	ErrUnknownPeer    = errors.New("unknown peer")
	ErrBadDescription = errors.New("malformed session description")
	ErrBadCandidate   = errors.New("malformed ice candidate")
)

// SessionError annotates a failure with the operation and the remote peer it
// concerned.
type SessionError struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewPeerError(op, peer string, err error) *SessionError {
	return &SessionError{Op: op, Peer: peer, Err: err}
}
