package server

import (
	"github.com/m-mizutani/logseek/pkg/model"
)

type State int

const (
	StateUninitialized State = iota
	// StateInitialized follows a successful initialize request
	StateInitialized
	// StateReady follows the client's notifications/initialized
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Session is the per-connection protocol state. It is the only state kept
// between requests.
type Session struct {
	ID              model.SessionID
	State           State
	ProtocolVersion string
	Client          Implementation
}

func newSession() *Session {
	return &Session{
		ID:    model.NewSessionID(),
		State: StateUninitialized,
	}
}

// CanServeTools reports whether tools/list and tools/call are allowed.
func (s *Session) CanServeTools() bool {
	return s.State == StateInitialized || s.State == StateReady
}
