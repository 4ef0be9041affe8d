package session

import (
	"time"

	"github.com/arcforge/arcforge/internal/protocol"
)

// State is a Session's position in the Connected/Disconnected/Expired
// machine.
type State int

const (
	StateConnected State = iota
	StateDisconnected
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	case StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Session is one player's connection-lifecycle record. DisconnectedSince
// is only meaningful when State == StateDisconnected.
type Session struct {
	PlayerID          protocol.PlayerID
	State             State
	DisconnectedSince time.Time
	ReconnectToken    string
}
