package session

import (
	"time"

	"github.com/arcforge/arcforge/internal/protocol"
)

// DefaultGrace is the reconnection grace window applied when Config isn't
// supplied explicitly.
const DefaultGrace = 30 * time.Second

// Config controls session lifecycle timing.
type Config struct {
	ReconnectGrace time.Duration
}

// DefaultConfig returns the documented default: a 30-second reconnect grace.
func DefaultConfig() Config {
	return Config{ReconnectGrace: DefaultGrace}
}

// Manager is a single-owner session registry: every method assumes
// exclusive access and performs no internal locking, to avoid hidden
// locking overhead on every lookup. Callers needing concurrent access (the
// connection handlers, in this framework) must guard every call with their
// own mutex — see internal/server.State.
type Manager struct {
	config   Config
	sessions map[protocol.PlayerID]*Session
	tokens   map[string]protocol.PlayerID
	now      func() time.Time
}

// NewManager builds an empty registry with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config:   cfg,
		sessions: make(map[protocol.PlayerID]*Session),
		tokens:   make(map[string]protocol.PlayerID),
		now:      time.Now,
	}
}

// Create reserves a new Connected session for playerID, issuing a fresh
// reconnection token. If a prior session exists and is Connected, this
// fails with AlreadyConnected; a prior Disconnected or Expired session is
// silently replaced (its old token is dropped).
func (m *Manager) Create(playerID protocol.PlayerID) (*Session, error) {
	if existing, ok := m.sessions[playerID]; ok {
		if existing.State == StateConnected {
			return nil, errAlreadyConnected(playerID)
		}
		delete(m.tokens, existing.ReconnectToken)
	}

	token := generateToken()
	s := &Session{
		PlayerID:       playerID,
		State:          StateConnected,
		ReconnectToken: token,
	}
	m.sessions[playerID] = s
	m.tokens[token] = playerID
	return s, nil
}

// Disconnect transitions playerID's session to Disconnected{since: now},
// starting the reconnection grace timer. The token is preserved.
func (m *Manager) Disconnect(playerID protocol.PlayerID) error {
	s, ok := m.sessions[playerID]
	if !ok {
		return errNotFound(playerID)
	}
	s.State = StateDisconnected
	s.DisconnectedSince = m.now()
	return nil
}

// Reconnect resumes a Disconnected session by its token, if still within
// grace. Expired-on-check transitions the session to Expired and reports
// SessionExpired rather than silently succeeding.
func (m *Manager) Reconnect(token string) (*Session, error) {
	playerID, ok := m.tokens[token]
	if !ok {
		return nil, errInvalidToken()
	}
	s := m.sessions[playerID]

	switch s.State {
	case StateDisconnected:
		if m.now().Sub(s.DisconnectedSince) > m.config.ReconnectGrace {
			s.State = StateExpired
			return nil, errExpired(playerID)
		}
		s.State = StateConnected
		return s, nil
	case StateConnected:
		return nil, errAlreadyConnected(playerID)
	case StateExpired:
		return nil, errExpired(playerID)
	default:
		return nil, errInvalidToken()
	}
}

// ExpireStale scans every Disconnected session and transitions those past
// grace to Expired, returning the player IDs that just expired so callers
// (e.g. the room registry) can react to the transition before cleanup
// removes the record entirely.
func (m *Manager) ExpireStale() []protocol.PlayerID {
	var expired []protocol.PlayerID
	now := m.now()
	for id, s := range m.sessions {
		if s.State == StateDisconnected && now.Sub(s.DisconnectedSince) > m.config.ReconnectGrace {
			s.State = StateExpired
			expired = append(expired, id)
		}
	}
	return expired
}

// CleanupExpired removes every Expired session and its token. Intended to
// run after ExpireStale so observers see the transition before the record
// disappears.
func (m *Manager) CleanupExpired() {
	for id, s := range m.sessions {
		if s.State == StateExpired {
			delete(m.tokens, s.ReconnectToken)
			delete(m.sessions, id)
		}
	}
}

// Get returns the session for playerID, if any.
func (m *Manager) Get(playerID protocol.PlayerID) (*Session, bool) {
	s, ok := m.sessions[playerID]
	return s, ok
}

// Len reports the number of tracked sessions (any state).
func (m *Manager) Len() int { return len(m.sessions) }

// IsEmpty reports whether the registry holds no sessions.
func (m *Manager) IsEmpty() bool { return len(m.sessions) == 0 }
