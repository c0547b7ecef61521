package chatsync

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"campusconnect/internal/pkg/logx"
)

// ErrNotConnected is returned by socket operations attempted while no
// connection is established.
var ErrNotConnected = errors.New("chatsync: socket not connected")

// ConnManager maintains exactly one live socket connection for the lifetime of
// a signed-in session, and exactly zero otherwise.
//
// Connection failures are reported, not retried: on connect_error the manager
// records a user-facing error string and proactively disconnects instead of
// leaning on transport-level reconnection, which would retry without bound.
// The consumer decides whether to offer a manual retry.
type ConnManager struct {
	mu     sync.Mutex
	socket Socket
	errMsg string

	logger zerolog.Logger
}

// NewConnManager constructs an empty manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		logger: logx.Logger().With().Str("component", "ConnManager").Logger(),
	}
}

// Establish registers the lifecycle handlers on the given socket and connects
// it, tracking it as the session's single connection. A no-op if a socket is
// already tracked.
//
// Handlers are attached before Connect so no early event can fire into an
// unhandled socket.
func (m *ConnManager) Establish(sock Socket) {
	m.mu.Lock()
	if m.socket != nil {
		m.mu.Unlock()
		m.logger.Warn().Msg("Establish called while a socket is already tracked. Ignoring.")
		return
	}
	m.socket = sock
	m.errMsg = ""
	m.mu.Unlock()

	sock.OnConnect(func() {
		m.mu.Lock()
		if m.socket == sock {
			m.errMsg = ""
		}
		m.mu.Unlock()

		m.logger.Info().Msg("Relay connection established.")
	})

	sock.OnConnectError(func(reason string) {
		m.mu.Lock()
		tracked := m.socket == sock
		if tracked {
			m.errMsg = "Chat is unavailable: " + reason
		}
		m.mu.Unlock()

		if tracked {
			m.logger.Warn().Str("reason", reason).Msg("Relay connection failed. Disconnecting, no automatic retry.")
			sock.Disconnect()
		}
	})

	sock.OnDisconnect(func(reason string) {
		m.logger.Info().Str("reason", reason).Msg("Relay connection closed.")
	})

	sock.Connect()
}

// Socket returns the tracked connection, or nil when none exists.
func (m *ConnManager) Socket() Socket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socket
}

// Err returns the latest user-facing connection error, empty when healthy.
func (m *ConnManager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// Teardown unregisters every handler on the given socket and disconnects it.
// The tracked reference is cleared only when the socket being torn down is the
// one currently tracked, so a stale async cleanup cannot clobber a newer,
// already-reconnected socket.
func (m *ConnManager) Teardown(sock Socket) {
	if sock == nil {
		return
	}

	sock.OffAll()
	sock.Disconnect()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.socket == sock {
		m.socket = nil
		m.errMsg = ""
	}
}
