/*
Package chat contains the relay side of the real-time messaging feature.

This file defines the Manager struct, the central coordinator of the relay. It
tracks one connection per signed-in user, enforces single-session semantics by
kicking replaced connections, and creates, retrieves and cleans up the Room
instances that host per-conversation traffic.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"campusconnect/internal/app/db"
	"campusconnect/internal/pkg/logx"
)

// RoomCleanupMsg notifies the Manager that an idle room finished its run loop.
type RoomCleanupMsg struct {
	ConversationID string
}

// Manager coordinates all active conversation rooms and user connections.
type Manager struct {
	// rooms stores all Room instances, keyed by conversation id.
	rooms map[string]*Room

	// clients tracks the single live connection per user id.
	clients map[string]*Client

	// queries is the store used to persist relayed messages.
	queries *db.Queries

	// mu protects concurrent access to the rooms and clients maps.
	mu sync.RWMutex

	// the channel used by Rooms to notify the Manager to clean up and remove them.
	cleanup chan RoomCleanupMsg

	// wg is used to wait for the runCleanupLoop goroutine to finish during shutdown.
	wg sync.WaitGroup

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs and returns a new Manager instance.
func NewManager(queries *db.Queries) *Manager {
	managerLogger := logx.Logger().With().Str("component", "Manager").Logger()

	m := &Manager{
		rooms:   make(map[string]*Room),
		clients: make(map[string]*Client),
		queries: queries,
		cleanup: make(chan RoomCleanupMsg, 10),
		logger:  managerLogger,
	}

	m.wg.Add(1)

	go m.runCleanupLoop()

	return m
}

// Queries exposes the store handle for clients persisting relayed messages.
func (m *Manager) Queries() *db.Queries {
	return m.queries
}

// runCleanupLoop is a blocking loop that listens on the cleanup channel.
// When a RoomCleanupMsg is received, it calls deleteRoom to remove the corresponding room.
func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("Cleanup loop started.")

	for msg := range m.cleanup {
		m.deleteRoom(msg.ConversationID)
	}

	m.logger.Info().Msg("Cleanup loop stopped.")
}

// deleteRoom removes the specified room from the Manager's rooms map.
func (m *Manager) deleteRoom(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[conversationID]; ok {
		delete(m.rooms, conversationID)
		m.logger.Info().Str("conversation_id", conversationID).Msg("Room successfully removed.")
	}
}

// GetOrCreateRoom returns the room hosting the given conversation, creating it
// lazily and starting its Run loop on first join.
func (m *Manager) GetOrCreateRoom(conversationID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[conversationID]; ok {
		return room
	}

	newRoom := NewRoom(conversationID, m.cleanup)
	m.rooms[conversationID] = newRoom

	go newRoom.Run()

	m.logger.Info().Str("conversation_id", conversationID).Msg("New Room created and started.")
	return newRoom
}

// TrackClient records the connection as the single live session of its user.
// An existing connection for the same user id is kicked and replaced.
func (m *Manager) TrackClient(client *Client) {
	m.mu.Lock()

	if existing, ok := m.clients[client.user.ID]; ok && existing != client {
		m.logger.Warn().
			Str("user_id", client.user.ID).
			Msg("User already connected. Closing old connection for replacement.")

		existing.Kick("Session replaced by new connection. Check other tabs.")
	}

	m.clients[client.user.ID] = client
	m.mu.Unlock()
}

// UntrackClient clears the tracked connection for the user, but only if the
// connection being removed is still the tracked one. A stale async cleanup must
// never clobber a newer, already-reconnected session.
func (m *Manager) UntrackClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.clients[client.user.ID]; ok && current == client {
		delete(m.clients, client.user.ID)
	}
}

// Shutdown gracefully shuts down the Manager and all managed rooms.
// It stops all room Run loops, closes the cleanup channel, and waits for the cleanup goroutine to exit.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager cleanup loop...")

	m.mu.Lock()

	for _, room := range m.rooms {
		room.Stop()
	}
	m.rooms = nil

	m.mu.Unlock()

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
