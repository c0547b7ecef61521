/*
Package chat contains the relay side of the real-time messaging feature.

This file defines the Room struct, the hub for a single conversation. It manages
client membership (register/unregister), event broadcasting to the other
participant, and automatic shutdown based on inactivity.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"campusconnect/internal/pkg/logx"
)

const broadcastChannelBuffer = 256

const (
	// RoomMaxClients is the participant capacity of a conversation room:
	// exactly one student and one teacher.
	RoomMaxClients = 2

	// RoomInactivityTimeout is the duration after which an empty room will automatically shut down.
	RoomInactivityTimeout = 5 * time.Minute
)

// outbound couples a broadcast envelope with the sender to exclude.
type outbound struct {
	envelope Envelope
	senderID string
}

// Room represents the live hub of a single conversation.
type Room struct {
	// ConversationID is the durable conversation this room hosts.
	ConversationID string

	// a map of currently joined clients, keyed by their user ID.
	clients map[string]*Client

	// a buffered channel of events to be fanned out to participants.
	broadcast chan outbound

	// a channel for clients requesting to join the room.
	register chan *Client

	// a channel for clients requesting to leave the room.
	unregister chan *Client

	// a write-only channel used to notify the Manager to clean up this room.
	cleanupChan chan<- RoomCleanupMsg

	// used to signal the Room to stop its Run loop immediately.
	stopChan chan struct{}

	// the timer used to track room inactivity.
	shutdownTimer *time.Timer

	// mu protects access to the clients map.
	mu sync.RWMutex

	// structured logger with room context.
	logger zerolog.Logger
}

// NewRoom creates and initializes a new Room instance.
func NewRoom(conversationID string, cleanupChan chan<- RoomCleanupMsg) *Room {
	roomLogger := logx.Logger().With().
		Str("conversation_id", conversationID).
		Logger()

	return &Room{
		ConversationID: conversationID,
		clients:        make(map[string]*Client),
		broadcast:      make(chan outbound, broadcastChannelBuffer),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		cleanupChan:    cleanupChan,
		stopChan:       make(chan struct{}),
		shutdownTimer:  time.NewTimer(RoomInactivityTimeout),
		logger:         roomLogger,
	}
}

// Stop sends a signal to immediately terminate the Room's Run loop.
func (r *Room) Stop() {
	r.logger.Info().Msg("Received stop signal. Stopping room immediately.")

	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Run starts the main event loop for the Room.
// It handles client registration, deregistration, event broadcasting, and room shutdown.
func (r *Room) Run() {
	defer func() {
		r.logger.Info().Msg("Room Run loop finished. Notifying Manager for cleanup.")

		if r.shutdownTimer != nil {
			r.shutdownTimer.Stop()
		}

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logx.Warn("Recovered from panic during Manager cleanup notification (channel likely closed).")
				}
			}()

			select {
			case r.cleanupChan <- RoomCleanupMsg{ConversationID: r.ConversationID}:
				r.logger.Info().Msg("Sent cleanup notification to Manager.")
			default:
				r.logger.Warn().Msg("Manager cleanup channel blocked/full. Skipping cleanup notification.")
			}
		}()

		r.mu.Lock()
		for _, client := range r.clients {
			client.detachRoom(r)
		}
		r.clients = make(map[string]*Client)
		r.mu.Unlock()
	}()

	timerChan := r.shutdownTimer.C

	for {
		select {
		case client := <-r.register:
			r.mu.Lock()

			if r.shutdownTimer.Stop() {
				select {
				case <-r.shutdownTimer.C:
				default:
				}
			}

			r.clients[client.user.ID] = client
			r.logger.Info().
				Str("user_id", client.user.ID).
				Int("total_users", len(r.clients)).
				Msg("Client joined conversation room.")

			r.mu.Unlock()

		case client := <-r.unregister:
			r.mu.Lock()

			if currentClient, ok := r.clients[client.user.ID]; ok && currentClient == client {
				delete(r.clients, client.user.ID)

				r.logger.Info().
					Str("user_id", client.user.ID).
					Int("total_users", len(r.clients)).
					Msg("Client left conversation room.")
			} else if ok && currentClient != client {
				r.logger.Info().
					Str("stale_user_id", client.user.ID).
					Msg("Ignoring unregister for STALE connection.")
			}

			if len(r.clients) == 0 {
				r.logger.Info().Msg("Room is empty. Arming inactivity shutdown.")
				if r.shutdownTimer.Stop() {
					select {
					case <-r.shutdownTimer.C:
					default:
					}
				}
				r.shutdownTimer.Reset(RoomInactivityTimeout)
			}

			r.mu.Unlock()

		case out := <-r.broadcast:
			messageBytes, err := json.Marshal(out.envelope)
			if err != nil {
				r.logger.Error().
					Str("envelope_id", out.envelope.ID).
					Err(err).
					Msg("Error marshaling envelope for broadcast.")
				continue
			}

			r.mu.RLock()
			for _, client := range r.clients {
				if client.user.ID == out.senderID {
					continue
				}

				if err := client.queueRaw(messageBytes); err != nil {
					r.logger.Warn().
						Str("user_id", client.user.ID).
						Msg("Client send channel full, dropping broadcast for client.")
				}
			}
			r.mu.RUnlock()

		case <-timerChan:
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached. Shutting down Room.Run() loop.", RoomInactivityTimeout)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// Broadcast queues an envelope for delivery to every participant except the sender.
func (r *Room) Broadcast(envelope Envelope, senderID string) {
	select {
	case r.broadcast <- outbound{envelope: envelope, senderID: senderID}:
	default:
		r.logger.Warn().Str("envelope_id", envelope.ID).Msg("Room broadcast channel full, dropping event.")
	}
}

// RegisterClient safely adds a client to the registration queue.
func (r *Room) RegisterClient(client *Client) {
	select {
	case r.register <- client:
	case <-r.stopChan:
		r.logger.Warn().Msg("Register attempted on stopped room.")
	}
}

// UnregisterClient safely adds a client to the deregistration queue.
func (r *Room) UnregisterClient(client *Client) {
	select {
	case r.unregister <- client:
	case <-r.stopChan:
	}
}
