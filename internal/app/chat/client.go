/*
Package chat contains the relay side of the real-time messaging feature.

This file defines the Client struct, representing the single active WebSocket
connection of a signed-in user. It manages the message pumps (ReadPump and
WritePump), room membership for the currently open conversation, and the
persist-then-rebroadcast handling of sent messages.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// timeout for persisting a relayed message to the store.
	persistTimeout = 5 * time.Second

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// Client represents the active WebSocket connection of a signed-in user.
type Client struct {
	// the relay manager owning this connection.
	manager *Manager

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// associated account identity.
	user user.User

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// roomMu protects the current room pointer across pumps.
	roomMu sync.Mutex

	// room is the conversation room currently joined, nil when browsing.
	room *Room

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(manager *Manager, wsConn *websocket.Conn, u user.User) *Client {
	clientLogger := logx.Logger().With().
		Str("user_id", u.ID).
		Logger()

	return &Client{
		manager: manager,
		conn:    wsConn,
		user:    u,
		send:    make(chan []byte, 256),
		logger:  clientLogger,
	}
}

// ReadPump handles reading events from the WebSocket connection.
// It handles heartbeats (Pong), event dispatch, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundEvent(messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.leaveCurrentRoom()
	c.manager.UntrackClient(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundEvent handles raw byte frames received from the client.
func (c *Client) processInboundEvent(messageBytes []byte) {
	var inbound struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch inbound.Type {
	case TypeJoinRoom:
		c.handleJoinRoom(inbound.Payload)

	case TypeSendMessage:
		c.handleSendMessage(inbound.Payload)

	case TypeTyping, TypeStopTyping:
		c.handleTyping(inbound.Type, inbound.Payload)

	default:
		c.logger.Warn().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// handleJoinRoom validates conversation membership and moves the connection
// into the conversation's room, leaving any previously joined room first.
func (c *Client) handleJoinRoom(payloadBytes json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil || payload.ConversationID == "" {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	conv, err := c.manager.Queries().GetConversationByID(ctx, payload.ConversationID)
	if err != nil {
		if db.IsNotFound(err) {
			c.SendError(errs.NewError(errs.ErrConversationNotFound))
		} else {
			c.logger.Error().Err(err).Msg("Conversation lookup failed during join")
			c.SendError(errs.NewError(errs.ErrUnknown))
		}
		return
	}

	if conv.StudentID != c.user.ID && conv.TeacherID != c.user.ID {
		c.SendError(errs.NewError(errs.ErrConversationForbidden))
		return
	}

	c.leaveCurrentRoom()

	room := c.manager.GetOrCreateRoom(conv.ID)
	room.RegisterClient(c)

	c.roomMu.Lock()
	c.room = room
	c.roomMu.Unlock()

	c.sendEvent(TypeRoomJoined, RoomJoinedPayload{ConversationID: conv.ID})
}

// handleSendMessage persists the message to the store (which fires the snapshot
// notification), acknowledges the sender, and rebroadcasts to the other
// participant for low-latency delivery.
func (c *Client) handleSendMessage(payloadBytes json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid SEND_MESSAGE payload")
		return
	}

	room := c.currentRoom()
	if room == nil || room.ConversationID != payload.ConversationID {
		c.SendError(errs.NewError(errs.ErrConversationForbidden))
		return
	}

	if len(payload.Body) == 0 || len(payload.Body) > MaxBodyBytes {
		c.SendError(errs.NewError(errs.ErrMessageContentTooLong))
		return
	}

	record := Message{
		ID:             randx.MessageID(),
		ConversationID: payload.ConversationID,
		SenderID:       c.user.ID,
		RecipientID:    payload.RecipientID,
		Body:           payload.Body,
		SentAt:         time.UnixMilli(payload.SentAt),
		Delivered:      true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := c.manager.Queries().InsertMessage(ctx, db.InsertMessageParams{
		ID:             record.ID,
		ConversationID: record.ConversationID,
		SenderID:       record.SenderID,
		RecipientID:    record.RecipientID,
		Body:           record.Body,
		SentAt:         record.SentAt,
		Delivered:      record.Delivered,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", record.ID).Msg("Failed to persist relayed message")
		c.SendError(errs.NewError(errs.ErrUnknown))
		return
	}

	c.sendEvent(TypeMessageSent, MessageSentPayload{
		MessageID: record.ID,
		SentAt:    record.SentAt.UnixMilli(),
	})

	envelope, err := NewEnvelope(TypeMessageReceived, c.user, record)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build MESSAGE_RECEIVED envelope")
		return
	}

	room.Broadcast(envelope, c.user.ID)
}

// handleTyping forwards the ephemeral typing signal to the other participant.
// Typing state is never persisted and requires no acknowledgment.
func (c *Client) handleTyping(msgType MessageType, payloadBytes json.RawMessage) {
	var payload TypingPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid typing payload")
		return
	}

	room := c.currentRoom()
	if room == nil || room.ConversationID != payload.ConversationID {
		return
	}

	payload.SenderName = c.user.Name
	payload.Typing = msgType == TypeTyping

	envelope, err := NewEnvelope(msgType, c.user, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build typing envelope")
		return
	}

	room.Broadcast(envelope, c.user.ID)
}

// currentRoom returns the room currently joined, or nil.
func (c *Client) currentRoom() *Room {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	return c.room
}

// leaveCurrentRoom unregisters the client from its current room, if any.
func (c *Client) leaveCurrentRoom() {
	c.roomMu.Lock()
	room := c.room
	c.room = nil
	c.roomMu.Unlock()

	if room != nil {
		room.UnregisterClient(c)
	}
}

// detachRoom clears the room pointer if it still references the given room.
// Called by a room tearing itself down; a newer joined room must not be cleared.
func (c *Client) detachRoom(room *Room) {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()

	if c.room == room {
		c.room = nil
	}
}

// WritePump handles writing messages from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// queueRaw attempts to enqueue pre-marshaled bytes to the client's send channel.
func (c *Client) queueRaw(messageBytes []byte) error {
	select {
	case c.send <- messageBytes:
		return nil
	default:
		return errs.NewError(errs.ErrUnknown)
	}
}

// sendEvent marshals and queues a relay-generated event for this client.
func (c *Client) sendEvent(msgType MessageType, payload any) {
	envelope, err := NewEnvelope(msgType, SystemUser, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(msgType)).Msg("Failed to build event envelope")
		return
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling event for client")
		return
	}

	if err := c.queueRaw(messageBytes); err != nil {
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
	}
}

// SendError constructs and sends a TypeError event to the client.
func (c *Client) SendError(err error) {
	var code int
	var message string

	if customErr, ok := err.(*errs.CustomError); ok {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = "Internal server error."
	}

	c.sendEvent(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// Kick gracefully closes the client's connection by sending a custom WebSocket
// Close Frame (Code 4001) indicating that the session was replaced.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Sending WS Kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(
		WsCloseCodeSessionKicked,
		reason,
	)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS 4001 Close Message.")
	}

	select {
	case <-c.send:
	default:
		close(c.send)
	}
}
