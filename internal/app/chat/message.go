/*
Package chat contains the relay side of the real-time messaging feature: rooms
keyed by conversation id, per-user connections, and the event protocol shared
with clients.

This file defines the wire envelope and the payload types exchanged over the
socket. Inbound chat messages are persisted by the relay before rebroadcast, so
every client sees the same authoritative record through either delivery path.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/randx"
)

// MessageType identifies the kind of event carried by an Envelope.
type MessageType string

// Client-to-relay event types.
const (
	TypeJoinRoom    MessageType = "JOIN_ROOM"
	TypeSendMessage MessageType = "SEND_MESSAGE"
	TypeTyping      MessageType = "TYPING"
	TypeStopTyping  MessageType = "STOP_TYPING"
)

// Relay-to-client event types.
const (
	TypeMessageReceived MessageType = "MESSAGE_RECEIVED"
	TypeMessageSent     MessageType = "MESSAGE_SENT"
	TypeRoomJoined      MessageType = "ROOM_JOINED"
	TypeError           MessageType = "ERROR"
)

// SystemUser is the sender identity attached to relay-generated events.
var SystemUser = user.User{ID: "system", Name: "System"}

// Envelope is the framing of every event on the socket.
type Envelope struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Sender    user.User       `json:"sender"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an Envelope with a fresh id and the current timestamp,
// marshaling the given payload.
func NewEnvelope(msgType MessageType, sender user.User, payload any) (Envelope, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}

	return Envelope{
		ID:        randx.MessageID(),
		Type:      msgType,
		Sender:    sender,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payloadBytes,
	}, nil
}

// Message is the chat message record shared by the relay, the store and the
// client synchronization layer.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	RecipientID    string    `json:"recipientId"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sentAt"`
	Delivered      bool      `json:"delivered"`
	Read           bool      `json:"read"`
}

// FromRow converts a store row into the shared message record.
func FromRow(row db.MessageRow) Message {
	return Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		RecipientID:    row.RecipientID,
		Body:           row.Body,
		SentAt:         row.SentAt,
		Delivered:      row.Delivered,
		Read:           row.Read,
	}
}

// FromRows converts a store snapshot, preserving its order.
func FromRows(rows []db.MessageRow) []Message {
	out := make([]Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out
}

// JoinRoomPayload asks the relay to move the connection into a conversation room.
type JoinRoomPayload struct {
	ConversationID string `json:"conversationId"`
}

// SendMessagePayload carries an outgoing chat message. SentAt is the client's
// provisional timestamp; the relay assigns the durable message id.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	RecipientID    string `json:"recipientId"`
	Body           string `json:"body"`
	SentAt         int64  `json:"sentAt"`
}

// TypingPayload carries the ephemeral typing signal. Never persisted.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	SenderName     string `json:"senderName"`
	Typing         bool   `json:"typing"`
}

// MessageSentPayload acknowledges a persisted message back to its sender.
type MessageSentPayload struct {
	MessageID string `json:"messageId"`
	SentAt    int64  `json:"sentAt"`
}

// RoomJoinedPayload confirms room membership to the joining client.
type RoomJoinedPayload struct {
	ConversationID string `json:"conversationId"`
}

// ErrorPayload reports a relay-side failure to the client.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MaxBodyBytes is the maximum allowed size (in bytes) for message body text.
const MaxBodyBytes = 5000
