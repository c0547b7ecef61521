/*
Package chatsync implements the client side of the real-time messaging feature:
the single-connection lifecycle, conversation resolution, the merge of the two
message delivery paths (socket push and store snapshot) into one deduplicated
timeline, and the ephemeral typing indicator.

The relay persists every sent message to the store and rebroadcasts it over the
socket, so the same logical message can arrive twice, via either channel, in
either order. The snapshot path additionally delivers the FULL current result
set on every change, never deltas. All merging is identifier-based; see Thread.
*/
package chatsync

import "campusconnect/internal/app/chat"

// Socket is the bidirectional event channel to the relay. Exactly one live
// Socket exists per signed-in session.
//
// Handlers must be registered before Connect is called; an implementation may
// start delivering events the moment the connection is up, and an event fired
// before its handler is attached would be lost. Connect never reports failure
// synchronously: a failed handshake surfaces through the OnConnectError
// handler.
type Socket interface {
	// OnConnect registers the handler fired when the connection is established.
	OnConnect(fn func())

	// OnConnectError registers the handler fired when the handshake fails.
	OnConnectError(fn func(reason string))

	// OnDisconnect registers the handler fired when an established connection closes.
	OnDisconnect(fn func(reason string))

	// OnMessage registers the handler for relay-pushed chat messages.
	OnMessage(fn func(msg chat.Message))

	// OnMessageSent registers the handler for send acknowledgments.
	OnMessageSent(fn func(ack chat.MessageSentPayload))

	// OnTyping registers the handler for typing indicator events.
	OnTyping(fn func(conversationID, senderName string, typing bool))

	// OffAll unregisters every handler. Events arriving afterwards are dropped.
	OffAll()

	// Connect starts the handshake. Outcome is reported through OnConnect or
	// OnConnectError.
	Connect()

	// Disconnect closes the connection. Safe to call on a never-connected or
	// already-closed socket.
	Disconnect()

	// Connected reports whether the connection is currently established.
	Connected() bool

	// JoinRoom asks the relay to move this connection into a conversation room.
	JoinRoom(conversationID string) error

	// Send emits an outgoing chat message for the relay to persist and
	// rebroadcast.
	Send(payload chat.SendMessagePayload) error

	// SetTyping emits a typing (true) or stop-typing (false) signal.
	SetTyping(conversationID string, typing bool) error
}
