package chatsync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campusconnect/internal/app/chat"
	"campusconnect/internal/pkg/logx"
)

// dialTimeout bounds the single connection attempt. There is no retry: a
// failed handshake is surfaced through OnConnectError and that is the end of it.
const dialTimeout = 10 * time.Second

// handlers holds the registered event callbacks of a WebSocket.
type handlers struct {
	onConnect      func()
	onConnectError func(reason string)
	onDisconnect   func(reason string)
	onMessage      func(msg chat.Message)
	onMessageSent  func(ack chat.MessageSentPayload)
	onTyping       func(conversationID, senderName string, typing bool)
}

// WebSocket is the gorilla/websocket-backed Socket implementation. The URL
// carries the session's identity token as a query parameter since WebSocket
// handshakes cannot set custom headers from every client environment.
type WebSocket struct {
	url string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	h         handlers

	// dialGen invalidates in-flight dials: Disconnect bumps it, and a dial
	// goroutine only adopts its connection if the generation it started under
	// is still current.
	dialGen int

	// writeMu serializes frames; gorilla connections support one concurrent writer.
	writeMu sync.Mutex

	logger zerolog.Logger
}

// assert interface compliance at compile time.
var _ Socket = (*WebSocket)(nil)

// NewWebSocket constructs an unconnected socket for the given relay URL.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		url:    url,
		logger: logx.Logger().With().Str("component", "WebSocket").Logger(),
	}
}

func (s *WebSocket) OnConnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.onConnect = fn
}

func (s *WebSocket) OnConnectError(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.onConnectError = fn
}

func (s *WebSocket) OnDisconnect(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.onDisconnect = fn
}

func (s *WebSocket) OnMessage(fn func(msg chat.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.onMessage = fn
}

func (s *WebSocket) OnMessageSent(fn func(ack chat.MessageSentPayload)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.onMessageSent = fn
}

func (s *WebSocket) OnTyping(fn func(conversationID, senderName string, typing bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.onTyping = fn
}

func (s *WebSocket) OffAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = handlers{}
}

// Connect dials the relay asynchronously. On success the read loop starts and
// OnConnect fires; on handshake failure OnConnectError fires instead.
//
// A Disconnect issued while the dial is still in flight wins: the freshly
// dialed connection is closed instead of adopted, so a torn-down session can
// never come back up behind the caller's back.
func (s *WebSocket) Connect() {
	s.mu.Lock()
	gen := s.dialGen
	s.mu.Unlock()

	go func() {
		dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

		conn, _, err := dialer.Dial(s.url, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Relay handshake failed.")

			if fn := s.snapshotHandlers().onConnectError; fn != nil {
				fn(err.Error())
			}
			return
		}

		s.mu.Lock()
		if s.dialGen != gen {
			s.mu.Unlock()
			s.logger.Info().Msg("Disconnected while the dial was in flight. Discarding connection.")
			_ = conn.Close()
			return
		}
		s.conn = conn
		s.connected = true
		s.mu.Unlock()

		if fn := s.snapshotHandlers().onConnect; fn != nil {
			fn()
		}

		s.readLoop(conn)
	}()
}

// Disconnect closes the underlying connection, if any, and invalidates any
// dial still in flight.
func (s *WebSocket) Disconnect() {
	s.mu.Lock()
	s.dialGen++
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Connection close error.")
		}
	}
}

// Connected reports whether the connection is currently established.
func (s *WebSocket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// JoinRoom asks the relay to move this connection into a conversation room.
func (s *WebSocket) JoinRoom(conversationID string) error {
	return s.emit(chat.TypeJoinRoom, chat.JoinRoomPayload{ConversationID: conversationID})
}

// Send emits an outgoing chat message.
func (s *WebSocket) Send(payload chat.SendMessagePayload) error {
	return s.emit(chat.TypeSendMessage, payload)
}

// SetTyping emits a typing or stop-typing signal.
func (s *WebSocket) SetTyping(conversationID string, typing bool) error {
	msgType := chat.TypeStopTyping
	if typing {
		msgType = chat.TypeTyping
	}

	return s.emit(msgType, chat.TypingPayload{ConversationID: conversationID, Typing: typing})
}

// snapshotHandlers copies the handler set under lock so callbacks run unlocked.
func (s *WebSocket) snapshotHandlers() handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

// emit marshals and writes a client event frame.
func (s *WebSocket) emit(msgType chat.MessageType, payload any) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.connected
	s.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	frame := struct {
		Type    chat.MessageType `json:"type"`
		Payload json.RawMessage  `json:"payload,omitempty"`
	}{Type: msgType, Payload: payloadBytes}

	frameBytes, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, frameBytes)
}

// readLoop decodes relay envelopes and dispatches them to the registered
// handlers until the connection fails or is closed.
func (s *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		_, frameBytes, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			wasConnected := s.connected && s.conn == conn
			if wasConnected {
				s.conn = nil
				s.connected = false
			}
			s.mu.Unlock()

			if wasConnected {
				if fn := s.snapshotHandlers().onDisconnect; fn != nil {
					fn(err.Error())
				}
			}
			return
		}

		s.dispatch(frameBytes)
	}
}

// dispatch routes one relay envelope to its handler.
func (s *WebSocket) dispatch(frameBytes []byte) {
	var envelope chat.Envelope
	if err := json.Unmarshal(frameBytes, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("Relay sent invalid envelope.")
		return
	}

	h := s.snapshotHandlers()

	switch envelope.Type {
	case chat.TypeMessageReceived:
		var msg chat.Message
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid MESSAGE_RECEIVED payload.")
			return
		}
		if h.onMessage != nil {
			h.onMessage(msg)
		}

	case chat.TypeMessageSent:
		var ack chat.MessageSentPayload
		if err := json.Unmarshal(envelope.Payload, &ack); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid MESSAGE_SENT payload.")
			return
		}
		if h.onMessageSent != nil {
			h.onMessageSent(ack)
		}

	case chat.TypeTyping, chat.TypeStopTyping:
		var payload chat.TypingPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid typing payload.")
			return
		}
		if h.onTyping != nil {
			h.onTyping(payload.ConversationID, payload.SenderName, payload.Typing)
		}

	case chat.TypeRoomJoined:
		// routine join ack; the thread already drives room membership.
		s.logger.Debug().Msg("Room join acknowledged.")

	case chat.TypeError:
		var payload chat.ErrorPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return
		}
		s.logger.Warn().Int("code", payload.Code).Str("message", payload.Message).Msg("Relay reported an error.")

	default:
		s.logger.Warn().Str("event_type", string(envelope.Type)).Msg("Unhandled relay event type.")
	}
}
