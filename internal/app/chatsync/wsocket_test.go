package chatsync

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campusconnect/internal/app/chat"
)

// startRelay runs a minimal websocket endpoint that delays the upgrade by the
// given amount and then holds the connection open.
func startRelay(t *testing.T, upgradeDelay time.Duration) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(upgradeDelay)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWebSocket_ConnectThenDisconnect(t *testing.T) {
	srv := startRelay(t, 0)

	sock := NewWebSocket(wsURL(srv))

	connected := make(chan struct{})
	sock.OnConnect(func() { close(connected) })

	sock.Connect()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("Connection never established")
	}

	if !sock.Connected() {
		t.Fatal("Expected Connected after handshake")
	}

	sock.Disconnect()

	if sock.Connected() {
		t.Error("Expected not Connected after Disconnect")
	}
}

// A Disconnect racing an in-flight dial must win: once the handshake finally
// completes, the fresh connection is discarded, never adopted. Otherwise a
// torn-down session would silently hold a live relay connection.
func TestWebSocket_DisconnectDuringDial(t *testing.T) {
	srv := startRelay(t, 300*time.Millisecond)

	sock := NewWebSocket(wsURL(srv))
	sock.Connect()

	// tear down while the relay is still sitting on the upgrade.
	time.Sleep(50 * time.Millisecond)
	sock.Disconnect()

	// give the delayed handshake ample time to complete.
	time.Sleep(600 * time.Millisecond)

	if sock.Connected() {
		t.Fatal("In-flight dial re-established a connection after Disconnect")
	}

	sock.mu.Lock()
	conn := sock.conn
	sock.mu.Unlock()
	if conn != nil {
		t.Error("Discarded dial left its connection tracked")
	}
}

// A fresh Connect after Disconnect must still work: only dials started before
// the Disconnect are invalidated.
func TestWebSocket_ReconnectAfterDisconnect(t *testing.T) {
	srv := startRelay(t, 0)

	sock := NewWebSocket(wsURL(srv))

	first := make(chan struct{})
	var firstOnce sync.Once
	sock.OnConnect(func() { firstOnce.Do(func() { close(first) }) })
	sock.Connect()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("First connection never established")
	}

	sock.Disconnect()

	sock.Connect()
	if !waitFor(t, 2*time.Second, sock.Connected) {
		t.Fatal("Second connection never established")
	}
}

// Routine room-join acks are expected traffic and must not be logged as
// unhandled events.
func TestWebSocket_DispatchRoomJoined(t *testing.T) {
	sock := NewWebSocket("ws://unused")

	var logged bytes.Buffer
	sock.logger = zerolog.New(&logged)

	sock.OnMessage(func(msg chat.Message) {
		t.Errorf("Room join ack dispatched as a chat message: %+v", msg)
	})

	envelope, err := chat.NewEnvelope(chat.TypeRoomJoined, chat.SystemUser, chat.RoomJoinedPayload{ConversationID: "conv-1"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	frame, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	sock.dispatch(frame)

	if strings.Contains(logged.String(), "Unhandled") {
		t.Errorf("Room join ack logged as unhandled: %s", logged.String())
	}
}
