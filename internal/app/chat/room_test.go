package chat

import (
	"encoding/json"
	"testing"
	"time"

	"campusconnect/internal/app/user"
)

func testClient(id, name string) *Client {
	return &Client{
		user: user.User{ID: id, Name: name, Role: user.RoleStudent},
		send: make(chan []byte, 8),
	}
}

// drainOne waits briefly for one queued frame.
func drainOne(t *testing.T, c *Client) []byte {
	t.Helper()

	select {
	case frame := <-c.send:
		return frame
	case <-time.After(time.Second):
		t.Fatal("Expected a queued frame, got none")
		return nil
	}
}

func TestRoom_BroadcastExcludesSender(t *testing.T) {
	cleanup := make(chan RoomCleanupMsg, 1)
	room := NewRoom("conv-1", cleanup)
	go room.Run()
	defer room.Stop()

	sender := testClient("student-1", "Ada")
	recipient := testClient("teacher-1", "Ms. Grace")

	room.RegisterClient(sender)
	room.RegisterClient(recipient)

	envelope, err := NewEnvelope(TypeMessageReceived, sender.user, Message{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderID:       sender.user.ID,
		Body:           "hello",
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	room.Broadcast(envelope, sender.user.ID)

	frame := drainOne(t, recipient)

	var decoded Envelope
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("Broadcast frame is not a valid envelope: %v", err)
	}
	if decoded.Type != TypeMessageReceived {
		t.Errorf("Expected type %q, got %q", TypeMessageReceived, decoded.Type)
	}

	select {
	case <-sender.send:
		t.Error("Sender received its own broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoom_StaleUnregisterIgnored(t *testing.T) {
	cleanup := make(chan RoomCleanupMsg, 1)
	room := NewRoom("conv-1", cleanup)
	go room.Run()
	defer room.Stop()

	current := testClient("student-1", "Ada")
	stale := testClient("student-1", "Ada")

	room.RegisterClient(current)
	room.UnregisterClient(stale)

	// the current connection must still receive broadcasts.
	envelope, err := NewEnvelope(TypeTyping, SystemUser, TypingPayload{ConversationID: "conv-1", Typing: true})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	room.Broadcast(envelope, "someone-else")

	drainOne(t, current)
}

func TestManager_RoomLifecycle(t *testing.T) {
	manager := NewManager(nil)
	defer manager.Shutdown()

	room := manager.GetOrCreateRoom("conv-1")
	if room == nil {
		t.Fatal("Expected a room instance")
	}

	if again := manager.GetOrCreateRoom("conv-1"); again != room {
		t.Error("Expected the same room for the same conversation id")
	}

	other := manager.GetOrCreateRoom("conv-2")
	if other == room {
		t.Error("Different conversations must not share a room")
	}

	// stopping the room drives the cleanup path and removes it.
	room.Stop()

	deadline := time.After(time.Second)
	for {
		manager.mu.RLock()
		_, present := manager.rooms["conv-1"]
		manager.mu.RUnlock()

		if !present {
			break
		}

		select {
		case <-deadline:
			t.Fatal("Room was never cleaned up after stop")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManager_UntrackStaleConnection(t *testing.T) {
	manager := NewManager(nil)
	defer manager.Shutdown()

	current := testClient("student-1", "Ada")
	manager.TrackClient(current)

	stale := testClient("student-1", "Ada")
	manager.UntrackClient(stale)

	manager.mu.RLock()
	tracked := manager.clients["student-1"]
	manager.mu.RUnlock()

	if tracked != current {
		t.Error("Stale untrack removed the current connection")
	}
}
