package chatsync

import (
	"testing"
	"time"
)

// A failed handshake surfaces a user-facing error, disconnects the socket, and
// triggers no automatic reconnection.
func TestConnManager_FailFastOnConnectError(t *testing.T) {
	manager := NewConnManager()
	sock := &fakeSocket{failReason: "relay unreachable"}

	manager.Establish(sock)

	if manager.Err() == "" {
		t.Error("Expected a non-empty connection error")
	}
	if sock.disconnectCalls != 1 {
		t.Errorf("Expected 1 proactive disconnect, got %d", sock.disconnectCalls)
	}

	// bounded wait: no reconnection attempt shows up.
	time.Sleep(50 * time.Millisecond)
	if sock.connectCalls != 1 {
		t.Errorf("Expected exactly 1 connect attempt, got %d", sock.connectCalls)
	}
}

// A successful connect clears any stored error.
func TestConnManager_ConnectClearsError(t *testing.T) {
	manager := NewConnManager()
	sock := &fakeSocket{}

	manager.Establish(sock)

	if manager.Err() != "" {
		t.Errorf("Expected no error after connect, got %q", manager.Err())
	}
	if manager.Socket() != sock {
		t.Error("Expected the connected socket to be tracked")
	}
}

// Only one socket is tracked per session; a second Establish is ignored.
func TestConnManager_SingleConnection(t *testing.T) {
	manager := NewConnManager()
	first := &fakeSocket{}
	second := &fakeSocket{}

	manager.Establish(first)
	manager.Establish(second)

	if manager.Socket() != first {
		t.Error("Second Establish must not replace the tracked socket")
	}
	if second.connectCalls != 0 {
		t.Errorf("Ignored socket must not be connected, got %d attempts", second.connectCalls)
	}
}

// Teardown unregisters handlers, disconnects, and clears the tracked
// reference.
func TestConnManager_Teardown(t *testing.T) {
	manager := NewConnManager()
	sock := &fakeSocket{}

	manager.Establish(sock)
	manager.Teardown(sock)

	if manager.Socket() != nil {
		t.Error("Expected no tracked socket after teardown")
	}
	if sock.disconnectCalls != 1 {
		t.Errorf("Expected 1 disconnect, got %d", sock.disconnectCalls)
	}

	sock.mu.Lock()
	empty := sock.h.onConnect == nil && sock.h.onConnectError == nil && sock.h.onDisconnect == nil &&
		sock.h.onMessage == nil && sock.h.onMessageSent == nil && sock.h.onTyping == nil
	sock.mu.Unlock()
	if !empty {
		t.Error("Expected all handlers unregistered after teardown")
	}
}

// A stale teardown of an old socket must not clobber a newer tracked one.
func TestConnManager_StaleTeardownGuard(t *testing.T) {
	manager := NewConnManager()
	old := &fakeSocket{}

	manager.Establish(old)
	manager.Teardown(old)

	replacement := &fakeSocket{}
	manager.Establish(replacement)

	// a queued async cleanup for the old socket fires late.
	manager.Teardown(old)

	if manager.Socket() != replacement {
		t.Error("Stale teardown cleared the newer tracked socket")
	}
	if replacement.disconnectCalls != 0 {
		t.Errorf("Newer socket must stay connected, got %d disconnects", replacement.disconnectCalls)
	}
}
