package chatsync

import (
	"sync"
	"testing"
	"time"
)

// virtualClock collects scheduled callbacks and runs them when advanced,
// standing in for time.AfterFunc.
type virtualClock struct {
	mu      sync.Mutex
	now     time.Duration
	pending []scheduled
}

type scheduled struct {
	at time.Duration
	fn func()
}

func (c *virtualClock) after(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, scheduled{at: c.now + d, fn: fn})
}

// advance moves the clock forward and fires everything that came due.
func (c *virtualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now

	var due []func()
	var rest []scheduled
	for _, s := range c.pending {
		if s.at <= now {
			due = append(due, s.fn)
		} else {
			rest = append(rest, s)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// A typing signal expires on its own within the timeout even when the
// stop-typing event never arrives.
func TestTypingState_AutoExpires(t *testing.T) {
	clock := &virtualClock{}
	state := newTypingState(clock.after)

	state.SetRemote("Ms. Grace", true)

	if name, typing := state.Peer(); !typing || name != "Ms. Grace" {
		t.Fatalf("Expected Ms. Grace typing, got %q/%v", name, typing)
	}

	clock.advance(TypingTimeout - time.Millisecond)
	if _, typing := state.Peer(); !typing {
		t.Error("Indicator cleared before the timeout elapsed")
	}

	clock.advance(2 * time.Millisecond)
	if _, typing := state.Peer(); typing {
		t.Error("Indicator still set after the timeout elapsed")
	}
}

// A fresh typing signal re-arms the expiry; the older timer must not clear the
// newer state early.
func TestTypingState_RenewedSignalOutlivesOldTimer(t *testing.T) {
	clock := &virtualClock{}
	state := newTypingState(clock.after)

	state.SetRemote("Ms. Grace", true)
	clock.advance(TypingTimeout / 2)

	state.SetRemote("Ms. Grace", true)
	clock.advance(TypingTimeout / 2)

	// the first timer has fired by now, but the second signal is newer.
	if _, typing := state.Peer(); !typing {
		t.Error("Old timer cleared a renewed typing signal")
	}

	clock.advance(TypingTimeout)
	if _, typing := state.Peer(); typing {
		t.Error("Renewed signal never expired")
	}
}

// An explicit stop-typing event clears the indicator immediately.
func TestTypingState_ExplicitStop(t *testing.T) {
	clock := &virtualClock{}
	state := newTypingState(clock.after)

	state.SetRemote("Ms. Grace", true)
	state.SetRemote("Ms. Grace", false)

	if _, typing := state.Peer(); typing {
		t.Error("Stop event did not clear the indicator")
	}
}

// Every keystroke emits a typing signal and schedules its own flat-timeout
// stop signal; earlier timers are not cancelled.
func TestTypingState_KeystrokeFlatTimeout(t *testing.T) {
	clock := &virtualClock{}
	state := newTypingState(clock.after)

	sock := &fakeSocket{}
	sock.Connect()

	state.Keystroke(sock, "conv-1")
	clock.advance(TypingTimeout / 2)
	state.Keystroke(sock, "conv-1")

	// first keystroke's stop fires at its own flat timeout.
	clock.advance(TypingTimeout / 2)

	// second keystroke's stop fires later.
	clock.advance(TypingTimeout / 2)

	var want []bool
	for _, e := range sock.typingEmits {
		if e.ConversationID != "conv-1" {
			t.Fatalf("Unexpected conversation id %q", e.ConversationID)
		}
		want = append(want, e.Typing)
	}

	expected := []bool{true, true, false, false}
	if len(want) != len(expected) {
		t.Fatalf("Expected %d emissions, got %d: %v", len(expected), len(want), want)
	}
	for i := range expected {
		if want[i] != expected[i] {
			t.Errorf("Emission %d: expected typing=%v, got %v", i, expected[i], want[i])
		}
	}
}
