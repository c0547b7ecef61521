package chatsync

import (
	"sync"
	"time"
)

// TypingTimeout is the flat delay after which a typing signal expires, on both
// the sending and the receiving side.
const TypingTimeout = 2 * time.Second

// TypingState carries the ephemeral typing indicator. Nothing here is
// persisted or acknowledged; state is simply lost on refresh.
//
// Outgoing: every keystroke emits a typing signal and schedules its own
// stop-typing signal a flat TypingTimeout later. This is deliberately NOT a
// debounce: earlier timers are never cancelled, so the stop fires TypingTimeout
// after the LAST keystroke's own schedule, matching the per-keystroke flat
// timeout contract.
//
// Incoming: a typing signal sets the peer indicator and arms an auto-expire
// for the same timeout, so a lost stop-typing event cannot leave the indicator
// stuck on.
type TypingState struct {
	after func(d time.Duration, fn func())

	mu         sync.Mutex
	peerName   string
	peerTyping bool

	// expireSeq invalidates pending auto-expires when newer state arrives.
	expireSeq int
}

// NewTypingState constructs an indicator using the wall clock.
func NewTypingState() *TypingState {
	return newTypingState(func(d time.Duration, fn func()) {
		time.AfterFunc(d, fn)
	})
}

// newTypingState allows tests to inject a virtual scheduler.
func newTypingState(after func(d time.Duration, fn func())) *TypingState {
	return &TypingState{after: after}
}

// Keystroke emits a typing signal for the conversation and schedules the
// matching stop-typing signal TypingTimeout later.
func (s *TypingState) Keystroke(sock Socket, conversationID string) {
	if err := sock.SetTyping(conversationID, true); err != nil {
		return
	}

	s.after(TypingTimeout, func() {
		_ = sock.SetTyping(conversationID, false)
	})
}

// SetRemote records a peer typing event. A typing=true signal arms an
// auto-expire so the indicator clears within TypingTimeout even if the
// stop-typing event never arrives.
func (s *TypingState) SetRemote(senderName string, typing bool) {
	s.mu.Lock()
	s.expireSeq++

	if !typing {
		s.peerTyping = false
		s.mu.Unlock()
		return
	}

	s.peerName = senderName
	s.peerTyping = true
	seq := s.expireSeq
	s.mu.Unlock()

	s.after(TypingTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.expireSeq == seq {
			s.peerTyping = false
		}
	})
}

// Peer returns the peer's display name and whether they are currently typing.
func (s *TypingState) Peer() (name string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerName, s.peerTyping
}
