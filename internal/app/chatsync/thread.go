package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"campusconnect/internal/app/chat"
	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/randx"
)

// MessageStore is the slice of the query layer the thread needs for the
// direct-write send fallback. *db.Queries satisfies it.
type MessageStore interface {
	InsertMessage(ctx context.Context, arg db.InsertMessageParams) error
}

// SnapshotSource delivers full, timestamp-ascending message snapshots of a
// conversation, first immediately on subscribe and then on every change.
// *db.MessageWatcher satisfies it.
type SnapshotSource interface {
	Subscribe(ctx context.Context, conversationID string, fn db.SnapshotFunc) (func(), error)
}

// Thread holds the single, duplicate-free, time-ordered message timeline of
// the currently open conversation.
//
// Messages arrive by two independent paths: full store snapshots and
// individual socket push events. The same logical message can show up on both,
// in either order, so every append is gated on a per-conversation set of
// already-rendered message ids (the seen-set). Whichever path delivers an id
// first wins the append; the other delivery is dropped. The seen-set and the
// timeline are cleared together on every conversation switch.
//
// Within one snapshot the store's ascending-timestamp order is preserved.
// A socket message that lands before the snapshot catches up is appended in
// arrival order, so a brief local inversion is possible until the next
// snapshot; tolerated, not corrected.
type Thread struct {
	self   user.User
	socket Socket
	store  MessageStore
	source SnapshotSource
	typing *TypingState

	mu             sync.Mutex
	conversationID string
	recipientID    string
	generation     int
	seen           map[string]struct{}
	list           []chat.Message
	unsubscribe    func()
	closed         bool

	// OnChange, when set, is invoked after every timeline mutation with a copy
	// of the current list. Set before Open; never called under the lock.
	OnChange func(messages []chat.Message)

	logger zerolog.Logger
}

// NewThread wires a timeline to the session's socket. The socket's message and
// typing handlers are registered here, before any conversation is opened.
func NewThread(self user.User, socket Socket, store MessageStore, source SnapshotSource) *Thread {
	t := &Thread{
		self:   self,
		socket: socket,
		store:  store,
		source: source,
		typing: NewTypingState(),
		seen:   make(map[string]struct{}),
		logger: logx.Logger().With().Str("component", "Thread").Str("user_id", self.ID).Logger(),
	}

	if socket != nil {
		socket.OnMessage(t.handleSocketMessage)
		socket.OnTyping(t.handleTypingEvent)
	}

	return t
}

// Open subscribes the thread to its first conversation. Equivalent to Switch.
func (t *Thread) Open(ctx context.Context, conversationID, recipientID string) error {
	return t.Switch(ctx, conversationID, recipientID)
}

// Switch moves the thread to another conversation: the old snapshot
// subscription is cancelled and the timeline and seen-set are cleared BEFORE
// the new conversation's first message can be appended, so nothing of the
// prior conversation leaks into the new view.
func (t *Thread) Switch(ctx context.Context, conversationID, recipientID string) error {
	if conversationID == "" {
		return errs.NewError(errs.ErrConversationNotFound)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errs.NewError(errs.ErrUnknown)
	}

	oldUnsubscribe := t.unsubscribe
	t.unsubscribe = nil

	t.generation++
	generation := t.generation

	t.conversationID = conversationID
	t.recipientID = recipientID
	t.seen = make(map[string]struct{})
	t.list = nil
	t.mu.Unlock()

	if oldUnsubscribe != nil {
		oldUnsubscribe()
	}

	t.notifyChange()

	if t.socket != nil && t.socket.Connected() {
		if err := t.socket.JoinRoom(conversationID); err != nil {
			t.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Room join failed.")
		}
	}

	unsubscribe, err := t.source.Subscribe(ctx, conversationID, func(rows []db.MessageRow) {
		t.applySnapshot(generation, rows)
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed || t.generation != generation {
		// a concurrent Switch or Close won; this subscription is already stale.
		t.mu.Unlock()
		unsubscribe()
		return nil
	}
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	return nil
}

// applySnapshot merges one full store snapshot into the timeline. Unseen
// messages are appended in the snapshot's own order; everything else is a
// duplicate of what the socket path already delivered and is dropped.
//
// The generation gate makes stale deliveries harmless: a snapshot queued for a
// conversation the user has since left, or one arriving after Close, mutates
// nothing.
func (t *Thread) applySnapshot(generation int, rows []db.MessageRow) {
	t.mu.Lock()

	if t.closed || generation != t.generation {
		t.mu.Unlock()
		return
	}

	appended := false
	for _, row := range rows {
		if _, ok := t.seen[row.ID]; ok {
			continue
		}
		// a message without an id cannot be deduplicated; it is appended
		// without entering the seen-set and may render twice.
		if row.ID != "" {
			t.seen[row.ID] = struct{}{}
		}
		t.list = append(t.list, chat.FromRow(row))
		appended = true
	}
	t.mu.Unlock()

	if appended {
		t.notifyChange()
	}
}

// handleSocketMessage merges one relay-pushed message into the timeline, with
// the same id-based dedup gate as the snapshot path.
func (t *Thread) handleSocketMessage(msg chat.Message) {
	t.mu.Lock()

	if t.closed || msg.ConversationID != t.conversationID {
		t.mu.Unlock()
		return
	}

	if _, ok := t.seen[msg.ID]; ok {
		t.mu.Unlock()
		return
	}

	// same id-less exemption as the snapshot path.
	if msg.ID != "" {
		t.seen[msg.ID] = struct{}{}
	}
	t.list = append(t.list, msg)
	t.mu.Unlock()

	t.notifyChange()
}

// Send emits the message over the socket for the relay to persist and
// rebroadcast. It is NOT appended locally: it comes back through the snapshot
// or socket path like any other message, so the sender sees it only after the
// round trip.
//
// With no live connection, Send falls back to a single direct store write and
// skips the socket entirely. The message still reaches both parties through
// their snapshot subscriptions, just without the low-latency push.
func (t *Thread) Send(ctx context.Context, body string) error {
	if body == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if len(body) > chat.MaxBodyBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	t.mu.Lock()
	conversationID := t.conversationID
	recipientID := t.recipientID
	closed := t.closed
	t.mu.Unlock()

	if closed || conversationID == "" {
		return errs.NewError(errs.ErrConversationNotFound)
	}

	sentAt := time.Now()

	if t.socket != nil && t.socket.Connected() {
		return t.socket.Send(chat.SendMessagePayload{
			ConversationID: conversationID,
			RecipientID:    recipientID,
			Body:           body,
			SentAt:         sentAt.UnixMilli(),
		})
	}

	t.logger.Warn().Str("conversation_id", conversationID).Msg("Socket down. Writing message directly to store.")

	return t.store.InsertMessage(ctx, db.InsertMessageParams{
		ID:             randx.MessageID(),
		ConversationID: conversationID,
		SenderID:       t.self.ID,
		RecipientID:    recipientID,
		Body:           body,
		SentAt:         sentAt,
		Delivered:      false,
	})
}

// NotifyTyping emits the typing signal for the open conversation. Called once
// per composer keystroke.
func (t *Thread) NotifyTyping() {
	t.mu.Lock()
	conversationID := t.conversationID
	closed := t.closed
	t.mu.Unlock()

	if closed || conversationID == "" || t.socket == nil {
		return
	}

	t.typing.Keystroke(t.socket, conversationID)
}

// handleTypingEvent feeds relay typing events for the open conversation into
// the indicator state. Events for other conversations are dropped.
func (t *Thread) handleTypingEvent(conversationID, senderName string, typing bool) {
	t.mu.Lock()
	active := !t.closed && conversationID == t.conversationID
	t.mu.Unlock()

	if active {
		t.typing.SetRemote(senderName, typing)
	}
}

// PeerTyping reports the other participant's current typing state.
func (t *Thread) PeerTyping() (name string, typing bool) {
	return t.typing.Peer()
}

// Messages returns a copy of the current timeline.
func (t *Thread) Messages() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]chat.Message, len(t.list))
	copy(out, t.list)
	return out
}

// ConversationID returns the id of the open conversation, empty when none.
func (t *Thread) ConversationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// Close detaches the thread: the snapshot subscription is cancelled, the
// socket handlers are unregistered, and every late callback becomes a no-op.
// Safe to call more than once.
func (t *Thread) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true

	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	if t.socket != nil {
		t.socket.OnMessage(nil)
		t.socket.OnTyping(nil)
	}
}

// notifyChange invokes OnChange with a copy of the timeline, outside the lock.
func (t *Thread) notifyChange() {
	if t.OnChange == nil {
		return
	}
	t.OnChange(t.Messages())
}
