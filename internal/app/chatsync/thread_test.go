package chatsync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"campusconnect/internal/app/chat"
	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
)

// fakeSocket is an in-memory Socket that records emissions and lets tests fire
// events by hand.
type fakeSocket struct {
	mu sync.Mutex
	h  handlers

	connected  bool
	failReason string

	connectCalls    int
	disconnectCalls int
	joined          []string
	sent            []chat.SendMessagePayload
	typingEmits     []chat.TypingPayload
}

var _ Socket = (*fakeSocket)(nil)

func (f *fakeSocket) OnConnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h.onConnect = fn
}

func (f *fakeSocket) OnConnectError(fn func(reason string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h.onConnectError = fn
}

func (f *fakeSocket) OnDisconnect(fn func(reason string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h.onDisconnect = fn
}

func (f *fakeSocket) OnMessage(fn func(msg chat.Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h.onMessage = fn
}

func (f *fakeSocket) OnMessageSent(fn func(ack chat.MessageSentPayload)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h.onMessageSent = fn
}

func (f *fakeSocket) OnTyping(fn func(conversationID, senderName string, typing bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h.onTyping = fn
}

func (f *fakeSocket) OffAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h = handlers{}
}

func (f *fakeSocket) Connect() {
	f.mu.Lock()
	f.connectCalls++
	failReason := f.failReason
	if failReason == "" {
		f.connected = true
	}
	h := f.h
	f.mu.Unlock()

	if failReason != "" {
		if h.onConnectError != nil {
			h.onConnectError(failReason)
		}
		return
	}

	if h.onConnect != nil {
		h.onConnect()
	}
}

func (f *fakeSocket) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCalls++
	f.connected = false
}

func (f *fakeSocket) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSocket) JoinRoom(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.joined = append(f.joined, conversationID)
	return nil
}

func (f *fakeSocket) Send(payload chat.SendMessagePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSocket) SetTyping(conversationID string, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.typingEmits = append(f.typingEmits, chat.TypingPayload{ConversationID: conversationID, Typing: typing})
	return nil
}

// pushMessage fires a relay message event into the registered handler.
func (f *fakeSocket) pushMessage(msg chat.Message) {
	f.mu.Lock()
	fn := f.h.onMessage
	f.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

// pushTyping fires a relay typing event into the registered handler.
func (f *fakeSocket) pushTyping(conversationID, senderName string, typing bool) {
	f.mu.Lock()
	fn := f.h.onTyping
	f.mu.Unlock()

	if fn != nil {
		fn(conversationID, senderName, typing)
	}
}

// fakeSource is an in-memory SnapshotSource. Tests fire snapshots by hand; the
// initial subscribe delivery mirrors the real watcher's behavior.
type fakeSource struct {
	mu        sync.Mutex
	initial   map[string][]db.MessageRow
	subs      map[string][]db.SnapshotFunc
	cancelled int
}

var _ SnapshotSource = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		initial: make(map[string][]db.MessageRow),
		subs:    make(map[string][]db.SnapshotFunc),
	}
}

func (f *fakeSource) Subscribe(_ context.Context, conversationID string, fn db.SnapshotFunc) (func(), error) {
	f.mu.Lock()
	f.subs[conversationID] = append(f.subs[conversationID], fn)
	idx := len(f.subs[conversationID]) - 1
	initial := f.initial[conversationID]
	f.mu.Unlock()

	fn(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.subs[conversationID][idx] = nil
			f.cancelled++
		})
	}, nil
}

// fire delivers a full snapshot to every live subscriber of the conversation.
func (f *fakeSource) fire(conversationID string, rows []db.MessageRow) {
	f.mu.Lock()
	list := make([]db.SnapshotFunc, len(f.subs[conversationID]))
	copy(list, f.subs[conversationID])
	f.mu.Unlock()

	for _, fn := range list {
		if fn != nil {
			fn(rows)
		}
	}
}

// fakeStore records direct message writes.
type fakeStore struct {
	mu      sync.Mutex
	inserts []db.InsertMessageParams
}

var _ MessageStore = (*fakeStore)(nil)

func (f *fakeStore) InsertMessage(_ context.Context, arg db.InsertMessageParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, arg)
	return nil
}

func (f *fakeStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts)
}

func row(id, conversationID string, at time.Time) db.MessageRow {
	return db.MessageRow{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       "student-1",
		RecipientID:    "teacher-1",
		Body:           "body of " + id,
		SentAt:         at,
		Delivered:      true,
	}
}

func newTestThread(t *testing.T, sock *fakeSocket, store *fakeStore, source *fakeSource) *Thread {
	t.Helper()

	self := user.User{ID: "student-1", Name: "Ada", Role: user.RoleStudent}
	return NewThread(self, sock, store, source)
}

func messageIDs(messages []chat.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// Overlapping deliveries across the two channels, in either order, must yield
// each message exactly once.
func TestThread_DedupAcrossChannels(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	base := time.Now()
	source.initial["conv-1"] = []db.MessageRow{
		row("m1", "conv-1", base),
		row("m2", "conv-1", base.Add(time.Second)),
	}

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// socket push duplicates m2 and delivers m3 ahead of the store.
	sock.pushMessage(chat.FromRow(row("m2", "conv-1", base.Add(time.Second))))
	sock.pushMessage(chat.FromRow(row("m3", "conv-1", base.Add(2*time.Second))))

	// the store catches up with a full snapshot covering everything.
	source.fire("conv-1", []db.MessageRow{
		row("m1", "conv-1", base),
		row("m2", "conv-1", base.Add(time.Second)),
		row("m3", "conv-1", base.Add(2*time.Second)),
	})

	got := messageIDs(thread.Messages())
	want := []string{"m1", "m2", "m3"}

	if len(got) != len(want) {
		t.Fatalf("Expected %d messages, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// Reversed arrival order: socket first, snapshot second. Still exactly once.
func TestThread_DedupSocketWinsFirstAppend(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	base := time.Now()
	sock.pushMessage(chat.FromRow(row("m1", "conv-1", base)))

	source.fire("conv-1", []db.MessageRow{row("m1", "conv-1", base)})
	source.fire("conv-1", []db.MessageRow{row("m1", "conv-1", base)})

	if got := thread.Messages(); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("Expected exactly one m1, got %v", messageIDs(got))
	}
}

// Messages without an id cannot be deduplicated: each one is appended, and the
// empty id must never poison the seen-set against later id-less messages.
func TestThread_IDLessMessagesNotDeduplicated(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	base := time.Now()
	first := chat.FromRow(row("", "conv-1", base))
	first.Body = "first without id"
	second := chat.FromRow(row("", "conv-1", base.Add(time.Second)))
	second.Body = "second without id"

	sock.pushMessage(first)
	sock.pushMessage(second)

	got := thread.Messages()
	if len(got) != 2 {
		t.Fatalf("Expected both id-less messages rendered, got %d: %v", len(got), messageIDs(got))
	}
	if got[0].Body != "first without id" || got[1].Body != "second without id" {
		t.Errorf("Id-less messages out of order: %q, %q", got[0].Body, got[1].Body)
	}

	// the snapshot path gets the same exemption.
	source.fire("conv-1", []db.MessageRow{row("", "conv-1", base.Add(2*time.Second))})
	if got := thread.Messages(); len(got) != 3 {
		t.Errorf("Expected id-less snapshot row appended, got %d messages", len(got))
	}
}

// Messages of another conversation pushed over the shared socket must not land
// in the open timeline.
func TestThread_IgnoresOtherConversations(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	sock.pushMessage(chat.FromRow(row("other", "conv-9", time.Now())))

	if got := thread.Messages(); len(got) != 0 {
		t.Errorf("Expected empty timeline, got %v", messageIDs(got))
	}
}

// Unseen snapshot messages are appended in the snapshot's own order.
func TestThread_SnapshotOrderPreserved(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	base := time.Now()
	snapshot := make([]db.MessageRow, 0, 5)
	for i := 0; i < 5; i++ {
		snapshot = append(snapshot, row(fmt.Sprintf("m%d", i), "conv-1", base.Add(time.Duration(i)*time.Second)))
	}
	source.fire("conv-1", snapshot)

	got := thread.Messages()
	if len(got) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].SentAt.Before(got[i-1].SentAt) {
			t.Errorf("Timestamp order violated at position %d", i)
		}
		if got[i].ID != fmt.Sprintf("m%d", i) {
			t.Errorf("Position %d: expected m%d, got %s", i, i, got[i].ID)
		}
	}
}

// Switching conversations clears the timeline and the seen-set before anything
// of the new conversation is appended, and cancels the old subscription.
func TestThread_SwitchClearsState(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	base := time.Now()
	source.initial["conv-a"] = []db.MessageRow{row("a1", "conv-a", base)}
	source.initial["conv-b"] = []db.MessageRow{row("b1", "conv-b", base)}

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-a", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := messageIDs(thread.Messages()); len(got) != 1 || got[0] != "a1" {
		t.Fatalf("Expected [a1], got %v", got)
	}

	if err := thread.Switch(context.Background(), "conv-b", "teacher-2"); err != nil {
		t.Fatalf("Switch failed: %v", err)
	}

	got := messageIDs(thread.Messages())
	if len(got) != 1 || got[0] != "b1" {
		t.Errorf("Expected [b1] after switch, got %v", got)
	}

	// a stale snapshot for the old conversation must be dropped.
	source.fire("conv-a", []db.MessageRow{row("a2", "conv-a", base.Add(time.Second))})

	got = messageIDs(thread.Messages())
	if len(got) != 1 || got[0] != "b1" {
		t.Errorf("Old conversation leaked into new view: %v", got)
	}

	source.mu.Lock()
	cancelled := source.cancelled
	source.mu.Unlock()
	if cancelled != 1 {
		t.Errorf("Expected 1 cancelled subscription, got %d", cancelled)
	}

	// the seen-set was reset: an id reused across the switch appends again.
	source.fire("conv-b", []db.MessageRow{row("b1", "conv-b", base), row("b2", "conv-b", base.Add(time.Second))})
	if got := messageIDs(thread.Messages()); len(got) != 2 {
		t.Errorf("Expected [b1 b2], got %v", got)
	}
}

// With no live connection, Send performs exactly one direct store write and no
// socket emission.
func TestThread_SendFallbackWhenDisconnected(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	sock.Disconnect()

	if err := thread.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Fallback send failed: %v", err)
	}

	if store.insertCount() != 1 {
		t.Fatalf("Expected exactly 1 store write, got %d", store.insertCount())
	}
	if len(sock.sent) != 0 {
		t.Errorf("Expected no socket emission, got %d", len(sock.sent))
	}

	written := store.inserts[0]
	if written.ConversationID != "conv-1" || written.RecipientID != "teacher-1" || written.Body != "hello" {
		t.Errorf("Unexpected fallback write: %+v", written)
	}
	if written.ID == "" {
		t.Error("Fallback write must carry a generated message id")
	}
	if written.Delivered {
		t.Error("Fallback write skips the relay and must not be marked delivered")
	}
}

// A connected send goes through the socket only, with no optimistic local
// append; the message appears after the round trip.
func TestThread_SendNoLocalAppend(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := thread.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(sock.sent) != 1 {
		t.Fatalf("Expected 1 socket emission, got %d", len(sock.sent))
	}
	if store.insertCount() != 0 {
		t.Errorf("Connected send must not write the store directly, got %d writes", store.insertCount())
	}
	if got := thread.Messages(); len(got) != 0 {
		t.Errorf("Send must not append locally before the round trip, got %v", messageIDs(got))
	}

	// the round trip: the relay persisted the message and the snapshot fires.
	source.fire("conv-1", []db.MessageRow{row("m1", "conv-1", time.Now())})
	if got := thread.Messages(); len(got) != 1 {
		t.Errorf("Expected message after round trip, got %v", messageIDs(got))
	}
}

// A stale snapshot callback arriving after Close must not panic and must not
// mutate visible state.
func TestThread_IdempotentTeardown(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// grab the raw subscriber so the queued-but-stale delivery can be replayed
	// even though Close cancels the subscription.
	source.mu.Lock()
	staleFn := source.subs["conv-1"][0]
	source.mu.Unlock()

	thread.Close()
	thread.Close() // double close is safe

	staleFn([]db.MessageRow{row("late", "conv-1", time.Now())})

	if got := thread.Messages(); len(got) != 0 {
		t.Errorf("Stale callback mutated state after Close: %v", messageIDs(got))
	}

	if err := thread.Send(context.Background(), "after close"); err == nil {
		t.Error("Send after Close should fail")
	}
}

// An OnChange observer sees every timeline mutation with a consistent copy.
func TestThread_OnChangeObserver(t *testing.T) {
	sock := &fakeSocket{}
	sock.Connect()
	store := &fakeStore{}
	source := newFakeSource()

	thread := newTestThread(t, sock, store, source)
	defer thread.Close()

	var mu sync.Mutex
	var lastSeen []string
	thread.OnChange = func(messages []chat.Message) {
		mu.Lock()
		defer mu.Unlock()
		lastSeen = messageIDs(messages)
	}

	if err := thread.Open(context.Background(), "conv-1", "teacher-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	sock.pushMessage(chat.FromRow(row("m1", "conv-1", time.Now())))

	mu.Lock()
	defer mu.Unlock()
	if len(lastSeen) != 1 || lastSeen[0] != "m1" {
		t.Errorf("Observer expected [m1], got %v", lastSeen)
	}
}
