/*
This file implements the live-query side of the messages table.

Every insert into messages fires a NOTIFY on the campus_messages channel carrying
the conversation id. The watcher holds one dedicated LISTEN connection, and for
each notification re-runs the ordered conversation query, delivering the FULL
current result set to every subscriber of that conversation. Subscribers
therefore always receive whole snapshots, never deltas.
*/
package db

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"campusconnect/internal/pkg/logx"
)

// SnapshotFunc receives the full, timestamp-ascending message set of a
// conversation each time it changes.
type SnapshotFunc func(messages []MessageRow)

// listenChannel is the NOTIFY channel fired by the messages insert trigger.
const listenChannel = "campus_messages"

// reconnectDelay is the pause before re-acquiring a LISTEN connection after a failure.
const reconnectDelay = 2 * time.Second

type subscriber struct {
	id int
	fn SnapshotFunc
}

// MessageWatcher multiplexes the campus_messages LISTEN channel into
// per-conversation snapshot subscriptions.
type MessageWatcher struct {
	queries *Queries

	mu     sync.Mutex
	nextID int
	subs   map[string][]subscriber

	logger zerolog.Logger
}

// NewMessageWatcher constructs a watcher over the given query layer.
// Run must be started for notifications to flow.
func NewMessageWatcher(queries *Queries) *MessageWatcher {
	return &MessageWatcher{
		queries: queries,
		subs:    make(map[string][]subscriber),
		logger:  logx.Logger().With().Str("component", "MessageWatcher").Logger(),
	}
}

// Subscribe registers fn for full snapshots of the given conversation and
// immediately delivers the current snapshot. The returned function cancels the
// subscription; calling it more than once is harmless.
func (w *MessageWatcher) Subscribe(ctx context.Context, conversationID string, fn SnapshotFunc) (func(), error) {
	initial, err := w.queries.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.nextID++
	sub := subscriber{id: w.nextID, fn: fn}
	w.subs[conversationID] = append(w.subs[conversationID], sub)
	w.mu.Unlock()

	fn(initial)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()

			list := w.subs[conversationID]
			for i, s := range list {
				if s.id == sub.id {
					w.subs[conversationID] = append(list[:i], list[i+1:]...)
					break
				}
			}
			if len(w.subs[conversationID]) == 0 {
				delete(w.subs, conversationID)
			}
		})
	}

	return cancel, nil
}

// Run blocks listening for message notifications until ctx is cancelled.
// A broken LISTEN connection is re-acquired after a short delay; notifications
// fired while disconnected are compensated by the fact that the next delivered
// snapshot is always the full current result set.
func (w *MessageWatcher) Run(ctx context.Context) {
	w.logger.Info().Str("channel", listenChannel).Msg("Message watcher started.")

	for {
		if err := w.listen(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("Message watcher stopped.")
				return
			}

			w.logger.Error().Err(err).Dur("retry_in", reconnectDelay).Msg("LISTEN connection lost.")

			select {
			case <-ctx.Done():
				w.logger.Info().Msg("Message watcher stopped.")
				return
			case <-time.After(reconnectDelay):
			}
		}
	}
}

// listen holds a dedicated pool connection on LISTEN and dispatches snapshots
// until the connection or the context fails.
func (w *MessageWatcher) listen(ctx context.Context) error {
	conn, err := w.queries.Pool().Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+listenChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		w.dispatch(ctx, notification.Payload)
	}
}

// dispatch re-queries the conversation named by the notification payload and
// fans the snapshot out to its subscribers, if any.
func (w *MessageWatcher) dispatch(ctx context.Context, conversationID string) {
	w.mu.Lock()
	list := make([]subscriber, len(w.subs[conversationID]))
	copy(list, w.subs[conversationID])
	w.mu.Unlock()

	if len(list) == 0 {
		return
	}

	snapshot, err := w.queries.ListMessages(ctx, conversationID)
	if err != nil {
		w.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Snapshot query failed.")
		return
	}

	for _, sub := range list {
		sub.fn(snapshot)
	}
}
