package chatsync

import (
	"context"

	"campusconnect/internal/app/db"
	"campusconnect/internal/pkg/errs"
)

// ConversationStore is the slice of the query layer the resolver needs.
// *db.Queries satisfies it.
type ConversationStore interface {
	GetConversationByPair(ctx context.Context, studentID, teacherID string) (db.ConversationRow, error)
	CreateConversation(ctx context.Context, studentID, teacherID string) (db.ConversationRow, error)
}

// Resolver maps a (student, teacher) pair to its durable conversation id,
// creating the conversation lazily on first open.
type Resolver struct {
	store ConversationStore
}

// NewResolver constructs a resolver over the given store.
func NewResolver(store ConversationStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the conversation id for the pair, performing at most one
// creation. Lookup-before-create keeps repeated sequential calls idempotent;
// two simultaneous first opens of the same pair can still each create a row,
// a known open issue inherited from the store model (no unique pair constraint).
func (r *Resolver) Resolve(ctx context.Context, studentID, teacherID string) (string, error) {
	if studentID == "" || teacherID == "" {
		return "", errs.NewError(errs.ErrConversationPairInvalid)
	}

	conv, err := r.store.GetConversationByPair(ctx, studentID, teacherID)
	if err == nil {
		return conv.ID, nil
	}

	if !db.IsNotFound(err) {
		return "", err
	}

	created, err := r.store.CreateConversation(ctx, studentID, teacherID)
	if err != nil {
		return "", err
	}

	return created.ID, nil
}
