package db

import (
	"context"
	"time"
)

// GetConversationByPair looks up the conversation for a (student, teacher) pair
// by equality on both fields. Returns pgx.ErrNoRows through the caller's
// IsNotFound check when absent.
func (q *Queries) GetConversationByPair(ctx context.Context, studentID, teacherID string) (ConversationRow, error) {
	const query = `
		SELECT id, student_id, teacher_id, last_message, last_message_at, created_at, updated_at
		FROM conversations
		WHERE student_id = $1 AND teacher_id = $2
		LIMIT 1`

	var c ConversationRow
	err := q.pool.QueryRow(ctx, query, studentID, teacherID).
		Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// GetConversationByID fetches a conversation by id.
func (q *Queries) GetConversationByID(ctx context.Context, id string) (ConversationRow, error) {
	const query = `
		SELECT id, student_id, teacher_id, last_message, last_message_at, created_at, updated_at
		FROM conversations WHERE id = $1`

	var c ConversationRow
	err := q.pool.QueryRow(ctx, query, id).
		Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateConversation inserts a new conversation with empty last-message fields
// and returns the stored row. Callers must look up before creating; two
// simultaneous first opens can still create two rows (known open issue).
func (q *Queries) CreateConversation(ctx context.Context, studentID, teacherID string) (ConversationRow, error) {
	const query = `
		INSERT INTO conversations (student_id, teacher_id)
		VALUES ($1, $2)
		RETURNING id, student_id, teacher_id, last_message, last_message_at, created_at, updated_at`

	var c ConversationRow
	err := q.pool.QueryRow(ctx, query, studentID, teacherID).
		Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListConversationsForUser returns the conversations the given account takes
// part in, most recently updated first. Teachers see one entry per student
// thread; students usually see one per teacher.
func (q *Queries) ListConversationsForUser(ctx context.Context, userID string) ([]ConversationRow, error) {
	const query = `
		SELECT id, student_id, teacher_id, last_message, last_message_at, created_at, updated_at
		FROM conversations
		WHERE student_id = $1 OR teacher_id = $1
		ORDER BY updated_at DESC`

	rows, err := q.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationRow
	for rows.Next() {
		var c ConversationRow
		if err := rows.Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertMessageParams carries the fields for InsertMessage.
type InsertMessageParams struct {
	ID             string
	ConversationID string
	SenderID       string
	RecipientID    string
	Body           string
	SentAt         time.Time
	Delivered      bool
}

// InsertMessage persists a message and refreshes the conversation's last-message
// fields. The insert fires the campus_messages NOTIFY trigger, which drives the
// snapshot delivery path of every live subscriber.
func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO messages (id, conversation_id, sender_id, recipient_id, body, sent_at, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.Exec(ctx, insert,
		arg.ID, arg.ConversationID, arg.SenderID, arg.RecipientID, arg.Body, arg.SentAt, arg.Delivered,
	); err != nil {
		return err
	}

	const touch = `
		UPDATE conversations
		SET last_message = $2, last_message_at = $3, updated_at = now()
		WHERE id = $1`

	if _, err := tx.Exec(ctx, touch, arg.ConversationID, arg.Body, arg.SentAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListMessages returns the full current message set of a conversation ordered
// by timestamp ascending. This ordering is the contract every snapshot
// subscriber relies on.
func (q *Queries) ListMessages(ctx context.Context, conversationID string) ([]MessageRow, error) {
	const query = `
		SELECT id, conversation_id, sender_id, recipient_id, body, sent_at, delivered, read
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC`

	rows, err := q.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.Body, &m.SentAt, &m.Delivered, &m.Read); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkMessagesRead flags all messages addressed to the given recipient in the
// conversation as read.
func (q *Queries) MarkMessagesRead(ctx context.Context, conversationID, recipientID string) error {
	const query = `
		UPDATE messages SET read = TRUE
		WHERE conversation_id = $1 AND recipient_id = $2 AND read = FALSE`

	_, err := q.pool.Exec(ctx, query, conversationID, recipientID)
	return err
}
