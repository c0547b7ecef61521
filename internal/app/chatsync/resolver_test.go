package chatsync

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"

	"campusconnect/internal/app/db"
	"campusconnect/internal/pkg/errs"
)

// fakeConversationStore keys conversations by (student, teacher) pair and
// counts creations.
type fakeConversationStore struct {
	rows    map[string]db.ConversationRow
	creates int
	nextID  int
}

var _ ConversationStore = (*fakeConversationStore)(nil)

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{rows: make(map[string]db.ConversationRow)}
}

func (f *fakeConversationStore) GetConversationByPair(_ context.Context, studentID, teacherID string) (db.ConversationRow, error) {
	if conv, ok := f.rows[studentID+"/"+teacherID]; ok {
		return conv, nil
	}
	return db.ConversationRow{}, pgx.ErrNoRows
}

func (f *fakeConversationStore) CreateConversation(_ context.Context, studentID, teacherID string) (db.ConversationRow, error) {
	f.creates++
	f.nextID++

	conv := db.ConversationRow{
		ID:        fmt.Sprintf("conv-%d", f.nextID),
		StudentID: studentID,
		TeacherID: teacherID,
	}
	f.rows[studentID+"/"+teacherID] = conv
	return conv, nil
}

// Two sequential resolutions of the same pair return the same id and create at
// most one row.
func TestResolver_SequentialIdempotence(t *testing.T) {
	store := newFakeConversationStore()
	resolver := NewResolver(store)

	first, err := resolver.Resolve(context.Background(), "student-1", "teacher-1")
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}

	second, err := resolver.Resolve(context.Background(), "student-1", "teacher-1")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected same conversation id, got %q and %q", first, second)
	}
	if store.creates != 1 {
		t.Errorf("Expected exactly 1 creation, got %d", store.creates)
	}
}

func TestResolver_DistinctPairs(t *testing.T) {
	store := newFakeConversationStore()
	resolver := NewResolver(store)

	a, err := resolver.Resolve(context.Background(), "student-1", "teacher-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	b, err := resolver.Resolve(context.Background(), "student-1", "teacher-2")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if a == b {
		t.Errorf("Different pairs must not share a conversation, both got %q", a)
	}
	if store.creates != 2 {
		t.Errorf("Expected 2 creations, got %d", store.creates)
	}
}

func TestResolver_RejectsEmptyIDs(t *testing.T) {
	store := newFakeConversationStore()
	resolver := NewResolver(store)

	cases := []struct {
		name      string
		studentID string
		teacherID string
	}{
		{"empty student", "", "teacher-1"},
		{"empty teacher", "student-1", ""},
		{"both empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tc.studentID, tc.teacherID)

			customErr, ok := err.(*errs.CustomError)
			if !ok || customErr.Code != errs.ErrConversationPairInvalid {
				t.Errorf("Expected ErrConversationPairInvalid, got %v", err)
			}
			if store.creates != 0 {
				t.Errorf("Validation failure must not create, got %d creations", store.creates)
			}
		})
	}
}
