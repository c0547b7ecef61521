package db

import "time"

// UserRow mirrors a row of the users table.
type UserRow struct {
	ID            string
	Username      string
	PasswordHash  string
	Name          string
	Role          string
	AvatarKey     string
	AdmissionCode string
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

// ConversationRow mirrors a row of the conversations table.
// A conversation pairs exactly one student with one teacher.
type ConversationRow struct {
	ID            string
	StudentID     string
	TeacherID     string
	LastMessage   string
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MessageRow mirrors a row of the messages table.
type MessageRow struct {
	ID             string
	ConversationID string
	SenderID       string
	RecipientID    string
	Body           string
	SentAt         time.Time
	Delivered      bool
	Read           bool
}

// AnnouncementRow mirrors a row of the announcements table.
type AnnouncementRow struct {
	ID        string
	Title     string
	Body      string
	AuthorID  string
	CreatedAt time.Time
}

// AttendanceRow mirrors a row of the attendance table.
type AttendanceRow struct {
	ID        string
	StudentID string
	Course    string
	OnDate    time.Time
	Present   bool
	MarkedBy  string
}

// ExamRow mirrors a row of the exam_timetables table.
type ExamRow struct {
	ID      string
	Course  string
	Subject string
	ExamAt  time.Time
	Room    string
}

// MaterialRow mirrors a row of the study_materials table.
type MaterialRow struct {
	ID         string
	Course     string
	Title      string
	FileKey    string
	MimeType   string
	FileSize   int64
	UploadedBy string
	CreatedAt  time.Time
}

// CalendarEventRow mirrors a row of the calendar_events table.
type CalendarEventRow struct {
	ID          string
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedBy   string
}

// TimetableEntryRow mirrors a row of the timetable_entries table.
type TimetableEntryRow struct {
	ID        string
	Course    string
	DayOfWeek int
	StartsAt  string
	EndsAt    string
	Subject   string
	TeacherID string
}
