package db

import (
	"context"
	"time"
)

// --- Announcements ---

// CreateAnnouncementParams carries the fields for CreateAnnouncement.
type CreateAnnouncementParams struct {
	Title    string
	Body     string
	AuthorID string
}

// CreateAnnouncement inserts an announcement and returns the stored row.
func (q *Queries) CreateAnnouncement(ctx context.Context, arg CreateAnnouncementParams) (AnnouncementRow, error) {
	const query = `
		INSERT INTO announcements (title, body, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, title, body, author_id, created_at`

	var a AnnouncementRow
	err := q.pool.QueryRow(ctx, query, arg.Title, arg.Body, arg.AuthorID).
		Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &a.CreatedAt)
	return a, err
}

// ListAnnouncements returns announcements newest first.
func (q *Queries) ListAnnouncements(ctx context.Context, limit int) ([]AnnouncementRow, error) {
	const query = `
		SELECT id, title, body, author_id, created_at
		FROM announcements ORDER BY created_at DESC LIMIT $1`

	rows, err := q.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnnouncementRow
	for rows.Next() {
		var a AnnouncementRow
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAnnouncement removes an announcement by id.
func (q *Queries) DeleteAnnouncement(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}

// --- Attendance ---

// MarkAttendanceParams carries the fields for MarkAttendance.
type MarkAttendanceParams struct {
	StudentID string
	Course    string
	OnDate    time.Time
	Present   bool
	MarkedBy  string
}

// MarkAttendance records attendance for a (student, course, date) combination.
// The unique constraint rejects a second mark for the same combination.
func (q *Queries) MarkAttendance(ctx context.Context, arg MarkAttendanceParams) (AttendanceRow, error) {
	const query = `
		INSERT INTO attendance (student_id, course, on_date, present, marked_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, student_id, course, on_date, present, marked_by`

	var a AttendanceRow
	err := q.pool.QueryRow(ctx, query, arg.StudentID, arg.Course, arg.OnDate, arg.Present, arg.MarkedBy).
		Scan(&a.ID, &a.StudentID, &a.Course, &a.OnDate, &a.Present, &a.MarkedBy)
	return a, err
}

// ListAttendanceForStudent returns a student's attendance rows for a course,
// most recent date first.
func (q *Queries) ListAttendanceForStudent(ctx context.Context, studentID, course string) ([]AttendanceRow, error) {
	const query = `
		SELECT id, student_id, course, on_date, present, marked_by
		FROM attendance
		WHERE student_id = $1 AND course = $2
		ORDER BY on_date DESC`

	rows, err := q.pool.Query(ctx, query, studentID, course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttendanceRow
	for rows.Next() {
		var a AttendanceRow
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Course, &a.OnDate, &a.Present, &a.MarkedBy); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Exam timetables ---

// CreateExamParams carries the fields for CreateExam.
type CreateExamParams struct {
	Course  string
	Subject string
	ExamAt  time.Time
	Room    string
}

// CreateExam inserts an exam timetable entry and returns the stored row.
func (q *Queries) CreateExam(ctx context.Context, arg CreateExamParams) (ExamRow, error) {
	const query = `
		INSERT INTO exam_timetables (course, subject, exam_at, room)
		VALUES ($1, $2, $3, $4)
		RETURNING id, course, subject, exam_at, room`

	var e ExamRow
	err := q.pool.QueryRow(ctx, query, arg.Course, arg.Subject, arg.ExamAt, arg.Room).
		Scan(&e.ID, &e.Course, &e.Subject, &e.ExamAt, &e.Room)
	return e, err
}

// ListExamsByCourse returns a course's exams in chronological order.
func (q *Queries) ListExamsByCourse(ctx context.Context, course string) ([]ExamRow, error) {
	const query = `
		SELECT id, course, subject, exam_at, room
		FROM exam_timetables WHERE course = $1 ORDER BY exam_at ASC`

	rows, err := q.pool.Query(ctx, query, course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExamRow
	for rows.Next() {
		var e ExamRow
		if err := rows.Scan(&e.ID, &e.Course, &e.Subject, &e.ExamAt, &e.Room); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExam removes an exam timetable entry by id.
func (q *Queries) DeleteExam(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM exam_timetables WHERE id = $1`, id)
	return err
}

// --- Study materials ---

// CreateMaterialParams carries the fields for CreateMaterial.
type CreateMaterialParams struct {
	Course     string
	Title      string
	FileKey    string
	MimeType   string
	FileSize   int64
	UploadedBy string
}

// CreateMaterial registers the metadata row of an uploaded study material.
func (q *Queries) CreateMaterial(ctx context.Context, arg CreateMaterialParams) (MaterialRow, error) {
	const query = `
		INSERT INTO study_materials (course, title, file_key, mime_type, file_size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, course, title, file_key, mime_type, file_size, uploaded_by, created_at`

	var m MaterialRow
	err := q.pool.QueryRow(ctx, query,
		arg.Course, arg.Title, arg.FileKey, arg.MimeType, arg.FileSize, arg.UploadedBy,
	).Scan(&m.ID, &m.Course, &m.Title, &m.FileKey, &m.MimeType, &m.FileSize, &m.UploadedBy, &m.CreatedAt)
	return m, err
}

// GetMaterialByID fetches a study material row by id.
func (q *Queries) GetMaterialByID(ctx context.Context, id string) (MaterialRow, error) {
	const query = `
		SELECT id, course, title, file_key, mime_type, file_size, uploaded_by, created_at
		FROM study_materials WHERE id = $1`

	var m MaterialRow
	err := q.pool.QueryRow(ctx, query, id).
		Scan(&m.ID, &m.Course, &m.Title, &m.FileKey, &m.MimeType, &m.FileSize, &m.UploadedBy, &m.CreatedAt)
	return m, err
}

// ListMaterialsByCourse returns a course's study materials, newest first.
func (q *Queries) ListMaterialsByCourse(ctx context.Context, course string) ([]MaterialRow, error) {
	const query = `
		SELECT id, course, title, file_key, mime_type, file_size, uploaded_by, created_at
		FROM study_materials WHERE course = $1 ORDER BY created_at DESC`

	rows, err := q.pool.Query(ctx, query, course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MaterialRow
	for rows.Next() {
		var m MaterialRow
		if err := rows.Scan(&m.ID, &m.Course, &m.Title, &m.FileKey, &m.MimeType, &m.FileSize, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Calendar events ---

// CreateCalendarEventParams carries the fields for CreateCalendarEvent.
type CreateCalendarEventParams struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedBy   string
}

// CreateCalendarEvent inserts an academic calendar event and returns the stored row.
func (q *Queries) CreateCalendarEvent(ctx context.Context, arg CreateCalendarEventParams) (CalendarEventRow, error) {
	const query = `
		INSERT INTO calendar_events (title, description, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, description, starts_at, ends_at, created_by`

	var e CalendarEventRow
	err := q.pool.QueryRow(ctx, query, arg.Title, arg.Description, arg.StartsAt, arg.EndsAt, arg.CreatedBy).
		Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.CreatedBy)
	return e, err
}

// ListCalendarEvents returns events overlapping the [from, to) window in
// chronological order.
func (q *Queries) ListCalendarEvents(ctx context.Context, from, to time.Time) ([]CalendarEventRow, error) {
	const query = `
		SELECT id, title, description, starts_at, ends_at, created_by
		FROM calendar_events
		WHERE starts_at < $2 AND ends_at >= $1
		ORDER BY starts_at ASC`

	rows, err := q.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalendarEventRow
	for rows.Next() {
		var e CalendarEventRow
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteCalendarEvent removes a calendar event by id.
func (q *Queries) DeleteCalendarEvent(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	return err
}

// --- Timetable entries ---

// CreateTimetableEntryParams carries the fields for CreateTimetableEntry.
type CreateTimetableEntryParams struct {
	Course    string
	DayOfWeek int
	StartsAt  string
	EndsAt    string
	Subject   string
	TeacherID string
}

// CreateTimetableEntry inserts a weekly class schedule entry and returns the stored row.
func (q *Queries) CreateTimetableEntry(ctx context.Context, arg CreateTimetableEntryParams) (TimetableEntryRow, error) {
	const query = `
		INSERT INTO timetable_entries (course, day_of_week, starts_at, ends_at, subject, teacher_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, course, day_of_week, starts_at::text, ends_at::text, subject, teacher_id`

	var t TimetableEntryRow
	err := q.pool.QueryRow(ctx, query,
		arg.Course, arg.DayOfWeek, arg.StartsAt, arg.EndsAt, arg.Subject, arg.TeacherID,
	).Scan(&t.ID, &t.Course, &t.DayOfWeek, &t.StartsAt, &t.EndsAt, &t.Subject, &t.TeacherID)
	return t, err
}

// ListTimetableByCourse returns a course's weekly schedule ordered by day and start time.
func (q *Queries) ListTimetableByCourse(ctx context.Context, course string) ([]TimetableEntryRow, error) {
	const query = `
		SELECT id, course, day_of_week, starts_at::text, ends_at::text, subject, teacher_id
		FROM timetable_entries
		WHERE course = $1
		ORDER BY day_of_week ASC, starts_at ASC`

	rows, err := q.pool.Query(ctx, query, course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimetableEntryRow
	for rows.Next() {
		var t TimetableEntryRow
		if err := rows.Scan(&t.ID, &t.Course, &t.DayOfWeek, &t.StartsAt, &t.EndsAt, &t.Subject, &t.TeacherID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTimetableEntry removes a timetable entry by id.
func (q *Queries) DeleteTimetableEntry(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	return err
}
