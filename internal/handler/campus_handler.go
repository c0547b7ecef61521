/*
This file contains the portal's CRUD handlers: announcements, attendance,
exam timetables, academic calendar events and weekly timetable entries.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/req"
	"campusconnect/internal/pkg/resp"
)

const defaultAnnouncementLimit = 50

// --- Announcements ---

type CreateAnnouncementInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HandleCreateAnnouncement publishes an announcement. Teachers and admins only.
func HandleCreateAnnouncement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireRole(r, user.RoleTeacher, user.RoleAdmin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateAnnouncementInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" || input.Body == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		announcement, err := deps.DB.CreateAnnouncement(r.Context(), db.CreateAnnouncementParams{
			Title:    input.Title,
			Body:     input.Body,
			AuthorID: identity.ID,
		})
		if err != nil {
			logx.Error(err, "failed to create announcement")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"announcement": map[string]any{
				"id":        announcement.ID,
				"title":     announcement.Title,
				"body":      announcement.Body,
				"authorId":  announcement.AuthorID,
				"createdAt": announcement.CreatedAt.UnixMilli(),
			},
		})
	}
}

// HandleListAnnouncements returns the latest announcements, newest first.
func HandleListAnnouncements(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireIdentity(r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		announcements, err := deps.DB.ListAnnouncements(r.Context(), defaultAnnouncementLimit)
		if err != nil {
			logx.Error(err, "failed to list announcements")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(announcements))
		for _, a := range announcements {
			list = append(list, map[string]any{
				"id":        a.ID,
				"title":     a.Title,
				"body":      a.Body,
				"authorId":  a.AuthorID,
				"createdAt": a.CreatedAt.UnixMilli(),
			})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"announcements": list,
		})
	}
}

// HandleDeleteAnnouncement removes an announcement. Admins only.
func HandleDeleteAnnouncement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireRole(r, user.RoleAdmin); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.DB.DeleteAnnouncement(r.Context(), id); err != nil {
			logx.Error(err, "failed to delete announcement", "announcement_id", id)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// --- Attendance ---

type MarkAttendanceInput struct {
	StudentID string `json:"studentId"`
	Course    string `json:"course"`
	Date      string `json:"date"` // YYYY-MM-DD
	Present   bool   `json:"present"`
}

// HandleMarkAttendance records one attendance mark. Teachers and admins only;
// a second mark for the same (student, course, date) is rejected.
func HandleMarkAttendance(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireRole(r, user.RoleTeacher, user.RoleAdmin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input MarkAttendanceInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		onDate, err := time.Parse("2006-01-02", input.Date)
		if err != nil || input.StudentID == "" || input.Course == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		record, err := deps.DB.MarkAttendance(r.Context(), db.MarkAttendanceParams{
			StudentID: input.StudentID,
			Course:    input.Course,
			OnDate:    onDate,
			Present:   input.Present,
			MarkedBy:  identity.ID,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrAttendanceDuplicate))
				return
			}

			logx.Error(err, "failed to mark attendance", "student_id", input.StudentID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"attendance": attendanceResponse(record),
		})
	}
}

// HandleListAttendance returns attendance rows for a student and course.
// Students may only read their own records.
func HandleListAttendance(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		studentID := r.URL.Query().Get("studentId")
		course := r.URL.Query().Get("course")

		if identity.Role == user.RoleStudent {
			studentID = identity.ID
		}
		if studentID == "" || course == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		records, err := deps.DB.ListAttendanceForStudent(r.Context(), studentID, course)
		if err != nil {
			logx.Error(err, "failed to list attendance", "student_id", studentID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(records))
		for _, a := range records {
			list = append(list, attendanceResponse(a))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"attendance": list,
		})
	}
}

func attendanceResponse(a db.AttendanceRow) map[string]any {
	return map[string]any{
		"id":        a.ID,
		"studentId": a.StudentID,
		"course":    a.Course,
		"date":      a.OnDate.Format("2006-01-02"),
		"present":   a.Present,
		"markedBy":  a.MarkedBy,
	}
}

// --- Exam timetables ---

type CreateExamInput struct {
	Course  string `json:"course"`
	Subject string `json:"subject"`
	ExamAt  int64  `json:"examAt"` // unix millis
	Room    string `json:"room"`
}

// HandleCreateExam schedules an exam. Admins only.
func HandleCreateExam(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireRole(r, user.RoleAdmin); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateExamInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Course == "" || input.Subject == "" || input.ExamAt <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exam, err := deps.DB.CreateExam(r.Context(), db.CreateExamParams{
			Course:  input.Course,
			Subject: input.Subject,
			ExamAt:  time.UnixMilli(input.ExamAt),
			Room:    input.Room,
		})
		if err != nil {
			logx.Error(err, "failed to create exam", "course", input.Course)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"exam": examResponse(exam),
		})
	}
}

// HandleListExams returns a course's exams in chronological order.
func HandleListExams(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireIdentity(r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		course := r.URL.Query().Get("course")
		if course == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exams, err := deps.DB.ListExamsByCourse(r.Context(), course)
		if err != nil {
			logx.Error(err, "failed to list exams", "course", course)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(exams))
		for _, e := range exams {
			list = append(list, examResponse(e))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"exams": list,
		})
	}
}

// HandleDeleteExam removes an exam timetable entry. Admins only.
func HandleDeleteExam(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireRole(r, user.RoleAdmin); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.DB.DeleteExam(r.Context(), id); err != nil {
			logx.Error(err, "failed to delete exam", "exam_id", id)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

func examResponse(e db.ExamRow) map[string]any {
	return map[string]any{
		"id":      e.ID,
		"course":  e.Course,
		"subject": e.Subject,
		"examAt":  e.ExamAt.UnixMilli(),
		"room":    e.Room,
	}
}

// --- Calendar events ---

type CreateCalendarEventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartsAt    int64  `json:"startsAt"` // unix millis
	EndsAt      int64  `json:"endsAt"`
}

// HandleCreateCalendarEvent adds an academic calendar event. Admins only.
func HandleCreateCalendarEvent(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireRole(r, user.RoleAdmin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateCalendarEventInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" || input.StartsAt <= 0 || input.EndsAt < input.StartsAt {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		event, err := deps.DB.CreateCalendarEvent(r.Context(), db.CreateCalendarEventParams{
			Title:       input.Title,
			Description: input.Description,
			StartsAt:    time.UnixMilli(input.StartsAt),
			EndsAt:      time.UnixMilli(input.EndsAt),
			CreatedBy:   identity.ID,
		})
		if err != nil {
			logx.Error(err, "failed to create calendar event")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"event": calendarEventResponse(event),
		})
	}
}

// HandleListCalendarEvents returns events overlapping the requested window,
// defaulting to the 90 days from now.
func HandleListCalendarEvents(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireIdentity(r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		from := time.Now()
		to := from.AddDate(0, 3, 0)

		if fromStr := r.URL.Query().Get("from"); fromStr != "" {
			parsed, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			from = parsed
		}
		if toStr := r.URL.Query().Get("to"); toStr != "" {
			parsed, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			to = parsed
		}

		events, err := deps.DB.ListCalendarEvents(r.Context(), from, to)
		if err != nil {
			logx.Error(err, "failed to list calendar events")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(events))
		for _, e := range events {
			list = append(list, calendarEventResponse(e))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"events": list,
		})
	}
}

// HandleDeleteCalendarEvent removes a calendar event. Admins only.
func HandleDeleteCalendarEvent(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireRole(r, user.RoleAdmin); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.DB.DeleteCalendarEvent(r.Context(), id); err != nil {
			logx.Error(err, "failed to delete calendar event", "event_id", id)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

func calendarEventResponse(e db.CalendarEventRow) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"title":       e.Title,
		"description": e.Description,
		"startsAt":    e.StartsAt.UnixMilli(),
		"endsAt":      e.EndsAt.UnixMilli(),
		"createdBy":   e.CreatedBy,
	}
}

// --- Timetable entries ---

type CreateTimetableEntryInput struct {
	Course    string `json:"course"`
	DayOfWeek int    `json:"dayOfWeek"` // 1 = Monday .. 7 = Sunday
	StartsAt  string `json:"startsAt"`  // HH:MM
	EndsAt    string `json:"endsAt"`
	Subject   string `json:"subject"`
	TeacherID string `json:"teacherId"`
}

// HandleCreateTimetableEntry adds a weekly class schedule entry. Admins only.
func HandleCreateTimetableEntry(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireRole(r, user.RoleAdmin); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateTimetableEntryInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Course == "" || input.Subject == "" || input.DayOfWeek < 1 || input.DayOfWeek > 7 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if _, err := time.Parse("15:04", input.StartsAt); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if _, err := time.Parse("15:04", input.EndsAt); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		entry, err := deps.DB.CreateTimetableEntry(r.Context(), db.CreateTimetableEntryParams{
			Course:    input.Course,
			DayOfWeek: input.DayOfWeek,
			StartsAt:  input.StartsAt,
			EndsAt:    input.EndsAt,
			Subject:   input.Subject,
			TeacherID: input.TeacherID,
		})
		if err != nil {
			logx.Error(err, "failed to create timetable entry", "course", input.Course)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"entry": timetableEntryResponse(entry),
		})
	}
}

// HandleListTimetable returns a course's weekly schedule.
func HandleListTimetable(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireIdentity(r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		course := r.URL.Query().Get("course")
		if course == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		entries, err := deps.DB.ListTimetableByCourse(r.Context(), course)
		if err != nil {
			logx.Error(err, "failed to list timetable", "course", course)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			list = append(list, timetableEntryResponse(e))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"timetable": list,
		})
	}
}

// HandleDeleteTimetableEntry removes a timetable entry. Admins only.
func HandleDeleteTimetableEntry(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireRole(r, user.RoleAdmin); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.DB.DeleteTimetableEntry(r.Context(), id); err != nil {
			logx.Error(err, "failed to delete timetable entry", "entry_id", id)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

func timetableEntryResponse(e db.TimetableEntryRow) map[string]any {
	return map[string]any{
		"id":        e.ID,
		"course":    e.Course,
		"dayOfWeek": e.DayOfWeek,
		"startsAt":  e.StartsAt,
		"endsAt":    e.EndsAt,
		"subject":   e.Subject,
		"teacherId": e.TeacherID,
	}
}
