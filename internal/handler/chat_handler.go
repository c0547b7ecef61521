/*
This file contains the conversation handlers: resolving the durable
conversation of a (student, teacher) pair, listing a user's conversations, and
reading a conversation's message history.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusconnect/internal/app/chat"
	"campusconnect/internal/app/chatsync"
	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/auth/jwt"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/req"
	"campusconnect/internal/pkg/resp"
)

type ResolveConversationInput struct {
	// PeerID is the other participant: a teacher id when a student calls, a
	// student id when a teacher calls.
	PeerID string `json:"peerId"`
}

// HandleResolveConversation returns the durable conversation id for the caller
// and the given peer, creating the conversation lazily on first open.
func HandleResolveConversation(deps *AppDeps) http.HandlerFunc {
	resolver := chatsync.NewResolver(deps.DB)

	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireRole(r, user.RoleStudent, user.RoleTeacher)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input ResolveConversationInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		peer, err := deps.DB.GetUserByID(r.Context(), input.PeerID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		var studentID, teacherID string
		switch {
		case identity.Role == user.RoleStudent && peer.Role == user.RoleTeacher:
			studentID, teacherID = identity.ID, peer.ID
		case identity.Role == user.RoleTeacher && peer.Role == user.RoleStudent:
			studentID, teacherID = peer.ID, identity.ID
		default:
			// conversations pair exactly one student with one teacher.
			resp.RespondError(w, r, errs.NewError(errs.ErrConversationPairInvalid))
			return
		}

		conversationID, err := resolver.Resolve(r.Context(), studentID, teacherID)
		if err != nil {
			if customErr, ok := err.(*errs.CustomError); ok {
				resp.RespondError(w, r, customErr)
				return
			}

			logx.Error(err, "conversation resolution failed", "student_id", studentID, "teacher_id", teacherID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"conversationId": conversationID,
			"peer": map[string]any{
				"id":   peer.ID,
				"name": peer.Name,
				"role": peer.Role,
			},
		})
	}
}

// HandleListConversations returns the caller's conversations, most recently
// updated first.
func HandleListConversations(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		conversations, err := deps.DB.ListConversationsForUser(r.Context(), identity.ID)
		if err != nil {
			logx.Error(err, "failed to list conversations", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(conversations))
		for _, c := range conversations {
			entry := map[string]any{
				"id":          c.ID,
				"studentId":   c.StudentID,
				"teacherId":   c.TeacherID,
				"lastMessage": c.LastMessage,
			}
			if c.LastMessageAt != nil {
				entry["lastMessageAt"] = c.LastMessageAt.UnixMilli()
			}
			list = append(list, entry)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"conversations": list,
		})
	}
}

// HandleListMessages returns a conversation's full message history in
// ascending timestamp order, the same ordering the live snapshot path uses.
// Messages addressed to the caller are flagged read as a side effect.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		conversationID := chi.URLParam(r, "id")
		if conversationID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		conv, err := deps.DB.GetConversationByID(r.Context(), conversationID)
		if err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrConversationNotFound))
				return
			}

			logx.Error(err, "conversation lookup failed", "conversation_id", conversationID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if !participates(identity, conv) {
			resp.RespondError(w, r, errs.NewError(errs.ErrConversationForbidden))
			return
		}

		rows, err := deps.DB.ListMessages(r.Context(), conversationID)
		if err != nil {
			logx.Error(err, "failed to list messages", "conversation_id", conversationID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.DB.MarkMessagesRead(r.Context(), conversationID, identity.ID); err != nil {
			logx.Error(err, "failed to mark messages read", "conversation_id", conversationID)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": chat.FromRows(rows),
		})
	}
}

// participates reports whether the identity is one of the conversation's two
// participants.
func participates(identity *jwt.Payload, conv db.ConversationRow) bool {
	return conv.StudentID == identity.ID || conv.TeacherID == identity.ID
}
