/*
This file contains profile handlers: reading and updating the caller's own
profile, presigning avatar uploads, and the teacher directory students use to
open chat threads.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"campusconnect/internal/app/db"
	"campusconnect/internal/app/storage"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/randx"
	"campusconnect/internal/pkg/req"
	"campusconnect/internal/pkg/resp"
)

// userResponse builds the JSON shape of an account, with a short-lived
// download URL for the avatar when one is set. Presigning is best-effort: a
// storage hiccup degrades to an empty avatar, not a failed request.
func userResponse(deps *AppDeps, r *http.Request, u db.UserRow) map[string]any {
	avatarURL := ""
	if u.AvatarKey != "" {
		url, err := deps.StorageService.PresignDownload(r.Context(), u.AvatarKey, storage.PresignedURLDuration)
		if err != nil {
			logx.Warn("avatar presign failed", "user_id", u.ID, "error", err)
		} else {
			avatarURL = url
		}
	}

	var lastLogin any
	if u.LastLoginAt != nil {
		lastLogin = u.LastLoginAt.Format(time.RFC3339)
	}

	out := map[string]any{
		"id":          u.ID,
		"username":    u.Username,
		"name":        u.Name,
		"role":        u.Role,
		"avatar":      avatarURL,
		"lastLoginAt": lastLogin,
	}

	if u.Role == user.RoleStudent {
		out["admissionCode"] = u.AdmissionCode
	}

	return out
}

// HandleGetUserProfile returns the caller's own profile, refreshing
// last_login_at in the background when it is stale.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		dbUser, err := deps.DB.GetUserByID(r.Context(), identity.ID)
		if err != nil {
			logx.Warn("get_user_profile: user not found", "id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		stale := dbUser.LastLoginAt == nil || time.Since(*dbUser.LastLoginAt) > 30*time.Minute
		if stale {
			go func(id string) {
				if err := deps.DB.UpdateLastLogin(context.Background(), id); err != nil {
					logx.Error(err, "get_user_profile: failed to update last_login_at", "user_id", id)
				}
			}(dbUser.ID)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": userResponse(deps, r, dbUser),
		})
	}
}

type UpdateProfileInput struct {
	Name      string `json:"name"`
	AvatarKey string `json:"avatarKey"`
}

// HandleUpdateUserProfile updates the display name and avatar key. A replaced
// avatar object is deleted from storage in the background.
func HandleUpdateUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Name == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		oldUser, err := deps.DB.GetUserByID(r.Context(), identity.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		updated, err := deps.DB.UpdateUserProfile(r.Context(), db.UpdateUserProfileParams{
			ID:        identity.ID,
			Name:      input.Name,
			AvatarKey: input.AvatarKey,
		})
		if err != nil {
			logx.Error(err, "update_profile: database update failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		oldKey := oldUser.AvatarKey
		if input.AvatarKey != "" && oldKey != "" && oldKey != input.AvatarKey {
			go func(key string) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = deps.StorageService.Delete(ctx, key)
			}(oldKey)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": userResponse(deps, r, updated),
		})
	}
}

type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarURL validates the upload and returns a presigned PUT URL
// plus the storage key the client should save back to its profile.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateFileSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if customErr := storage.ValidateFileType(input.FileName, input.MimeType, storage.ImageMIMETypes); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := "avatars/" + identity.ID + "/" + randx.FileID()

		uploadURL, err := deps.StorageService.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, storage.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "avatar presign upload failed", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"uploadUrl": uploadURL,
			"key":       key,
			"expiresIn": int(storage.PresignedURLDuration.Seconds()),
		})
	}
}

// HandleListTeachers returns the teacher directory. Any signed-in account may
// browse it.
func HandleListTeachers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireIdentity(r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		teachers, err := deps.DB.ListTeachers(r.Context())
		if err != nil {
			logx.Error(err, "failed to list teachers")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(teachers))
		for _, t := range teachers {
			list = append(list, map[string]any{
				"id":   t.ID,
				"name": t.Name,
			})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"teachers": list,
		})
	}
}
