/*
This file contains the study material handlers: presigned uploads by teachers,
metadata registration, per-course listing and presigned downloads.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusconnect/internal/app/db"
	"campusconnect/internal/app/storage"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/randx"
	"campusconnect/internal/pkg/req"
	"campusconnect/internal/pkg/resp"
)

type PresignMaterialInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignMaterialUpload validates the upload and returns a presigned PUT
// URL. Teachers and admins only.
func HandlePresignMaterialUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireRole(r, user.RoleTeacher, user.RoleAdmin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input PresignMaterialInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateFileSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if customErr := storage.ValidateFileType(input.FileName, input.MimeType, storage.MaterialMIMETypes); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := "materials/" + identity.ID + "/" + randx.FileID()

		uploadURL, err := deps.StorageService.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, storage.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "material presign upload failed", "user_id", identity.ID)
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

type CreateMaterialInput struct {
	Course   string `json:"course"`
	Title    string `json:"title"`
	FileKey  string `json:"fileKey"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandleCreateMaterial registers the metadata of an uploaded material. The
// object's presence in storage is verified before the row is written.
func HandleCreateMaterial(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireRole(r, user.RoleTeacher, user.RoleAdmin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateMaterialInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Course == "" || input.Title == "" || input.FileKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := deps.StorageService.GetObjectMetadata(r.Context(), input.FileKey); err != nil {
			logx.Warn("material registration for missing object", "file_key", input.FileKey, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		material, err := deps.DB.CreateMaterial(r.Context(), db.CreateMaterialParams{
			Course:     input.Course,
			Title:      input.Title,
			FileKey:    input.FileKey,
			MimeType:   input.MimeType,
			FileSize:   input.FileSize,
			UploadedBy: identity.ID,
		})
		if err != nil {
			logx.Error(err, "failed to create material row", "course", input.Course)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"material": materialResponse(material),
		})
	}
}

// HandleListMaterials returns a course's study materials, newest first.
func HandleListMaterials(deps *AppDeps) http.HandlerFunc {
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

		materials, err := deps.DB.ListMaterialsByCourse(r.Context(), course)
		if err != nil {
			logx.Error(err, "failed to list materials", "course", course)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		list := make([]map[string]any, 0, len(materials))
		for _, m := range materials {
			list = append(list, materialResponse(m))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"materials": list,
		})
	}
}

// HandlePresignMaterialDownload returns a short-lived download URL for one
// material. Any signed-in account may download.
func HandlePresignMaterialDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := requireIdentity(r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		materialID := chi.URLParam(r, "id")
		if materialID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		material, err := deps.DB.GetMaterialByID(r.Context(), materialID)
		if err != nil {
			if db.IsNotFound(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRecordNotFound))
				return
			}

			logx.Error(err, "material lookup failed", "material_id", materialID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		downloadURL, err := deps.StorageService.PresignDownload(r.Context(), material.FileKey, storage.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "material presign download failed", "material_id", materialID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"downloadUrl": downloadURL,
			"expiresIn":   int(storage.PresignedURLDuration.Seconds()),
		})
	}
}

func materialResponse(m db.MaterialRow) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"course":     m.Course,
		"title":      m.Title,
		"mimeType":   m.MimeType,
		"fileSize":   m.FileSize,
		"uploadedBy": m.UploadedBy,
		"createdAt":  m.CreatedAt.UnixMilli(),
	}
}
