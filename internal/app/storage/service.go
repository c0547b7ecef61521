/*
Package storage fronts the portal's object bucket: profile photos under
avatars/ and course files under materials/.

The bucket is never public. Every read and write goes through a short-lived
presigned URL minted here, so the server hands out capability, not bytes —
uploads and downloads move directly between the browser and the bucket.
*/
package storage

import (
	"context"
	"time"
)

// ServiceConfig carries the bucket credentials and endpoint. Populated from
// the environment by configs.LoadConfig.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService is what the handlers program against; the S3 client is the
// only implementation.
type StorageService interface {
	// PresignUpload mints an upload URL pinned to the given key, MIME type
	// and exact content length, valid for the given duration.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload mints a read URL for the key, valid for the given duration.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the object at the key. Used when an avatar is replaced
	// or a study material row is removed.
	Delete(ctx context.Context, key string) error

	// GetObjectMetadata returns the object's Content-Type and Content-Length,
	// used to verify a client actually completed its presigned upload.
	GetObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// NewStorageService builds the storage backend from configuration. Any
// S3-compatible endpoint works; the endpoint URL comes from ServiceConfig.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
