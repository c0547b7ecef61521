package storage

import (
	"testing"

	"campusconnect/internal/pkg/errs"
)

func TestValidateFileSize(t *testing.T) {
	if err := ValidateFileSize(1024); err != nil {
		t.Errorf("Expected 1KB to pass, got %v", err)
	}
	if err := ValidateFileSize(MaxUploadSize); err != nil {
		t.Errorf("Expected exact limit to pass, got %v", err)
	}

	if err := ValidateFileSize(0); err == nil || err.Code != errs.ErrInvalidParams {
		t.Errorf("Expected ErrInvalidParams for zero size, got %v", err)
	}
	if err := ValidateFileSize(-1); err == nil {
		t.Error("Expected error for negative size")
	}
	if err := ValidateFileSize(MaxUploadSize + 1); err == nil || err.Code != errs.ErrFileSizeTooLarge {
		t.Errorf("Expected ErrFileSizeTooLarge over the limit, got %v", err)
	}
}

func TestValidateFileType(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		mimeType string
		allowed  map[string]struct{}
		wantOK   bool
	}{
		{"avatar jpeg", "photo.jpg", "image/jpeg", ImageMIMETypes, true},
		{"avatar png uppercase mime", "photo.png", "IMAGE/PNG", ImageMIMETypes, true},
		{"avatar webp", "photo.webp", "image/webp", ImageMIMETypes, true},
		{"material pdf", "notes.pdf", "application/pdf", MaterialMIMETypes, true},
		{"pdf not an image", "notes.pdf", "application/pdf", ImageMIMETypes, false},
		{"extension mime mismatch", "photo.png", "image/jpeg", ImageMIMETypes, false},
		{"no extension", "photo", "image/jpeg", ImageMIMETypes, false},
		{"unknown extension", "archive.zip", "image/jpeg", ImageMIMETypes, false},
		{"disallowed mime", "script.svg", "image/svg+xml", ImageMIMETypes, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFileType(tc.fileName, tc.mimeType, tc.allowed)

			if tc.wantOK && err != nil {
				t.Errorf("Expected %q/%q to pass, got %v", tc.fileName, tc.mimeType, err)
			}
			if !tc.wantOK && err == nil {
				t.Errorf("Expected %q/%q to be rejected", tc.fileName, tc.mimeType)
			}
		})
	}
}
