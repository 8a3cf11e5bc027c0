// Package storage handles image uploads to external blob storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"mercadito/internal/observability"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

// CloudinaryUploader uploads images to a Cloudinary account.
type CloudinaryUploader struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudinaryURL, folder string) (*CloudinaryUploader, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is empty")
	}
	client, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary client: %w", err)
	}
	return &CloudinaryUploader{client: client, folder: folder}, nil
}

// Upload sends the file to Cloudinary and returns the HTTPS delivery URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	ctx, span := observability.TraceStorageUpload(ctx, filename)
	defer span.End()

	start := time.Now()
	resp, err := u.client.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: uuid.NewString(),
	})
	observability.ImageUploadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ImageUploadErrors.Inc()
		span.RecordError(err)
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	// The SDK reports per-request API errors in the response body.
	if resp.Error.Message != "" {
		observability.ImageUploadErrors.Inc()
		return "", fmt.Errorf("cloudinary upload rejected: %s", resp.Error.Message)
	}

	return resp.SecureURL, nil
}
