package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const maxPhotoSize = 5 * 1024 * 1024

// MediaUploader stores a file and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, r io.Reader, folder, name string) (string, error)
}

type CloudinaryUploader struct {
	cld        *cloudinary.Cloudinary
	rootFolder string
}

// NewCloudinaryUploader reads credentials from a cloudinary:// URL; an empty
// URL falls back to the CLOUDINARY_URL environment variable.
func NewCloudinaryUploader(url, rootFolder string) (*CloudinaryUploader, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if url != "" {
		cld, err = cloudinary.NewFromURL(url)
	} else {
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, rootFolder: rootFolder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, folder, name string) (string, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	result, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		ResourceType: "image",
		Folder:       strings.Trim(u.rootFolder+"/"+folder, "/"),
		PublicID:     fmt.Sprintf("%s_%d", base, time.Now().Unix()),
	})
	if err != nil {
		return "", err
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

// ValidatePhoto accepts jpg, jpeg, png and webp files up to 5MB.
func ValidatePhoto(filename string, size int64) error {
	if size <= 0 || size > maxPhotoSize {
		return ValidationError{Field: "photo", Msg: "must be between 1 byte and 5MB"}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return nil
	default:
		return ValidationError{Field: "photo", Msg: "must be a jpg, png or webp image"}
	}
}
