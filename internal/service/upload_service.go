package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"net/http"
	"strings"
	"time"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/storage"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultProfilePictureMaxBytes = 5 << 20
	DefaultPostImageMaxBytes      = 10 << 20
)

// BlobStore persists bytes and returns a retrievable reference.
type BlobStore interface {
	Save(ctx context.Context, folder, name string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UploadService struct {
	store             BlobStore
	users             *UserService
	profileMaxBytes   int64
	postImageMaxBytes int64
	now               func() time.Time
}

func NewUploadService(store BlobStore, users *UserService, profileMaxBytes, postImageMaxBytes int64) *UploadService {
	if profileMaxBytes <= 0 {
		profileMaxBytes = DefaultProfilePictureMaxBytes
	}
	if postImageMaxBytes <= 0 {
		postImageMaxBytes = DefaultPostImageMaxBytes
	}
	return &UploadService{
		store:             store,
		users:             users,
		profileMaxBytes:   profileMaxBytes,
		postImageMaxBytes: postImageMaxBytes,
		now:               time.Now,
	}
}

// UploadProfilePicture stores the image and points the user at it. If the
// user update fails the stored file is removed best-effort.
func (s *UploadService) UploadProfilePicture(ctx context.Context, userID uint, in UploadInput) (*models.User, string, error) {
	ref, err := s.storeImage(ctx, "profile_picture", storage.FolderProfilePictures, s.profileMaxBytes, userID, in)
	if err != nil {
		return nil, "", err
	}

	previous, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.discard(ctx, ref)
		return nil, "", err
	}

	user, err := s.users.SetProfilePicture(ctx, userID, ref)
	if err != nil {
		s.discard(ctx, ref)
		return nil, "", err
	}

	// only the user's own earlier upload is removed; the stored URL may point anywhere
	if prev := previous.ProfilePictureURL; prev != nil && *prev != ref &&
		storage.OwnedBy(*prev, storage.FolderProfilePictures, userID) {
		if err := s.store.Delete(ctx, *previous.ProfilePictureURL); err != nil {
			middleware.Logger.DebugContext(ctx, "previous profile picture not removed",
				slog.String("ref", *previous.ProfilePictureURL), slog.String("error", err.Error()))
		}
	}
	return user, ref, nil
}

// UploadPostImage stores an image to be referenced by a post.
func (s *UploadService) UploadPostImage(ctx context.Context, userID uint, in UploadInput) (string, error) {
	return s.storeImage(ctx, "post_image", storage.FolderPostImages, s.postImageMaxBytes, userID, in)
}

func (s *UploadService) storeImage(ctx context.Context, kind, folder string, maxBytes int64, userID uint, in UploadInput) (string, error) {
	ext, err := validateImage(in, maxBytes)
	if err != nil {
		observability.Uploads.WithLabelValues(kind, "rejected").Inc()
		return "", err
	}

	ref, err := s.store.Save(ctx, folder, storage.FileName(userID, s.now(), ext), in.Data)
	if err != nil {
		observability.Uploads.WithLabelValues(kind, "error").Inc()
		return "", models.NewInternalError(err)
	}
	observability.Uploads.WithLabelValues(kind, "stored").Inc()
	return ref, nil
}

func (s *UploadService) discard(ctx context.Context, ref string) {
	if err := s.store.Delete(ctx, ref); err != nil {
		middleware.Logger.ErrorContext(ctx, "orphaned upload not removed",
			slog.String("ref", ref), slog.String("error", err.Error()))
	}
}

// validateImage checks size, sniffed type and decodability, and returns the
// file extension for the decoded format.
func validateImage(in UploadInput, maxBytes int64) (string, error) {
	if len(in.Data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Data)) > maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes>>20))
	}

	if declared := normalizeContentType(in.ContentType); declared != "" && !strings.HasPrefix(declared, "image/") {
		return "", models.NewValidationError("Only image files are allowed")
	}
	if !strings.HasPrefix(http.DetectContentType(in.Data), "image/") {
		return "", models.NewValidationError("Only image files are allowed")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	switch format {
	case "jpeg":
		return ".jpg", nil
	case "png", "gif", "webp":
		return "." + format, nil
	default:
		return "", models.NewValidationError("Unsupported image format")
	}
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
