package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"teamtrack/internal/models"
	"teamtrack/internal/observability"
	"teamtrack/internal/policy"
	"teamtrack/internal/repository"

	_ "golang.org/x/image/webp"
)

// AvatarService stores uploaded avatars under a private root and serves them back.
type AvatarService struct {
	root     string
	maxBytes int64
	userRepo repository.UserRepository
}

// NewAvatarService returns an AvatarService rooted at root. maxBytes <= 0 means 20MB.
func NewAvatarService(root string, maxBytes int64, userRepo repository.UserRepository) *AvatarService {
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	return &AvatarService{root: filepath.Clean(root), maxBytes: maxBytes, userRepo: userRepo}
}

// AvatarUploadInput is one multipart avatar upload.
type AvatarUploadInput struct {
	UserID      string
	Filename    string
	ContentType string
	Content     []byte
	Now         time.Time
}

// Upload validates the image and writes it as {userId}_{unixMillis}.{ext}.
// It returns the URL path the file is served from.
func (s *AvatarService) Upload(ctx context.Context, actor policy.Actor, in AvatarUploadInput) (string, error) {
	path, err := s.upload(ctx, actor, in)
	if err != nil {
		observability.AvatarUploads.WithLabelValues("rejected").Inc()
		return "", err
	}
	observability.AvatarUploads.WithLabelValues("stored").Inc()
	return path, nil
}

func (s *AvatarService) upload(ctx context.Context, actor policy.Actor, in AvatarUploadInput) (string, error) {
	if in.UserID == "" {
		in.UserID = actor.ID
	}
	if !policy.CanEditProfile(actor, in.UserID) {
		return "", models.NewForbiddenError("You can only upload your own avatar")
	}
	if filepath.Base(in.UserID) != in.UserID || strings.ContainsAny(in.UserID, `/\`) {
		return "", models.NewValidationError("Invalid user")
	}
	ok, err := s.userRepo.Exists(ctx, in.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", models.NewNotFoundError("User", in.UserID)
	}

	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return "", models.NewValidationError("Invalid image type")
	}
	_, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("Unsupported image format")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	name := fmt.Sprintf("%s_%d%s", in.UserID, now.UnixMilli(), formatExt(format))
	if err := writeBytesToFile(filepath.Join(s.root, name), in.Content); err != nil {
		return "", models.NewInternalError(err)
	}
	return "/api/files/" + name, nil
}

// ServedFile is a resolved file under the avatar root.
type ServedFile struct {
	Path        string
	ContentType string
}

// Resolve maps URL path segments to a file under the root. Paths that
// escape the root are Forbidden; missing files and directories are NotFound.
func (s *AvatarService) Resolve(segments ...string) (*ServedFile, error) {
	if len(segments) == 0 {
		return nil, models.NewNotFoundError("File", "")
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	full, err := filepath.Abs(filepath.Join(append([]string{root}, segments...)...))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, models.NewForbiddenError("Access denied")
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewNotFoundError("File", rel)
		}
		return nil, models.NewInternalError(err)
	}
	if info.IsDir() {
		return nil, models.NewNotFoundError("File", rel)
	}
	return &ServedFile{Path: full, ContentType: contentTypeFor(full)}, nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func formatExt(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return ".jpg"
	default:
		return "." + strings.ToLower(format)
	}
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
