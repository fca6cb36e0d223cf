package drafts

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxImageBytes = 10 * 1024 * 1024

// imageStore keeps locally cached card source images in an app-private
// directory, one file per draft image, addressed by an opaque ref.
type imageStore struct {
	baseDir string
}

func newImageStoreFromEnv() (*imageStore, error) {
	dir := strings.TrimSpace(os.Getenv("DRAFTS_IMAGE_DIR"))
	if dir == "" {
		dir = "./data/draft-images"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("drafts: resolve image dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("drafts: ensure image dir: %w", err)
	}
	return &imageStore{baseDir: abs}, nil
}

func (s *imageStore) BaseDir() string {
	if s == nil {
		return ""
	}
	return s.baseDir
}

// Save writes the image bytes for the given draft id and returns the ref the
// record should carry. The ref embeds a fresh uuid so replacing an image
// never reuses a filename.
func (s *imageStore) Save(draftID string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("drafts: image store not configured")
	}
	if len(data) == 0 {
		return "", errors.New("drafts: image data not provided")
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("drafts: image size exceeds %d bytes", maxImageBytes)
	}

	contentType := http.DetectContentType(data)
	ext := imageExtension(contentType)
	if ext == "" {
		return "", fmt.Errorf("drafts: unsupported image content type %q", contentType)
	}

	ref := fmt.Sprintf("%s-%s%s", strings.TrimSpace(draftID), uuid.NewString(), ext)
	target, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("drafts: write image %s: %w", ref, err)
	}
	return ref, nil
}

// Load returns the bytes for a previously saved ref.
func (s *imageStore) Load(ref string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("drafts: image store not configured")
	}
	target, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("drafts: read image %s: %w", ref, err)
	}
	return data, nil
}

// Remove deletes the file behind the ref. Missing files and empty refs are
// benign no-ops.
func (s *imageStore) Remove(ref string) error {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil
	}
	target, err := s.resolve(trimmed)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("drafts: remove image %s: %w", trimmed, err)
	}
	return nil
}

func (s *imageStore) resolve(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" || trimmed != filepath.Base(trimmed) {
		return "", fmt.Errorf("drafts: invalid image ref %q", ref)
	}
	target := filepath.Join(s.baseDir, trimmed)
	if !strings.HasPrefix(target, s.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("drafts: invalid image ref %q", ref)
	}
	return target, nil
}

func imageExtension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/x-png":
		return ".png"
	case "image/jpeg", "image/pjpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
