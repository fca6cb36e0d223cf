package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxCardImageBytes = 10 * 1024 * 1024

// CardImageStorage provides helpers for storing card source images in
// MinIO/S3.
type CardImageStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewCardImageStorageFromEnv initialises CardImageStorage using MINIO_*
// environment variables. A nil storage with nil error means remote uploads
// are not configured and the feature is disabled.
func NewCardImageStorageFromEnv() (*CardImageStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &CardImageStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Upload stores the provided image bytes beneath the given path segments.
// The final object key will be cards/<segments...>/<uuid>.<ext>.
func (s *CardImageStorage) Upload(ctx context.Context, data []byte, pathSegments ...string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("card image storage not configured")
	}
	if len(data) == 0 {
		return "", errors.New("card image not provided")
	}
	if len(data) > maxCardImageBytes {
		return "", fmt.Errorf("card image size exceeds %d bytes", maxCardImageBytes)
	}

	contentType := http.DetectContentType(data)
	if !isAllowedImageContent(contentType) {
		return "", fmt.Errorf("unsupported card image content type %q", contentType)
	}

	objectPathSegments := []string{"cards"}
	for _, segment := range pathSegments {
		trimmed := strings.Trim(segment, "/")
		if trimmed != "" {
			objectPathSegments = append(objectPathSegments, trimmed)
		}
	}
	objectName := path.Join(objectPathSegments...)
	if objectName == "" {
		objectName = "cards"
	}
	objectName = path.Join(objectName, fmt.Sprintf("%s%s", uuid.NewString(), imageExtension(contentType)))

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(uploadCtx, s.bucket, objectName, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=604800",
	})
	if err != nil {
		return "", fmt.Errorf("upload card image: %w", err)
	}

	return s.buildPublicURL(objectName), nil
}

// Remove deletes the object pointed to by the provided URL/object path.
func (s *CardImageStorage) Remove(ctx context.Context, imageURL string) error {
	if s == nil || s.client == nil {
		return nil
	}
	objectName, ok := s.objectNameFromURL(imageURL)
	if !ok {
		return nil
	}

	removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.client.RemoveObject(removeCtx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// PresignedURL returns a temporary URL for accessing the provided image.
func (s *CardImageStorage) PresignedURL(ctx context.Context, raw string, expiry time.Duration) (string, error) {
	if s == nil || s.client == nil {
		return strings.TrimSpace(raw), nil
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	objectName, ok := s.objectNameFromURL(trimmed)
	if !ok {
		if !strings.Contains(trimmed, "://") {
			objectName = strings.TrimPrefix(trimmed, "/")
			objectName = strings.TrimPrefix(objectName, s.bucket+"/")
		}
	}
	if objectName == "" {
		return trimmed, nil
	}

	presignCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url, err := s.client.PresignedGetObject(presignCtx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}

	return url.String(), nil
}

func (s *CardImageStorage) buildPublicURL(objectName string) string {
	base := strings.TrimSuffix(s.publicURL, "/")
	object := strings.TrimPrefix(objectName, "/")
	return fmt.Sprintf("%s/%s/%s", base, s.bucket, object)
}

func (s *CardImageStorage) objectNameFromURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	base := strings.TrimSuffix(s.publicURL, "/")
	if base != "" && strings.HasPrefix(trimmed, base) {
		candidate := strings.TrimPrefix(trimmed, base)
		candidate = strings.TrimPrefix(candidate, "/")
		candidate = strings.TrimPrefix(candidate, s.bucket+"/")
		candidate = strings.TrimPrefix(candidate, "/")
		if candidate != "" {
			return candidate, true
		}
	}

	target, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err == nil && baseURL.Host != "" && baseURL.Host == target.Host {
		candidate := strings.TrimPrefix(target.Path, "/")
		candidate = strings.TrimPrefix(candidate, s.bucket+"/")
		candidate = strings.TrimPrefix(candidate, "/")
		if candidate != "" {
			return candidate, true
		}
	}

	if !strings.Contains(trimmed, "://") {
		candidate := strings.TrimPrefix(trimmed, "/")
		candidate = strings.TrimPrefix(candidate, s.bucket+"/")
		candidate = strings.TrimPrefix(candidate, "/")
		if candidate != "" {
			return candidate, true
		}
	}

	return "", false
}

func isAllowedImageContent(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/x-png":
		return true
	case "image/jpeg", "image/pjpeg":
		return true
	case "image/webp":
		return true
	case "image/gif":
		return true
	default:
		return false
	}
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
		return ".bin"
	}
}
