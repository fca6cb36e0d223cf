package catalog

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	rardecode "github.com/nwaples/rardecode/v2"
)

const (
	maxPackBytes  int64 = 50 * 1024 * 1024
	packFormatZip       = "zip"
	packFormatRar       = "rar"
)

// assetStorage keeps frame texture packs on local disk, one folder per frame
// name. A pack is a zip or rar archive of presentation files (textures,
// masks) the client composites with; the catalog entries themselves stay
// static.
type assetStorage struct {
	baseDir string
}

func newAssetStorageFromEnv() (*assetStorage, error) {
	dir := strings.TrimSpace(os.Getenv("CATALOG_ASSET_DIR"))
	if dir == "" {
		dir = "./data/frame-assets"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve asset dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: ensure asset dir: %w", err)
	}
	return &assetStorage{baseDir: abs}, nil
}

func (s *assetStorage) BaseDir() string {
	if s == nil {
		return ""
	}
	return s.baseDir
}

// SavePack replaces the texture pack for the given frame with the contents
// of the uploaded archive and returns the extracted file list.
func (s *assetStorage) SavePack(frameName string, fileHeader *multipart.FileHeader) ([]string, error) {
	if s == nil {
		return nil, errors.New("catalog: asset storage not configured")
	}
	if fileHeader == nil {
		return nil, errors.New("catalog: pack archive not provided")
	}
	if fileHeader.Size > 0 && fileHeader.Size > maxPackBytes {
		return nil, fmt.Errorf("catalog: pack size exceeds %d bytes", maxPackBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("catalog: open pack: %w", err)
	}
	defer src.Close()

	tmpFile, err := os.CreateTemp("", "frame-pack-*")
	if err != nil {
		return nil, fmt.Errorf("catalog: create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	written, err := io.Copy(tmpFile, io.LimitReader(src, maxPackBytes+1))
	if err != nil {
		return nil, fmt.Errorf("catalog: copy pack: %w", err)
	}
	if written > maxPackBytes {
		return nil, fmt.Errorf("catalog: pack size exceeds %d bytes", maxPackBytes)
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("catalog: rewind temp file: %w", err)
	}
	format, err := detectPackFormat(tmpFile, fileHeader.Filename)
	if err != nil {
		return nil, err
	}

	destDir := filepath.Join(s.baseDir, frameName)
	staging := destDir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("catalog: clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create staging dir: %w", err)
	}

	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(staging)
		}
	}()

	var files []string
	switch format {
	case packFormatZip:
		if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("catalog: rewind temp file: %w", err)
		}
		stat, err := tmpFile.Stat()
		if err != nil {
			return nil, fmt.Errorf("catalog: stat temp file: %w", err)
		}
		files, err = extractZipPack(tmpFile, stat.Size(), staging)
		if err != nil {
			return nil, err
		}
	case packFormatRar:
		files, err = extractRarPack(tmpFile.Name(), staging)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("catalog: unsupported pack format")
	}

	if err := os.RemoveAll(destDir); err != nil {
		return nil, fmt.Errorf("catalog: replace old pack: %w", err)
	}
	if err := os.Rename(staging, destDir); err != nil {
		return nil, fmt.Errorf("catalog: install pack: %w", err)
	}

	cleanup = false
	return files, nil
}

// Remove deletes the frame's texture pack folder, if present.
func (s *assetStorage) Remove(frameName string) error {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(frameName)
	if trimmed == "" {
		return nil
	}
	target := filepath.Join(s.baseDir, trimmed)
	if !strings.HasPrefix(target, s.baseDir) {
		return fmt.Errorf("catalog: invalid frame name %q", frameName)
	}
	return os.RemoveAll(target)
}

func extractZipPack(tmpFile *os.File, size int64, destDir string) ([]string, error) {
	reader, err := zip.NewReader(tmpFile, size)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse pack archive: %w", err)
	}

	var files []string
	for _, file := range reader.File {
		relPath, err := sanitizePackEntry(file.Name)
		if err != nil {
			return nil, err
		}
		if relPath == "" {
			continue
		}

		if file.FileInfo().IsDir() {
			if err := ensurePackDir(destDir, relPath); err != nil {
				return nil, err
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("catalog: open entry %s: %w", relPath, err)
		}
		err = writePackFile(destDir, relPath, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, relPath)
	}

	if len(files) == 0 {
		return nil, errors.New("catalog: pack archive is empty")
	}
	return files, nil
}

func extractRarPack(tmpPath, destDir string) ([]string, error) {
	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: reopen temp archive: %w", err)
	}
	defer f.Close()

	rr, err := rardecode.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse rar archive: %w", err)
	}

	var files []string
	for {
		header, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read rar entry: %w", err)
		}

		relPath, err := sanitizePackEntry(header.Name)
		if err != nil {
			return nil, err
		}
		if relPath == "" {
			if !header.IsDir {
				if _, err := io.Copy(io.Discard, rr); err != nil {
					return nil, fmt.Errorf("catalog: discard rar entry: %w", err)
				}
			}
			continue
		}

		if header.IsDir {
			if err := ensurePackDir(destDir, relPath); err != nil {
				return nil, err
			}
			continue
		}

		if err := writePackFile(destDir, relPath, rr); err != nil {
			return nil, err
		}
		files = append(files, relPath)
	}

	if len(files) == 0 {
		return nil, errors.New("catalog: pack archive is empty")
	}
	return files, nil
}

func ensurePackDir(destDir, relPath string) error {
	target, err := packTarget(destDir, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("catalog: create dir %s: %w", relPath, err)
	}
	return nil
}

func writePackFile(destDir, relPath string, src io.Reader) error {
	target, err := packTarget(destDir, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("catalog: prepare dir %s: %w", relPath, err)
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("catalog: create file %s: %w", relPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("catalog: write file %s: %w", relPath, err)
	}
	return nil
}

func packTarget(destDir, relPath string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(relPath))
	if !strings.HasPrefix(target, destDir+string(os.PathSeparator)) && target != destDir {
		return "", fmt.Errorf("catalog: pack entry escapes target dir: %s", relPath)
	}
	return target, nil
}

func detectPackFormat(file *os.File, originalName string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(originalName)))
	switch ext {
	case ".zip":
		return packFormatZip, nil
	case ".rar":
		return packFormatRar, nil
	}

	var header [8]byte
	n, err := file.ReadAt(header[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("catalog: read pack header: %w", err)
	}
	headerSlice := header[:n]

	if len(headerSlice) >= 2 && bytes.Equal(headerSlice[:2], []byte{0x50, 0x4b}) {
		return packFormatZip, nil
	}
	if len(headerSlice) >= 6 && bytes.Equal(headerSlice[:6], []byte{0x52, 0x61, 0x72, 0x21, 0x1a, 0x07}) {
		return packFormatRar, nil
	}

	return "", errors.New("catalog: unsupported pack format, only .zip and .rar are accepted")
}

func sanitizePackEntry(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", nil
	}

	normalized := strings.ReplaceAll(trimmed, "\\", "/")
	normalized = path.Clean(normalized)
	normalized = strings.TrimPrefix(normalized, "./")
	if normalized == "." || normalized == "" {
		return "", nil
	}
	if strings.HasPrefix(normalized, "../") {
		return "", fmt.Errorf("catalog: pack entry %q uses parent traversal", name)
	}
	if strings.HasPrefix(strings.ToLower(normalized), "__macosx/") {
		return "", nil
	}
	return normalized, nil
}
