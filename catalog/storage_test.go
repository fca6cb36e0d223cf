package catalog

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePackEntry(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "texture.png", "texture.png", false},
		{"nested", "masks/holo.png", "masks/holo.png", false},
		{"backslashes", `masks\holo.png`, "masks/holo.png", false},
		{"dot prefix", "./texture.png", "texture.png", false},
		{"empty", "   ", "", false},
		{"macos junk", "__MACOSX/._texture.png", "", false},
		{"traversal", "../../etc/passwd", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sanitizePackEntry(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectPackFormatByMagicBytes(t *testing.T) {
	dir := t.TempDir()

	zipFile := filepath.Join(dir, "pack.bin")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("texture.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(zipFile, buf.Bytes(), 0o644))

	f, err := os.Open(zipFile)
	require.NoError(t, err)
	defer f.Close()

	format, err := detectPackFormat(f, "no-extension")
	require.NoError(t, err)
	assert.Equal(t, packFormatZip, format)
}

func TestDetectPackFormatByExtension(t *testing.T) {
	format, err := detectPackFormat(nil, "pack.zip")
	require.NoError(t, err)
	assert.Equal(t, packFormatZip, format)

	format, err = detectPackFormat(nil, "pack.rar")
	require.NoError(t, err)
	assert.Equal(t, packFormatRar, format)
}

func TestExtractZipPack(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"frame.json", "textures/base.png"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	tmp := filepath.Join(t.TempDir(), "pack.zip")
	require.NoError(t, os.WriteFile(tmp, buf.Bytes(), 0o644))
	f, err := os.Open(tmp)
	require.NoError(t, err)
	defer f.Close()
	stat, err := f.Stat()
	require.NoError(t, err)

	dest := t.TempDir()
	files, err := extractZipPack(f, stat.Size(), dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"frame.json", "textures/base.png"}, files)

	data, err := os.ReadFile(filepath.Join(dest, "textures", "base.png"))
	require.NoError(t, err)
	assert.Equal(t, "content of textures/base.png", string(data))
}

func TestExtractZipPackRejectsEmptyArchive(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())

	tmp := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, os.WriteFile(tmp, buf.Bytes(), 0o644))
	f, err := os.Open(tmp)
	require.NoError(t, err)
	defer f.Close()
	stat, err := f.Stat()
	require.NoError(t, err)

	_, err = extractZipPack(f, stat.Size(), t.TempDir())
	assert.Error(t, err)
}

func TestAssetStorageRemove(t *testing.T) {
	storage := &assetStorage{baseDir: t.TempDir()}

	dir := filepath.Join(storage.baseDir, "classic-gold")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, storage.Remove("classic-gold"))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Missing packs and blank names are no-ops.
	assert.NoError(t, storage.Remove("classic-gold"))
	assert.NoError(t, storage.Remove("  "))
}
