package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 创建测试目录和测试文件
func setupTestDirectory(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subfolder"), 0755))

	for _, name := range []string{
		"audio2.wav",
		"audio1.MP3",
		"video1.mp4",
		"document.pdf",
		"audio1.asr.json",
		".hidden.mp3",
		"subfolder/a.mp3",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("test content"), 0644))
	}
	return dir
}

func TestScanDirectory(t *testing.T) {
	dir := setupTestDirectory(t)

	files, err := NewMediaScanner().ScanDirectory(dir, func(path string) bool {
		return strings.HasSuffix(path, "audio2.wav")
	})
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		assert.NotZero(t, f.Size)
		assert.NotEmpty(t, f.Ext)
	}
	assert.Equal(t, []string{"audio1.MP3", "audio2.wav", "video1.mp4"}, names)

	assert.True(t, files[0].IsAudio)
	assert.Equal(t, ".mp3", files[0].Ext)
	assert.True(t, files[2].IsVideo)
	assert.False(t, files[0].Processed)
	assert.True(t, files[1].Processed)
}

func TestScanDirectory_Missing(t *testing.T) {
	_, err := NewMediaScanner().ScanDirectory(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestFilterNewFiles(t *testing.T) {
	files := []MediaFile{
		{Path: "/path/to/file1.mp3", Processed: true},
		{Path: "/path/to/file2.mp4"},
		{Path: "/path/to/file3.wav"},
	}

	newFiles := FilterNewFiles(files)
	require.Len(t, newFiles, 2)
	assert.Equal(t, "/path/to/file2.mp4", newFiles[0].Path)
	assert.Equal(t, "/path/to/file3.wav", newFiles[1].Path)
}

func TestExtensions(t *testing.T) {
	s := NewMediaScanner()
	assert.Contains(t, s.Extensions(), ".flac")
	assert.Contains(t, s.Extensions(), ".mkv")

	isAudio, isVideo := s.Classify("clip.MOV")
	assert.False(t, isAudio)
	assert.True(t, isVideo)
}
