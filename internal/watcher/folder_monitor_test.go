package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu         sync.Mutex
	processed  []string
	recognized map[string]bool
	err        error
	done       chan string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{recognized: map[string]bool{}, done: make(chan string, 8)}
}

func (p *fakeProcessor) ProcessFile(path string) error {
	p.mu.Lock()
	p.processed = append(p.processed, path)
	p.mu.Unlock()
	p.done <- path
	return p.err
}

func (p *fakeProcessor) IsRecognizedFile(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recognized[path]
}

func (p *fakeProcessor) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

func TestFileMovementHandler_OnFileDeleted(t *testing.T) {
	handler := NewFileMovementHandler(t.TempDir())
	handler.processedFiles["test_file.mp3"] = true

	handler.OnFileDeleted("test_file.mp3")
	assert.False(t, handler.processedFiles["test_file.mp3"])
}

func TestFileMovementHandler_MoveFile(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	handler := NewFileMovementHandler(targetDir)

	content := []byte("test content")
	src := filepath.Join(sourceDir, "test_file.mp3")
	require.NoError(t, os.WriteFile(src, content, 0644))

	moved, err := handler.moveFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(targetDir, "test_file.mp3"), moved)
	got, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.NoFileExists(t, src)

	// 重名文件追加时间戳
	require.NoError(t, os.WriteFile(src, content, 0644))
	second, err := handler.moveFile(src)
	require.NoError(t, err)
	assert.NotEqual(t, moved, second)
	assert.Contains(t, filepath.Base(second), "test_file_")

	files, err := os.ReadDir(targetDir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFileMovementHandler_MissingSource(t *testing.T) {
	handler := NewFileMovementHandler(t.TempDir())
	handler.OnFileCreated(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Empty(t, handler.processedFiles)
}

func TestFolderMonitor_TargetFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFolderMonitor(dir, MediaExtensions, nil, time.Millisecond)
	require.NoError(t, err)
	defer m.Stop()

	audio := filepath.Join(dir, "Talk.MP3")
	sidecar := filepath.Join(dir, "talk.asr.json")
	require.NoError(t, os.WriteFile(audio, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(sidecar, []byte("[]"), 0644))

	assert.True(t, m.isTargetFile(audio))
	assert.False(t, m.isTargetFile(sidecar))
	assert.False(t, m.isTargetFile(dir))
	assert.False(t, m.isTargetFile(filepath.Join(dir, "missing.wav")))
}

func TestProcessingHandler(t *testing.T) {
	p := newFakeProcessor()
	p.recognized["/media/old.mp3"] = true
	h := NewProcessingHandler(p, nil)

	h.OnFileCreated("/media/new.mp3")
	h.OnFileCreated("/media/new.mp3")
	h.OnFileCreated("/media/old.mp3")
	assert.Equal(t, []string{"/media/new.mp3"}, p.calls())

	// 覆盖写入后重新处理
	h.OnFileModified("/media/new.mp3")
	assert.Equal(t, []string{"/media/new.mp3", "/media/new.mp3"}, p.calls())

	h.OnFileDeleted("/media/new.mp3")
	h.OnFileCreated("/media/new.mp3")
	assert.Len(t, p.calls(), 3)
}

func TestProcessingHandler_FailureIsRetriedOnNextEvent(t *testing.T) {
	p := newFakeProcessor()
	p.err = assert.AnError
	h := NewProcessingHandler(p, nil)

	h.OnFileCreated("/media/a.wav")
	h.OnFileCreated("/media/a.wav")
	assert.Len(t, p.calls(), 2)
}

func TestMediaWatcher_ProcessesNewFiles(t *testing.T) {
	mediaDir := t.TempDir()
	inboxDir := t.TempDir()
	p := newFakeProcessor()

	w := NewMediaWatcher(mediaDir, inboxDir, p, nil)
	w.Debounce = 50 * time.Millisecond
	require.NoError(t, w.Start())
	defer w.Stop()

	// 收件文件夹中的文件先被搬到媒体文件夹，再被处理
	require.NoError(t, os.WriteFile(filepath.Join(inboxDir, "clip.wav"), []byte("audio"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "notes.txt"), []byte("text"), 0644))

	select {
	case path := <-p.done:
		assert.Equal(t, filepath.Join(mediaDir, "clip.wav"), path)
	case <-time.After(5 * time.Second):
		t.Fatal("等待文件处理超时")
	}
	assert.NoFileExists(t, filepath.Join(inboxDir, "clip.wav"))
}
