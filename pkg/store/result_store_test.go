package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "talk.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("hello"), 0644))

	s := NewJSONStore(filepath.Join(dir, "out"))

	path, err := s.Path(audio, "en")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "talk_en_3610a686.json"), path)

	_, ok, err := s.Load(audio, "en")
	require.NoError(t, err)
	assert.False(t, ok)

	segs := []models.FinalSegment{{Start: 0, End: 10, Duration: 10, Speaker: "A", Content: "Hi."}}
	saved, err := s.Save(audio, "en", segs)
	require.NoError(t, err)
	assert.Equal(t, path, saved)

	got, ok, err := s.Load(audio, "en")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, segs, got)

	// 语言不同不命中
	_, ok, err = s.Load(audio, "zh")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONStoreKeyFollowsContent(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "talk.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("hello"), 0644))

	s := NewJSONStore(dir)
	first, err := s.Path(audio, "")
	require.NoError(t, err)
	assert.Contains(t, first, "_auto_")

	require.NoError(t, os.WriteFile(audio, []byte("hello, changed"), 0644))
	second, err := s.Path(audio, "")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestJSONStoreMissingAudio(t *testing.T) {
	s := NewJSONStore(t.TempDir())
	_, _, err := s.Load("/no/such/file.mp3", "en")
	assert.Error(t, err)
}
