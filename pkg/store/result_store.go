// Package store 持久化最终字幕结果，文件是否存在即为幂等缓存的依据。
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// ResultStore 按音频内容和语言存取最终段落
type ResultStore interface {
	// Load 读取已有结果，不存在时 ok 为 false
	Load(audioPath, language string) (segments []models.FinalSegment, ok bool, err error)
	// Save 保存结果并返回文件路径
	Save(audioPath, language string, segments []models.FinalSegment) (string, error)
}

// JSONStore 把结果保存为 <Dir>/<文件名>_<语言>_<crc32>.json
type JSONStore struct {
	Dir string

	mu     sync.Mutex
	hashes map[string]fileHash
}

// fileHash 记录文件大小和修改时间，未变化时复用校验和
type fileHash struct {
	size    int64
	modTime time.Time
	crc     string
}

// NewJSONStore 创建 JSON 文件存储
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{Dir: dir, hashes: make(map[string]fileHash)}
}

// Path 返回音频对应的结果文件路径
func (s *JSONStore) Path(audioPath, language string) (string, error) {
	crc, err := s.checksum(audioPath)
	if err != nil {
		return "", err
	}
	base := filepath.Base(audioPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if language == "" {
		language = "auto"
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s_%s.json", base, language, crc)), nil
}

// Load 实现 ResultStore
func (s *JSONStore) Load(audioPath, language string) ([]models.FinalSegment, bool, error) {
	path, err := s.Path(audioPath, language)
	if err != nil {
		return nil, false, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}

	var segments []models.FinalSegment
	if err := utils.LoadJSONFile(path, &segments); err != nil {
		return nil, false, fmt.Errorf("读取缓存结果失败: %w", err)
	}
	utils.Debug("命中缓存结果: %s", path)
	return segments, true, nil
}

// Save 实现 ResultStore
func (s *JSONStore) Save(audioPath, language string, segments []models.FinalSegment) (string, error) {
	path, err := s.Path(audioPath, language)
	if err != nil {
		return "", err
	}
	if segments == nil {
		segments = []models.FinalSegment{}
	}
	if err := utils.SaveJSONFile(path, segments); err != nil {
		return "", fmt.Errorf("保存结果失败: %w", err)
	}
	return path, nil
}

func (s *JSONStore) checksum(audioPath string) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("读取音频文件信息失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashes == nil {
		s.hashes = make(map[string]fileHash)
	}
	if h, ok := s.hashes[audioPath]; ok && h.size == info.Size() && h.modTime.Equal(info.ModTime()) {
		return h.crc, nil
	}

	crc, err := utils.FileCRC32(audioPath)
	if err != nil {
		return "", err
	}
	s.hashes[audioPath] = fileHash{size: info.Size(), modTime: info.ModTime(), crc: crc}
	return crc, nil
}
