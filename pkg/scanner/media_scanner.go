// Package scanner 列出媒体文件夹中待对齐的音视频文件。
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// 默认识别的扩展名
var (
	AudioExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".aac"}
	VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".flv", ".wmv"}
)

// MediaFile 表示一个媒体文件
type MediaFile struct {
	Path      string    // 文件路径
	Name      string    // 文件名
	Ext       string    // 文件扩展名（小写）
	Size      int64     // 文件大小（字节）
	ModTime   time.Time // 修改时间
	IsVideo   bool      // 是否为视频文件
	IsAudio   bool      // 是否为音频文件
	Processed bool      // 是否已有对齐结果
}

// MediaScanner 用于扫描媒体文件
type MediaScanner struct {
	AudioExtensions []string
	VideoExtensions []string
}

// NewMediaScanner 创建新的媒体扫描器
func NewMediaScanner() *MediaScanner {
	return &MediaScanner{
		AudioExtensions: AudioExtensions,
		VideoExtensions: VideoExtensions,
	}
}

// Extensions 返回所有识别的扩展名
func (s *MediaScanner) Extensions() []string {
	exts := make([]string, 0, len(s.AudioExtensions)+len(s.VideoExtensions))
	exts = append(exts, s.AudioExtensions...)
	return append(exts, s.VideoExtensions...)
}

// Classify 按扩展名判断文件类型
func (s *MediaScanner) Classify(path string) (isAudio, isVideo bool) {
	ext := strings.ToLower(filepath.Ext(path))
	return contains(s.AudioExtensions, ext), contains(s.VideoExtensions, ext)
}

// ScanDirectory 扫描指定目录中的媒体文件（非递归，跳过隐藏文件），按文件名排序。
// isProcessed 不为空时用于标记已有结果的文件。
func (s *MediaScanner) ScanDirectory(dir string, isProcessed func(path string) bool) ([]MediaFile, error) {
	utils.Info("开始扫描目录: %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var mediaFiles []MediaFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		isAudio, isVideo := s.Classify(path)
		if !isAudio && !isVideo {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			utils.Warn("获取文件信息失败: %v", err)
			continue
		}

		mediaFiles = append(mediaFiles, MediaFile{
			Path:      path,
			Name:      entry.Name(),
			Ext:       strings.ToLower(filepath.Ext(path)),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			IsVideo:   isVideo,
			IsAudio:   isAudio,
			Processed: isProcessed != nil && isProcessed(path),
		})
	}

	sort.Slice(mediaFiles, func(i, j int) bool { return mediaFiles[i].Name < mediaFiles[j].Name })
	utils.Info("扫描完成，共找到 %d 个媒体文件", len(mediaFiles))
	return mediaFiles, nil
}

// FilterNewFiles 过滤出还没有对齐结果的文件
func FilterNewFiles(files []MediaFile) []MediaFile {
	var newFiles []MediaFile
	for _, file := range files {
		if !file.Processed {
			newFiles = append(newFiles, file)
		}
	}

	utils.Info("过滤后剩余 %d 个新文件需要处理", len(newFiles))
	return newFiles
}

func contains(list []string, ext string) bool {
	for _, item := range list {
		if item == ext {
			return true
		}
	}
	return false
}
