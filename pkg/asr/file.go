package asr

import (
	"context"
	"fmt"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// SidecarSuffix 预先识别结果文件的后缀，与音频文件同目录
const SidecarSuffix = ".asr.json"

// FileEngine 从音频旁的 JSON 文件读取已有识别结果，
// 文件内容为 [{"start":0,"end":1.5,"text":"..."}] 形式的数组
type FileEngine struct {
	Suffix string
}

// NewFileEngine 创建读取 <音频路径>.asr.json 的引擎
func NewFileEngine() *FileEngine {
	return &FileEngine{Suffix: SidecarSuffix}
}

// SidecarPath 返回音频对应的识别结果文件路径
func (f *FileEngine) SidecarPath(audioPath string) string {
	suffix := f.Suffix
	if suffix == "" {
		suffix = SidecarSuffix
	}
	return audioPath + suffix
}

// Transcribe 实现 Engine
func (f *FileEngine) Transcribe(ctx context.Context, audioPath, language string) ([]models.RawSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := f.SidecarPath(audioPath)
	var segments []models.RawSegment
	if err := utils.LoadJSONFile(path, &segments); err != nil {
		return nil, fmt.Errorf("读取识别结果文件失败: %w", err)
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	utils.Debug("从 %s 读取 %d 个识别段落", path, len(segments))
	return Collect(NewSliceIterator(segments)), nil
}
