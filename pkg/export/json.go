package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

// TranscriptResult 表示整个转录结果
type TranscriptResult struct {
	Language string                `json:"language,omitempty"` // 识别语言（如 "zh"、"en"）
	FullText string                `json:"full_text"`          // 完整合并后的文本（用于摘要）
	Speakers []string              `json:"speakers,omitempty"` // 按首次出现顺序的说话人
	Segments []models.FinalSegment `json:"segments"`           // 分段结构，适合前端显示时间轴字幕等
}

// NewTranscriptResult 根据段落生成转录结果
func NewTranscriptResult(segments []models.FinalSegment, language string) TranscriptResult {
	result := TranscriptResult{
		Language: language,
		Segments: make([]models.FinalSegment, 0, len(segments)),
	}

	var full strings.Builder
	seen := make(map[string]bool)
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Content)
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)

		if seg.Speaker != "" && !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			result.Speakers = append(result.Speakers, seg.Speaker)
		}
		result.Segments = append(result.Segments, seg)
	}
	result.FullText = full.String()
	return result
}

// WriteJSON 以缩进格式写出转录结果
func WriteJSON(w io.Writer, segments []models.FinalSegment, language string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewTranscriptResult(segments, language)); err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	return nil
}
