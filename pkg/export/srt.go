package export

import (
	"io"
	"strings"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// FormatSRTTime 将秒数格式化为SRT时间格式 (HH:MM:SS,mmm)
func FormatSRTTime(seconds float64) string {
	return utils.FormatTimestamp(seconds, ",")
}

// WriteSRT 生成SRT格式内容，空文本段落跳过，序号保持连续
func WriteSRT(w io.Writer, segments []models.FinalSegment, opts Options) error {
	index := 0
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Content)
		if text == "" {
			continue
		}
		if seg.Speaker != "" && !opts.OmitSpeaker {
			text = "[" + seg.Speaker + "] " + text
		}

		index++
		if err := writeLine(w, "%d\n%s --> %s\n%s\n\n", index, FormatSRTTime(seg.Start), FormatSRTTime(seg.End), text); err != nil {
			return err
		}
	}
	return nil
}
