package export

import (
	"html"
	"io"
	"strings"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// FormatVTTTime 将秒数格式化为WebVTT时间格式 (HH:MM:SS.mmm)
func FormatVTTTime(seconds float64) string {
	return utils.FormatTimestamp(seconds, ".")
}

// WriteWebVTT 生成WebVTT内容，说话人用 <v> 标签标注
func WriteWebVTT(w io.Writer, segments []models.FinalSegment, opts Options) error {
	if err := writeLine(w, "WEBVTT\n"); err != nil {
		return err
	}
	for _, seg := range segments {
		text := html.EscapeString(strings.TrimSpace(seg.Content))
		if text == "" {
			continue
		}
		if err := writeLine(w, "\n%s --> %s\n", FormatVTTTime(seg.Start), FormatVTTTime(seg.End)); err != nil {
			return err
		}
		if seg.Speaker != "" && !opts.OmitSpeaker {
			text = "<v " + html.EscapeString(seg.Speaker) + ">" + text
		}
		if err := writeLine(w, "%s\n", text); err != nil {
			return err
		}
	}
	return nil
}
