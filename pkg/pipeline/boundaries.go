package pipeline

import (
	"unicode/utf8"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/align"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

// FixBoundaries 重建分组后的全局时间约束：第一段从 0 开始，最后一段在 audioDuration 结束，
// 每段开始时间等于上一段结束时间，并重新计算时长。
// 重新衔接后时长不为正的段落并入相邻段落，保证每段 End > Start。不修改输入。
func FixBoundaries(merged []models.MergedSegment, audioDuration float64) []models.MergedSegment {
	if len(merged) == 0 {
		return nil
	}

	out := make([]models.MergedSegment, 0, len(merged))
	carry := ""
	for _, s := range merged {
		if carry != "" {
			s.Content = joinContent(carry, s.Content)
			carry = ""
		}
		if len(out) > 0 {
			s.Start = out[len(out)-1].End
		} else {
			s.Start = 0
		}
		if s.End <= s.Start {
			if len(out) > 0 {
				out[len(out)-1].Content = joinContent(out[len(out)-1].Content, s.Content)
			} else {
				carry = s.Content
			}
			continue
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		end := audioDuration
		if end <= 0 {
			end = align.DefaultMinDuration
		}
		out = append(out, models.MergedSegment{Start: 0, End: end, Content: carry})
	}

	if audioDuration > 0 {
		// 开始时间已经落在音频结尾之后的段落并入前一段
		for len(out) > 1 && out[len(out)-1].Start >= audioDuration {
			last := out[len(out)-1]
			out = out[:len(out)-1]
			out[len(out)-1].Content = joinContent(out[len(out)-1].Content, last.Content)
		}
		out[len(out)-1].End = audioDuration
	}

	for i := range out {
		out[i].Duration = out[i].End - out[i].Start
	}
	return out
}

// joinContent 拼接两段文本，两侧都不是 ASCII 字符（如中文）时不加空格
func joinContent(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	last, _ := utf8.DecodeLastRuneInString(a)
	first, _ := utf8.DecodeRuneInString(b)
	if last >= utf8.RuneSelf && first >= utf8.RuneSelf {
		return a + b
	}
	return a + " " + b
}
