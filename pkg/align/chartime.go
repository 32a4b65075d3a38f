// Package align 把改写后的整句重新定位到识别结果的字符时间轴上。
package align

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/textnorm"
)

// FixBoundaries 修正识别段落之间的空隙和重叠：每段的开始时间强制等于上一段的结束时间。
// 结束时间早于新开始时间的段落压缩为零长度。返回新切片，不修改输入。
func FixBoundaries(segments []models.RawSegment) []models.RawSegment {
	out := make([]models.RawSegment, len(segments))
	copy(out, segments)
	for i := 1; i < len(out); i++ {
		out[i].Start = out[i-1].End
		if out[i].End < out[i].Start {
			out[i].End = out[i].Start
		}
	}
	return out
}

// BuildTimeline 为每个保留字符分配时间戳，并拼接未去标点的原始文本。
// 段落时长在去掉标点和空白后的字符上均匀分配。
func BuildTimeline(segments []models.RawSegment) (models.Timeline, string) {
	var timeline models.Timeline
	var raw strings.Builder

	for _, seg := range segments {
		appendRaw(&raw, seg.Text)

		reduced := []rune(textnorm.StripPunctuation(seg.Text))
		if len(reduced) == 0 {
			continue
		}
		step := (seg.End - seg.Start) / float64(len(reduced))
		for j, r := range reduced {
			timeline.Points = append(timeline.Points, models.CharTimePoint{
				Char:      r,
				Timestamp: seg.Start + float64(j)*step,
			})
		}
	}

	if len(segments) > 0 {
		timeline.End = segments[len(segments)-1].End
	}
	return timeline, raw.String()
}

// appendRaw 追加段落原文；两边都是拉丁字母或数字时补一个空格，避免单词粘连
func appendRaw(b *strings.Builder, text string) {
	if b.Len() > 0 && text != "" {
		last, _ := utf8.DecodeLastRuneInString(b.String())
		first, _ := utf8.DecodeRuneInString(text)
		if isLatinWordRune(last) && isLatinWordRune(first) {
			b.WriteByte(' ')
		}
	}
	b.WriteString(text)
}

func isLatinWordRune(r rune) bool {
	return r < unicode.MaxLatin1 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
