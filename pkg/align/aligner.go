package align

import (
	"github.com/sirupsen/logrus"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/textnorm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// Options 模糊对齐参数
type Options struct {
	BackSlack      int     // 游标向后回退的字符数
	SearchMargin   int     // 在目标长度之外向前多看的字符数
	BoundaryWindow int     // 首尾相似度比较的字符数 k
	Threshold      float64 // 低于该分数记录低置信度警告
}

// DefaultOptions 返回默认对齐参数
func DefaultOptions() Options {
	return Options{
		BackSlack:      10,
		SearchMargin:   20,
		BoundaryWindow: 5,
		Threshold:      0.6,
	}
}

// Aligner 在字符时间轴上按顺序定位句子。游标只向前移动，每次只搜索游标附近的窗口。
// 非并发安全，每次流水线运行创建一个。
type Aligner struct {
	timeline models.Timeline
	opts     Options

	norm   []string // 归一化后的时间轴文本，每个元素一个字符
	posMap []int    // norm 下标 -> timeline.Points 下标
	cursor int      // norm 中的游标

	lowConfidence int
}

// NewAligner 基于时间轴创建对齐器
func NewAligner(timeline models.Timeline, opts Options) *Aligner {
	def := DefaultOptions()
	if opts.BackSlack < 0 {
		opts.BackSlack = def.BackSlack
	}
	if opts.SearchMargin < 0 {
		opts.SearchMargin = def.SearchMargin
	}
	if opts.BoundaryWindow <= 0 {
		opts.BoundaryWindow = def.BoundaryWindow
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}

	a := &Aligner{timeline: timeline, opts: opts}

	folder := textnorm.NewFolder()
	for i, p := range timeline.Points {
		for _, r := range folder.Rune(p.Char) {
			a.norm = append(a.norm, string(r))
			a.posMap = append(a.posMap, i)
		}
	}
	return a
}

// Cursor 返回当前游标位置（归一化文本中的偏移）
func (a *Aligner) Cursor() int {
	return a.cursor
}

// LowConfidenceCount 返回低于阈值或越界估算的匹配次数
func (a *Aligner) LowConfidenceCount() int {
	return a.lowConfidence
}

// AlignAll 按顺序对齐所有句子，每句输出一个段落
func (a *Aligner) AlignAll(sentences []string) []models.AlignedSegment {
	out := make([]models.AlignedSegment, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, a.Align(s))
	}
	return out
}

// Align 对齐一个句子并推进游标。匹配质量差时只记录警告，不会失败。
func (a *Aligner) Align(sentence string) models.AlignedSegment {
	target := runeStrings(textnorm.Normalize(sentence))
	if len(target) == 0 {
		// 没有可对齐的字符，落在游标处，由单调修正补足时长
		ts := a.timeline.TimestampAt(a.mapPos(a.cursor))
		return models.AlignedSegment{Start: ts, End: ts, Content: sentence}
	}

	bestStart, bestEnd, bestScore := a.search(target)

	switch {
	case bestScore < 0:
		bestStart = a.cursor
		bestEnd = a.cursor + len(target)
		a.lowConfidence++
		utils.WithFields(logrus.Fields{
			"stage":    "align",
			"cursor":   a.cursor,
			"sentence": sentence,
		}).Warn("时间轴已耗尽，按句长估算结束位置")
	case bestScore < a.opts.Threshold:
		a.lowConfidence++
		utils.WithFields(logrus.Fields{
			"stage":    "align",
			"score":    bestScore,
			"sentence": sentence,
		}).Warn("匹配置信度低，使用最佳候选")
	default:
		utils.WithFields(logrus.Fields{
			"stage": "align",
			"score": bestScore,
			"start": bestStart,
			"end":   bestEnd,
		}).Debug("句子对齐完成")
	}

	start := a.timeline.TimestampAt(a.mapPos(bestStart))
	end := a.timeline.TimestampAt(a.mapPos(bestEnd))

	// 游标只前进，回退余量只用于寻找起点
	if bestEnd > a.cursor {
		a.cursor = bestEnd
	}
	if a.cursor > len(a.norm) {
		a.cursor = len(a.norm)
	}

	return models.AlignedSegment{Start: start, End: end, Content: sentence}
}

// search 在游标附近的窗口内枚举起点和长度，返回得分最高的 [start, end)。
// 窗口为空时 score 为 -1。同分时结束位置不早于游标的候选优先，其次保留更早、更短的候选。
func (a *Aligner) search(target []string) (int, int, float64) {
	n := len(a.norm)
	tl := len(target)

	winStart := a.cursor - a.opts.BackSlack
	if winStart < 0 {
		winStart = 0
	}
	winEnd := a.cursor + tl + a.opts.SearchMargin
	if winEnd > n {
		winEnd = n
	}

	delta := tl / 5
	if delta < 3 {
		delta = 3
	}
	minLen := tl - delta
	if minLen < 1 {
		minLen = 1
	}
	maxLen := tl + delta

	sc := newScorer(target, a.opts.BoundaryWindow)
	bestScore := -1.0
	bestStart, bestEnd := a.cursor, a.cursor+tl

	for s := winStart; s < winEnd; s++ {
		for l := minLen; l <= maxLen; l++ {
			e := s + l
			if e > winEnd {
				break
			}
			score := sc.score(a.norm[s:e])
			if score > bestScore || (score == bestScore && bestEnd < a.cursor && e >= a.cursor) {
				bestScore, bestStart, bestEnd = score, s, e
			}
		}
	}
	return bestStart, bestEnd, bestScore
}

// mapPos 把归一化文本偏移映射回时间轴下标；偏移越界时返回时间轴长度，读取时落到终点
func (a *Aligner) mapPos(off int) int {
	if off < 0 {
		return 0
	}
	if off >= len(a.posMap) {
		return a.timeline.Len()
	}
	return a.posMap[off]
}
