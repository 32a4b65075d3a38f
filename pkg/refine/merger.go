package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/llm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/textnorm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// ErrMalformedMerge 分组服务的回复无法安全使用
var ErrMalformedMerge = errors.New("时长分组服务返回的结果不可用")

const mergePrompt = `你是一个专业的字幕分段助手。输入是一个 JSON 数组，每个元素是一条带时间戳的字幕：
{"start": 开始秒数, "end": 结束秒数, "content": 文本}，语言为 %s。
请合并相邻的字幕，使每条合并后字幕的时长（end - start）尽量在 %.1f 到 %.1f 秒之间：
1. 只合并相邻条目，保持原有顺序，不拆分、不改写、不遗漏任何文本；
2. 合并后的 start 取第一条的 start，end 取最后一条的 end，不要编造新的时间戳；
3. 只输出 JSON 数组，格式与输入相同，不要任何解释。`

// MergeOptions 时长分组参数
type MergeOptions struct {
	Language    string
	MinDuration float64
	MaxDuration float64
}

// Merger 按时长约束重新分组已对齐的句子
type Merger interface {
	Merge(ctx context.Context, segments []models.AlignedSegment, opts MergeOptions) ([]models.MergedSegment, error)
}

// LLMMerger 基于对话补全服务的时长分组
type LLMMerger struct {
	completer llm.Completer
	// SkipInBounds 所有段落时长都已在范围内时不调用服务，直接一一转换
	SkipInBounds bool
}

// NewMerger 创建时长分组器
func NewMerger(completer llm.Completer) *LLMMerger {
	return &LLMMerger{completer: completer, SkipInBounds: true}
}

type mergeItem struct {
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Content string   `json:"content"`
}

// Merge 把段落列表连同时长范围发送给分组服务并解析回复。
// 回复无法解析、为空或丢失正文时返回 ErrMalformedMerge。
func (m *LLMMerger) Merge(ctx context.Context, segments []models.AlignedSegment, opts MergeOptions) ([]models.MergedSegment, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	log := utils.WithFields(logrus.Fields{"stage": "merge", "segments": len(segments)})

	if m.SkipInBounds && withinBounds(segments, opts) {
		log.Debug("所有段落时长已在范围内，跳过分组服务")
		return toMerged(segments), nil
	}

	payload, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("序列化段落失败: %w", err)
	}

	prompt := fmt.Sprintf(mergePrompt, opts.Language, opts.MinDuration, opts.MaxDuration)
	reply, err := m.completer.Complete(ctx, prompt, string(payload))
	if err != nil {
		return nil, fmt.Errorf("时长分组服务调用失败: %w", err)
	}

	merged, err := parseMerged(reply)
	if err != nil {
		return nil, err
	}

	want := joinNormalized(segments, func(s models.AlignedSegment) string { return s.Content })
	got := joinNormalized(merged, func(s models.MergedSegment) string { return s.Content })
	// 只允许标点、空白和大小写不同
	if want != got {
		return nil, fmt.Errorf("%w: 分组后正文与原文不一致 (%d -> %d 字符)", ErrMalformedMerge, len([]rune(want)), len([]rune(got)))
	}

	log.Infof("分组完成: %d -> %d", len(segments), len(merged))
	return merged, nil
}

func withinBounds(segments []models.AlignedSegment, opts MergeOptions) bool {
	for _, s := range segments {
		d := s.End - s.Start
		if opts.MinDuration > 0 && d < opts.MinDuration {
			return false
		}
		if opts.MaxDuration > 0 && d > opts.MaxDuration {
			return false
		}
	}
	return true
}

func toMerged(segments []models.AlignedSegment) []models.MergedSegment {
	out := make([]models.MergedSegment, len(segments))
	for i, s := range segments {
		out[i] = models.MergedSegment{
			Start:    s.Start,
			End:      s.End,
			Duration: s.End - s.Start,
			Content:  s.Content,
		}
	}
	return out
}

// parseMerged 从回复中取出 JSON 数组并校验每一项
func parseMerged(reply string) ([]models.MergedSegment, error) {
	text := stripCodeFence(reply)
	first := strings.IndexByte(text, '[')
	last := strings.LastIndexByte(text, ']')
	if first < 0 || last < first {
		return nil, fmt.Errorf("%w: 回复中没有 JSON 数组", ErrMalformedMerge)
	}

	var items []mergeItem
	if err := json.Unmarshal([]byte(text[first:last+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMerge, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: 空数组", ErrMalformedMerge)
	}

	out := make([]models.MergedSegment, 0, len(items))
	for i, it := range items {
		if it.Start == nil || it.End == nil {
			return nil, fmt.Errorf("%w: 第 %d 项缺少时间戳", ErrMalformedMerge, i)
		}
		if strings.TrimSpace(it.Content) == "" {
			return nil, fmt.Errorf("%w: 第 %d 项没有文本", ErrMalformedMerge, i)
		}
		out = append(out, models.MergedSegment{
			Start:    *it.Start,
			End:      *it.End,
			Duration: *it.End - *it.Start,
			Content:  it.Content,
		})
	}
	return out, nil
}

func joinNormalized[T any](items []T, content func(T) string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(textnorm.Normalize(content(it)))
	}
	return b.String()
}
