// Package asr 封装语音识别服务，把识别结果统一为有序的原始段落列表。
package asr

import (
	"context"
	"errors"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

// ErrNoSegments 识别服务没有返回任何段落
var ErrNoSegments = errors.New("识别结果为空")

// Engine 语音识别引擎。返回的段落按时间排序，覆盖整段音频。
// 同一个引擎实例不支持并发调用。
type Engine interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]models.RawSegment, error)
}

// SegmentIterator 有限、可重新开始的段落序列
type SegmentIterator interface {
	// Next 返回下一个段落，序列结束时 ok 为 false
	Next() (seg models.RawSegment, ok bool)
	// Reset 回到序列开头
	Reset()
}

// Collect 把迭代器完整展开为切片，供下游随机访问
func Collect(it SegmentIterator) []models.RawSegment {
	it.Reset()
	var out []models.RawSegment
	for {
		seg, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, seg)
	}
}

// SliceIterator 基于切片的 SegmentIterator
type SliceIterator struct {
	segments []models.RawSegment
	pos      int
}

// NewSliceIterator 创建切片迭代器
func NewSliceIterator(segments []models.RawSegment) *SliceIterator {
	return &SliceIterator{segments: segments}
}

// Next 实现 SegmentIterator
func (s *SliceIterator) Next() (models.RawSegment, bool) {
	if s.pos >= len(s.segments) {
		return models.RawSegment{}, false
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, true
}

// Reset 实现 SegmentIterator
func (s *SliceIterator) Reset() {
	s.pos = 0
}
