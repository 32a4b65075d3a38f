package align

import "github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"

// DefaultMinDuration 修正后段落的最小时长（秒）
const DefaultMinDuration = 1.0

// EnforceMonotonic 单次前向遍历修正时间：开始时间不早于上一段结束时间，
// 修正后时长不为正的段落延长到 minDuration。返回新切片。
func EnforceMonotonic(segments []models.AlignedSegment, minDuration float64) []models.AlignedSegment {
	if minDuration <= 0 {
		minDuration = DefaultMinDuration
	}
	out := make([]models.AlignedSegment, len(segments))
	copy(out, segments)

	for i := range out {
		if i > 0 && out[i].Start < out[i-1].End {
			out[i].Start = out[i-1].End
		}
		if out[i].End <= out[i].Start {
			out[i].End = out[i].Start + minDuration
		}
	}
	return out
}
