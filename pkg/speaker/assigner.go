// Package speaker 把说话人分离结果映射到字幕段落上。
package speaker

import "github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"

// Tolerance 段落两端向内收缩的容差（秒），段落只需大致落在发言区间内
const Tolerance = 0.5

// Assign 为每个段落分配说话人。
// 第一段发言的开始时间钳到 0，最后一段发言的结束时间钳到最后一个段落的结束时间；
// 找不到包含该段落的发言时使用第一段发言的说话人。没有发言数据时原样输出，说话人为空。
func Assign(segments []models.MergedSegment, turns []models.DiarizationTurn) []models.FinalSegment {
	out := make([]models.FinalSegment, len(segments))
	for i, s := range segments {
		out[i] = models.FinalSegment{
			Start:    s.Start,
			End:      s.End,
			Duration: s.Duration,
			Content:  s.Content,
		}
	}
	if len(turns) == 0 || len(segments) == 0 {
		return out
	}

	clamped := make([]models.DiarizationTurn, len(turns))
	copy(clamped, turns)
	clamped[0].Start = 0
	clamped[len(clamped)-1].End = segments[len(segments)-1].End
	fallback := clamped[0].Speaker

	for i := range out {
		out[i].Speaker = fallback
		for _, turn := range clamped {
			if out[i].Start+Tolerance >= turn.Start && out[i].End-Tolerance <= turn.End {
				out[i].Speaker = turn.Speaker
				break
			}
		}
	}
	return out
}
