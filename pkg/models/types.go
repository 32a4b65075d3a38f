package models

// RawSegment 语音识别输出的原始段落
type RawSegment struct {
	Start float64 `json:"start"` // 开始时间（秒）
	End   float64 `json:"end"`   // 结束时间（秒）
	Text  string  `json:"text"`  // 识别文本
}

// CharTimePoint 单个字符及其估算时间戳
type CharTimePoint struct {
	Char      rune
	Timestamp float64
}

// Timeline 覆盖整段音频的字符时间轴
type Timeline struct {
	Points []CharTimePoint
	// End 最后一个原始段落的结束时间，越界读取时间戳时以此为准
	End float64
}

// Len 返回时间轴上的字符数
func (t Timeline) Len() int {
	return len(t.Points)
}

// TimestampAt 读取第i个字符的时间戳，越界时返回时间轴终点
func (t Timeline) TimestampAt(i int) float64 {
	if i < 0 {
		i = 0
	}
	if i >= len(t.Points) {
		return t.End
	}
	return t.Points[i].Timestamp
}

// AlignedSegment 附带时间信息的整句
type AlignedSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Content string  `json:"content"`
}

// MergedSegment 按时长约束重新分组后的段落
type MergedSegment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Content  string  `json:"content"`
}

// DiarizationTurn 说话人分离结果中的一段发言
type DiarizationTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// FinalSegment 最终持久化的字幕单元
type FinalSegment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Speaker  string  `json:"speaker"`
	Content  string  `json:"content"`
}
