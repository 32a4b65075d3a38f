package models

// Result 单个音频文件的处理统计信息
type Result struct {
	RunID         string            `json:"run_id"`          // 本次运行ID
	FilePath      string            `json:"file_path"`       // 处理的文件路径
	Language      string            `json:"language"`        // 识别语言
	FromCache     bool              `json:"from_cache"`      // 是否直接命中持久化结果
	OutputFiles   map[string]string `json:"output_files"`    // 输出文件路径
	SegmentCount  int               `json:"segment_count"`   // 最终字幕段数
	DurationMs    int64             `json:"duration_ms"`     // 音频时长（毫秒）
	ProcessTimeMs int64             `json:"process_time_ms"` // 处理时间（毫秒）
}
