package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config 表示应用程序的配置
type Config struct {
	MediaFolder  string `json:"media_folder"`  // 待处理音频所在文件夹
	OutputFolder string `json:"output_folder"` // 输出结果文件夹（持久化结果也写在这里）
	InboxFolder  string `json:"inbox_folder"`  // 监听模式下的收件文件夹，写入完成的媒体会移动到 MediaFolder
	Language     string `json:"language"`      // 识别语言，如 zh、en、zh-tw

	MinDuration        float64 `json:"min_duration"`         // 合并后字幕最短时长（秒）
	MaxDuration        float64 `json:"max_duration"`         // 合并后字幕最长时长（秒）
	MinSegmentDuration float64 `json:"min_segment_duration"` // 时间修正时的最小段落时长（秒）
	SearchMargin       int     `json:"search_margin"`        // 模糊对齐的向前搜索余量（字符数）
	MatchThreshold     float64 `json:"match_threshold"`      // 低于该分数的匹配会记录警告
	SkipMergeInBounds  bool    `json:"skip_merge_in_bounds"` // 所有段落已满足时长约束时跳过合并服务

	ASRService     string `json:"asr_service"`     // ASR服务 (kuaishou, bcut, file, auto)
	DiarizationURL string `json:"diarization_url"` // 说话人分离服务地址，为空表示不做分离
	LLMBaseURL     string `json:"llm_base_url"`    // 文本服务地址（OpenAI兼容接口）
	LLMModel       string `json:"llm_model"`       // 文本服务模型
	LLMAPIKey      string `json:"llm_api_key,omitempty"`

	MaxRetries   int     `json:"max_retries"`   // 调用方的最大重试次数
	RetryDelay   float64 `json:"retry_delay"`   // 重试延迟（秒）
	LogLevel     string  `json:"log_level"`     // 日志级别
	LogFile      string  `json:"log_file"`      // 日志文件
	WatchMode    bool    `json:"watch_mode"`    // 是否启用监听模式
	ShowProgress bool    `json:"show_progress"` // 显示阶段进度条
	ExportSRT    bool    `json:"export_srt"`    // 是否导出SRT字幕文件
	ExportVTT    bool    `json:"export_vtt"`    // 是否导出WebVTT字幕文件
	ServerAddr   string  `json:"server_addr"`   // webserver 监听地址
}

// ConfigValidationError 表示配置验证错误
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	msg := fmt.Sprintf("配置验证错误: %s - %s", e.Field, e.Message)
	logrus.Error(msg)
	return msg
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		MediaFolder:        "./media",
		OutputFolder:       "./output",
		Language:           "zh",
		MinDuration:        1.0,
		MaxDuration:        20.0,
		MinSegmentDuration: 1.0,
		SearchMargin:       20,
		MatchThreshold:     0.6,
		SkipMergeInBounds:  true,
		ASRService:         "kuaishou",
		DiarizationURL:     "",
		LLMBaseURL:         "https://ark.cn-beijing.volces.com/api/v3",
		LLMModel:           "doubao-1-5-pro-256k-250115",
		MaxRetries:         3,
		RetryDelay:         1.0,
		LogLevel:           "INFO",
		LogFile:            "",
		WatchMode:          false,
		ShowProgress:       true,
		ExportSRT:          true,
		ExportVTT:          false,
		ServerAddr:         ":8080",
	}
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	if err := ensureDirExists(c.MediaFolder); err != nil {
		return &ConfigValidationError{"MediaFolder", err.Error()}
	}

	if err := ensureDirExists(c.OutputFolder); err != nil {
		return &ConfigValidationError{"OutputFolder", err.Error()}
	}

	if err := ensureDirExists(c.InboxFolder); err != nil {
		return &ConfigValidationError{"InboxFolder", err.Error()}
	}

	if c.Language == "" {
		return &ConfigValidationError{"Language", "不能为空"}
	}

	if c.MinDuration <= 0 {
		return &ConfigValidationError{"MinDuration", "必须大于0"}
	}

	if c.MaxDuration < c.MinDuration {
		return &ConfigValidationError{"MaxDuration", "不能小于MinDuration"}
	}

	if c.MinSegmentDuration <= 0 || c.MinSegmentDuration > 10 {
		return &ConfigValidationError{"MinSegmentDuration", "必须在0-10秒之间"}
	}

	if c.SearchMargin < 0 || c.SearchMargin > 500 {
		return &ConfigValidationError{"SearchMargin", "必须在0-500之间"}
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return &ConfigValidationError{"MatchThreshold", "必须在0-1之间"}
	}

	switch c.ASRService {
	case "kuaishou", "bcut", "file", "auto":
	default:
		return &ConfigValidationError{"ASRService", "必须是 kuaishou、bcut、file 或 auto"}
	}

	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return &ConfigValidationError{"MaxRetries", "必须在1-10之间"}
	}

	if c.RetryDelay < 0.1 || c.RetryDelay > 10.0 {
		return &ConfigValidationError{"RetryDelay", "必须在0.1-10.0秒之间"}
	}

	return nil
}

// LoadFromFile 从文件加载配置
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("读取配置文件失败: %v", err)
		return err
	}

	err = json.Unmarshal(data, c)
	if err != nil {
		logrus.Errorf("解析配置文件失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		logrus.Errorf("配置验证失败: %v", err)
		return err
	}

	return nil
}

// SaveToFile 保存配置到文件
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Errorf("创建目录失败: %v", err)
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return err
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		logrus.Errorf("写入配置文件失败: %v", err)
		return err
	}

	return nil
}

// Update 批量更新配置
func (c *Config) Update(updates map[string]interface{}) error {
	// 保存当前配置用于回滚
	tempConfig := *c

	// map到struct的转换借助JSON完成
	updateBytes, err := json.Marshal(updates)
	if err != nil {
		logrus.Errorf("序列化更新数据失败: %v", err)
		return err
	}

	err = json.Unmarshal(updateBytes, c)
	if err != nil {
		*c = tempConfig
		logrus.Errorf("应用配置更新失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		*c = tempConfig
		logrus.Errorf("配置验证失败: %v", err)
		return err
	}

	return nil
}

// Reset 重置为默认配置
func (c *Config) Reset() {
	defaultConfig := NewDefaultConfig()
	*c = *defaultConfig
}

// PrintConfig 打印当前配置，密钥不输出
func (c *Config) PrintConfig() {
	masked := *c
	if masked.LLMAPIKey != "" {
		masked.LLMAPIKey = "******"
	}
	logrus.Info("\n当前配置:")
	bytes, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return
	}
	logrus.Info(string(bytes))
}

// 确保目录存在，如果不存在则创建
func ensureDirExists(path string) error {
	if path == "" {
		return nil // 空路径视为可选
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}

	return nil
}
