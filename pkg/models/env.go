package models

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 环境变量名称
const (
	EnvLLMAPIKey      = "LLM_API_KEY"
	EnvLLMBaseURL     = "LLM_BASE_URL"
	EnvLLMModel       = "LLM_MODEL"
	EnvDiarizationURL = "DIARIZATION_URL"
	EnvLanguage       = "CAPTION_LANGUAGE"
)

// LoadEnv 从 .env 文件及进程环境变量读取密钥和服务地址，覆盖配置中的对应字段。
// 文件不存在不视为错误。
func (c *Config) LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("加载环境文件 %s 失败: %v", f, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvLLMAPIKey)); v != "" {
		c.LLMAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLLMBaseURL)); v != "" {
		c.LLMBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLLMModel)); v != "" {
		c.LLMModel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDiarizationURL)); v != "" {
		c.DiarizationURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		c.Language = v
	}
}
