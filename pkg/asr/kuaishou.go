package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// KuaiShouEndpoint 快手字幕生成接口
const KuaiShouEndpoint = "https://ai.kuaishou.com/api/effects/subtitle_generate"

// KuaiShouEngine 快手语音识别实现
type KuaiShouEngine struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewKuaiShouEngine 创建快手识别引擎
func NewKuaiShouEngine() *KuaiShouEngine {
	return &KuaiShouEngine{
		Endpoint:   KuaiShouEndpoint,
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// KuaiShouResponse 响应结构
type KuaiShouResponse struct {
	Data struct {
		Text []struct {
			Text      string  `json:"text"`
			StartTime float64 `json:"start_time"`
			EndTime   float64 `json:"end_time"`
		} `json:"text"`
	} `json:"data"`
}

// Transcribe 实现 Engine。快手接口自动识别语言，language 只用于日志。
func (k *KuaiShouEngine) Transcribe(ctx context.Context, audioPath, language string) ([]models.RawSegment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("读取音频文件失败: %w", err)
	}
	utils.Info("提交快手识别: %s (%d KB, 语言 %s)", filepath.Base(audioPath), len(data)/1024, language)

	result, err := k.submit(ctx, filepath.Base(audioPath), data)
	if err != nil {
		return nil, fmt.Errorf("快手ASR请求失败: %w", err)
	}

	segments := make([]models.RawSegment, 0, len(result.Data.Text))
	for _, item := range result.Data.Text {
		segments = append(segments, models.RawSegment{
			Start: item.StartTime,
			End:   item.EndTime,
			Text:  item.Text,
		})
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	return segments, nil
}

// submit 提交识别请求
func (k *KuaiShouEngine) submit(ctx context.Context, name string, data []byte) (*KuaiShouResponse, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	if err := writer.WriteField("typeId", "1"); err != nil {
		return nil, fmt.Errorf("写入表单字段失败: %w", err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("写入文件数据失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单写入器失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.Endpoint, &requestBody)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := k.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("服务返回错误状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var result KuaiShouResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	return &result, nil
}
