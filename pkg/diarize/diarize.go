// Package diarize 调用说话人分离服务。
package diarize

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
	"sort"
	"strings"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// Engine 说话人分离引擎，返回按时间排序、互不重叠的发言列表
type Engine interface {
	Diarize(ctx context.Context, audioPath string) ([]models.DiarizationTurn, error)
}

// Noop 不做说话人分离，总是返回空列表
type Noop struct{}

// Diarize 实现 Engine
func (Noop) Diarize(context.Context, string) ([]models.DiarizationTurn, error) {
	return nil, nil
}

// HTTPEngine 通过 HTTP 调用说话人分离服务（如 pyannote 封装的服务）。
// 以 multipart 上传音频到 {URL}/diarize，响应为发言数组或 {"segments": [...]}。
type HTTPEngine struct {
	URL        string
	HTTPClient *http.Client
}

// NewHTTPEngine 创建 HTTP 说话人分离引擎
func NewHTTPEngine(url string) *HTTPEngine {
	return &HTTPEngine{
		URL:        strings.TrimRight(url, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Minute},
	}
}

// Diarize 实现 Engine
func (e *HTTPEngine) Diarize(ctx context.Context, audioPath string) ([]models.DiarizationTurn, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("打开音频文件失败: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("写入文件数据失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单写入器失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL+"/diarize", &body)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("说话人分离请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("说话人分离服务返回错误状态码: %d, 响应: %s", resp.StatusCode, string(raw))
	}

	turns, err := parseTurns(raw)
	if err != nil {
		return nil, err
	}
	utils.Debug("说话人分离返回 %d 段发言", len(turns))
	return turns, nil
}

func parseTurns(raw []byte) ([]models.DiarizationTurn, error) {
	var turns []models.DiarizationTurn
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &turns); err != nil {
			return nil, fmt.Errorf("解析说话人分离结果失败: %w", err)
		}
	} else {
		var wrapped struct {
			Segments []models.DiarizationTurn `json:"segments"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("解析说话人分离结果失败: %w", err)
		}
		turns = wrapped.Segments
	}

	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Start < turns[j].Start })
	return turns, nil
}
