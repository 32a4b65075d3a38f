package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

const (
	// BcutBaseURL 必剪API基础URL
	BcutBaseURL = "https://member.bilibili.com/x/bcut/rubick-interface"

	bcutUserAgent = "Bilibili/1.0.0 (https://www.bilibili.com)"
	bcutModelID   = "8"
	// 接口返回的时间戳比音频实际时间略早，经验值
	bcutTimeOffset = 0.105
	// 任务完成状态
	bcutStateDone = 4
)

// BcutEngine 必剪语音识别实现：申请上传、分片上传、提交、创建任务、轮询结果
type BcutEngine struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	MaxPolls     int
}

// NewBcutEngine 创建必剪识别引擎
func NewBcutEngine() *BcutEngine {
	return &BcutEngine{
		BaseURL:      BcutBaseURL,
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
		PollInterval: time.Second,
		MaxPolls:     500,
	}
}

type bcutEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type bcutUpload struct {
	InBossKey  string   `json:"in_boss_key"`
	ResourceID string   `json:"resource_id"`
	UploadID   string   `json:"upload_id"`
	UploadURLs []string `json:"upload_urls"`
	PerSize    int      `json:"per_size"`
}

type bcutTaskResult struct {
	State  int    `json:"state"`
	Result string `json:"result"`
}

type bcutUtterances struct {
	Utterances []struct {
		Transcript string  `json:"transcript"`
		StartTime  float64 `json:"start_time"`
		EndTime    float64 `json:"end_time"`
	} `json:"utterances"`
}

// Transcribe 实现 Engine
func (b *BcutEngine) Transcribe(ctx context.Context, audioPath, language string) ([]models.RawSegment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("读取音频文件失败: %w", err)
	}

	downloadURL, err := b.upload(ctx, filepath.Base(audioPath), data)
	if err != nil {
		return nil, fmt.Errorf("必剪ASR上传失败: %w", err)
	}

	var task struct {
		TaskID string `json:"task_id"`
	}
	payload := map[string]interface{}{"resource": downloadURL, "model_id": bcutModelID}
	if err := b.call(ctx, http.MethodPost, "/task", payload, &task); err != nil {
		return nil, fmt.Errorf("必剪ASR创建任务失败: %w", err)
	}
	utils.Info("必剪任务已创建: %s (语言 %s)", task.TaskID, language)

	result, err := b.poll(ctx, task.TaskID)
	if err != nil {
		return nil, fmt.Errorf("必剪ASR查询结果失败: %w", err)
	}

	segments := make([]models.RawSegment, 0, len(result.Utterances))
	for _, u := range result.Utterances {
		segments = append(segments, models.RawSegment{
			Start: u.StartTime/1000.0 + bcutTimeOffset,
			End:   u.EndTime/1000.0 + bcutTimeOffset,
			Text:  u.Transcript,
		})
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	return segments, nil
}

// upload 申请上传、逐片上传并提交，返回资源下载地址
func (b *BcutEngine) upload(ctx context.Context, name string, data []byte) (string, error) {
	var up bcutUpload
	req := map[string]interface{}{
		"type":             2,
		"name":             name,
		"size":             len(data),
		"ResourceFileType": strings.TrimPrefix(filepath.Ext(name), "."),
		"model_id":         bcutModelID,
	}
	if err := b.call(ctx, http.MethodPost, "/resource/create", req, &up); err != nil {
		return "", fmt.Errorf("申请上传失败: %w", err)
	}
	if up.PerSize <= 0 || len(up.UploadURLs) == 0 {
		return "", fmt.Errorf("申请上传返回的分片信息无效")
	}
	utils.Debug("申请上传成功, 总计大小%dKB, %d分片, 分片大小%dKB", len(data)/1024, len(up.UploadURLs), up.PerSize/1024)

	etags := make([]string, len(up.UploadURLs))
	for i, url := range up.UploadURLs {
		start := i * up.PerSize
		end := start + up.PerSize
		if end > len(data) {
			end = len(data)
		}
		if start > end {
			start = end
		}
		etag, err := b.putPart(ctx, url, data[start:end])
		if err != nil {
			return "", fmt.Errorf("分片%d上传失败: %w", i, err)
		}
		etags[i] = etag
	}

	var done struct {
		DownloadURL string `json:"download_url"`
	}
	commit := map[string]interface{}{
		"InBossKey":  up.InBossKey,
		"ResourceId": up.ResourceID,
		"Etags":      strings.Join(etags, ","),
		"UploadId":   up.UploadID,
		"model_id":   bcutModelID,
	}
	if err := b.call(ctx, http.MethodPost, "/resource/create/complete", commit, &done); err != nil {
		return "", fmt.Errorf("提交上传失败: %w", err)
	}
	return done.DownloadURL, nil
}

func (b *BcutEngine) putPart(ctx context.Context, url string, chunk []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(chunk))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", bcutUserAgent)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := b.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if etag := resp.Header.Get("Etag"); etag != "" {
		return etag, nil
	}
	// 没有Etag头时尝试从响应体获取
	var body struct {
		Etag string `json:"etag"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Etag != "" {
		return body.Etag, nil
	}
	return "", fmt.Errorf("未获取到Etag")
}

// poll 轮询任务直到完成
func (b *BcutEngine) poll(ctx context.Context, taskID string) (*bcutUtterances, error) {
	path := fmt.Sprintf("/task/result?model_id=7&task_id=%s", taskID)
	for i := 0; i < b.MaxPolls; i++ {
		var state bcutTaskResult
		if err := b.call(ctx, http.MethodGet, path, nil, &state); err != nil {
			return nil, err
		}
		if state.State == bcutStateDone {
			var result bcutUtterances
			if err := json.Unmarshal([]byte(state.Result), &result); err != nil {
				return nil, fmt.Errorf("解析结果失败: %w", err)
			}
			return &result, nil
		}
		if i%10 == 0 {
			utils.Debug("必剪任务处理中 %d/%d", i, b.MaxPolls)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.PollInterval):
		}
	}
	return nil, fmt.Errorf("任务超时未完成")
}

// call 发送 JSON 请求并把 data 字段解码到 out
func (b *BcutEngine) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("JSON编码失败: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", bcutUserAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client().Do(req)
	if err != nil {
		return fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("服务返回错误状态码: %d", resp.StatusCode)
	}

	var env bcutEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("解析JSON响应失败: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("服务返回错误: %d %s", env.Code, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("响应格式错误")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析响应数据失败: %w", err)
	}
	return nil
}

func (b *BcutEngine) client() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}
