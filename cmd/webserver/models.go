package main

import (
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
)

// 任务状态
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// --- 请求结构体 ---

// CreateTaskRequest 提交对齐任务，音频路径为服务端本地路径
type CreateTaskRequest struct {
	AudioPath string `json:"audio_path" binding:"required"`
	Language  string `json:"language"`
}

// --- 响应结构体 ---

type BaseResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

type CreateTaskResponse struct {
	BaseResponse
	Data *struct {
		TaskID string `json:"task_id"`
	} `json:"data,omitempty"`
}

type TaskStatusResponse struct {
	BaseResponse
	Data *TaskStatusData `json:"data,omitempty"`
}

type TaskStatusData struct {
	TaskID    string         `json:"task_id"`
	Status    string         `json:"status"` // PENDING, RUNNING, SUCCESS, FAILED
	AudioPath string         `json:"audio_path"`
	Language  string         `json:"language"`
	Error     string         `json:"error,omitempty"`
	Result    *models.Result `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type SegmentsResponse struct {
	BaseResponse
	Data []models.FinalSegment `json:"data,omitempty"`
}

// --- 任务内部表示 ---

// Task 在 sync.Map 中按值替换，取出的副本可以直接读
type Task struct {
	ID        string
	Status    string
	AudioPath string
	Language  string
	Error     string
	Result    *models.Result
	Segments  []models.FinalSegment
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) statusData() *TaskStatusData {
	return &TaskStatusData{
		TaskID:    t.ID,
		Status:    t.Status,
		AudioPath: t.AudioPath,
		Language:  t.Language,
		Error:     t.Error,
		Result:    t.Result,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
