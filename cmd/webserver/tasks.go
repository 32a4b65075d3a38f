package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// ErrQueueFull 等待中的任务过多
var ErrQueueFull = errors.New("任务队列已满")

const defaultQueueSize = 64

// Transcriber 执行一次字幕对齐
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*models.Result, []models.FinalSegment, error)
}

// TaskManager 保存任务并用单个后台协程依次执行
type TaskManager struct {
	tasks       sync.Map   // id -> *Task
	writeMu     sync.Mutex // 保证更新与删除不交错
	queue       chan string
	transcriber Transcriber
	wg          sync.WaitGroup
}

// NewTaskManager 创建任务管理器，调用 Start 后开始处理
func NewTaskManager(transcriber Transcriber, queueSize int) *TaskManager {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &TaskManager{
		queue:       make(chan string, queueSize),
		transcriber: transcriber,
	}
}

// Start 启动后台协程，ctx 取消后退出
func (m *TaskManager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-m.queue:
				m.run(ctx, id)
			}
		}
	}()
}

// Wait 等待后台协程退出
func (m *TaskManager) Wait() {
	m.wg.Wait()
}

// Create 创建任务并排队
func (m *TaskManager) Create(audioPath, language string) (string, error) {
	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		AudioPath: audioPath,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.tasks.Store(task.ID, task)

	select {
	case m.queue <- task.ID:
	default:
		m.tasks.Delete(task.ID)
		return "", ErrQueueFull
	}
	utils.Info("创建任务: %s (音频: %s)", task.ID, audioPath)
	return task.ID, nil
}

// Get 获取任务快照
func (m *TaskManager) Get(id string) (*Task, bool) {
	value, ok := m.tasks.Load(id)
	if !ok {
		return nil, false
	}
	task, ok := value.(*Task)
	if !ok {
		utils.Error("任务 %s 类型断言失败", id)
		return nil, false
	}
	return task, true
}

// Delete 删除任务记录，排队中的任务不再执行
func (m *TaskManager) Delete(id string) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	_, loaded := m.tasks.LoadAndDelete(id)
	if loaded {
		utils.Info("删除任务: %s", id)
	}
	return loaded
}

// update 复制任务后修改并替换，任务已删除时返回 false
func (m *TaskManager) update(id string, fn func(t *Task)) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	current, ok := m.Get(id)
	if !ok {
		return false
	}
	next := *current
	fn(&next)
	next.UpdatedAt = time.Now()
	m.tasks.Store(id, &next)
	return true
}

func (m *TaskManager) run(ctx context.Context, id string) {
	task, ok := m.Get(id)
	if !ok {
		return
	}
	m.update(id, func(t *Task) { t.Status = StatusRunning })
	utils.Info("任务 %s 开始执行", id)

	result, segments, err := m.transcriber.Transcribe(ctx, task.AudioPath, task.Language)
	m.update(id, func(t *Task) {
		if err != nil {
			t.Status = StatusFailed
			t.Error = err.Error()
			return
		}
		t.Status = StatusSuccess
		t.Result = result
		t.Segments = segments
		if t.Language == "" && result != nil {
			t.Language = result.Language
		}
	})

	if err != nil {
		utils.Error("任务 %s 失败: %v", id, err)
		return
	}
	utils.Info("任务 %s 完成，共 %d 个字幕段", id, len(segments))
}
