package watcher

import (
	"sync"
	"time"

	"github.com/ccp-p/asr-media-cli/caption-aligner/internal/ui"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// DefaultDebounce 文件写入完成的判定间隔
const DefaultDebounce = 2 * time.Second

// MediaProcessor 监控到新媒体文件后调用的处理器
type MediaProcessor interface {
	// ProcessFile 对单个媒体文件执行完整的字幕对齐流程
	ProcessFile(path string) error
	// IsRecognizedFile 文件已有结果时返回 true
	IsRecognizedFile(path string) bool
}

// ProcessingHandler 把写入完成的媒体文件交给 MediaProcessor，同一时间只处理一个文件
type ProcessingHandler struct {
	processor       MediaProcessor
	progressManager *ui.ProgressManager
	processedFiles  map[string]bool
	mutex           sync.Mutex
}

// NewProcessingHandler 创建处理器
func NewProcessingHandler(processor MediaProcessor, progressManager *ui.ProgressManager) *ProcessingHandler {
	return &ProcessingHandler{
		processor:       processor,
		progressManager: progressManager,
		processedFiles:  make(map[string]bool),
	}
}

// OnFileCreated 处理新文件
func (h *ProcessingHandler) OnFileCreated(filePath string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.processedFiles[filePath] {
		return
	}
	if h.processor.IsRecognizedFile(filePath) {
		utils.Debug("文件已有结果，跳过: %s", filePath)
		h.processedFiles[filePath] = true
		return
	}

	h.printMsg("开始处理新文件: %s", filePath)
	if err := h.processor.ProcessFile(filePath); err != nil {
		utils.Error("处理文件失败 %s: %v", filePath, err)
		return
	}
	h.processedFiles[filePath] = true
	h.printMsg("文件处理完成: %s", filePath)
}

// OnFileModified 已处理过的文件被覆盖写入后重新处理
func (h *ProcessingHandler) OnFileModified(filePath string) {
	h.mutex.Lock()
	delete(h.processedFiles, filePath)
	h.mutex.Unlock()
	h.OnFileCreated(filePath)
}

// OnFileDeleted 处理文件删除事件
func (h *ProcessingHandler) OnFileDeleted(filePath string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.processedFiles, filePath)
}

func (h *ProcessingHandler) printMsg(format string, args ...interface{}) {
	if h.progressManager != nil && h.progressManager.Enabled() {
		h.progressManager.PrintMsg(format, args...)
		return
	}
	utils.Info(format, args...)
}

// StartMediaFolderMonitoring 监控媒体文件夹，新文件写入完成后交给 processor
func StartMediaFolderMonitoring(mediaFolder string, processor MediaProcessor, progressManager *ui.ProgressManager, debounceTime time.Duration) (func(), error) {
	handler := NewProcessingHandler(processor, progressManager)

	monitor, err := NewFolderMonitor(mediaFolder, MediaExtensions, handler, debounceTime)
	if err != nil {
		return nil, err
	}
	if err := monitor.Start(); err != nil {
		monitor.Stop()
		return nil, err
	}
	return monitor.Stop, nil
}

// MediaWatcher 媒体文件监控器：媒体文件夹自动处理，收件文件夹（可选）自动搬运
type MediaWatcher struct {
	MediaFolder string
	InboxFolder string
	Debounce    time.Duration
	processor   MediaProcessor
	progress    *ui.ProgressManager
	stopFuncs   []func()
}

// NewMediaWatcher 创建媒体文件监控器
func NewMediaWatcher(mediaFolder, inboxFolder string, processor MediaProcessor, progressManager *ui.ProgressManager) *MediaWatcher {
	return &MediaWatcher{
		MediaFolder: mediaFolder,
		InboxFolder: inboxFolder,
		Debounce:    DefaultDebounce,
		processor:   processor,
		progress:    progressManager,
	}
}

// Start 启动监控
func (w *MediaWatcher) Start() error {
	stopMedia, err := StartMediaFolderMonitoring(w.MediaFolder, w.processor, w.progress, w.Debounce)
	if err != nil {
		return err
	}
	w.stopFuncs = append(w.stopFuncs, stopMedia)

	if w.InboxFolder != "" && w.InboxFolder != w.MediaFolder {
		stopInbox, err := StartFolderMonitoring(w.InboxFolder, w.MediaFolder, w.Debounce)
		if err != nil {
			w.Stop()
			return err
		}
		w.stopFuncs = append(w.stopFuncs, stopInbox)
	}

	utils.Info("媒体文件监控已启动")
	return nil
}

// Stop 停止监控
func (w *MediaWatcher) Stop() {
	for _, stop := range w.stopFuncs {
		stop()
	}
	w.stopFuncs = nil
	utils.Info("媒体文件监控已停止")
}
