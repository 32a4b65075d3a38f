package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/scanner"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// MediaExtensions 默认监控的音视频扩展名
var MediaExtensions = scanner.NewMediaScanner().Extensions()

// FileEventHandler 是处理文件事件的接口
type FileEventHandler interface {
	OnFileCreated(filePath string)
	OnFileModified(filePath string)
	OnFileDeleted(filePath string)
}

// FolderMonitor 监控文件夹变化。文件写入完成（debounceTime 内没有新事件）后才通知处理器。
type FolderMonitor struct {
	watcher        *fsnotify.Watcher
	folderPath     string
	fileExtensions []string
	handler        FileEventHandler
	debounceTime   time.Duration
	pendingFiles   map[string]*time.Timer
	pendingCreated map[string]bool
	mutex          sync.Mutex
	stopChan       chan struct{}
	stopOnce       sync.Once
}

// NewFolderMonitor 创建新的文件夹监控器
func NewFolderMonitor(folderPath string, extensions []string, handler FileEventHandler, debounceTime time.Duration) (*FolderMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &FolderMonitor{
		watcher:        watcher,
		folderPath:     folderPath,
		fileExtensions: extensions,
		handler:        handler,
		debounceTime:   debounceTime,
		pendingFiles:   make(map[string]*time.Timer),
		pendingCreated: make(map[string]bool),
		stopChan:       make(chan struct{}),
	}, nil
}

// Start 开始监控文件夹
func (m *FolderMonitor) Start() error {
	if err := os.MkdirAll(m.folderPath, 0755); err != nil {
		return fmt.Errorf("创建文件夹失败: %w", err)
	}
	if err := m.watcher.Add(m.folderPath); err != nil {
		return fmt.Errorf("添加监控文件夹失败: %w", err)
	}

	go m.watchLoop()

	utils.Info("开始监控文件夹: %s", m.folderPath)
	return nil
}

// Stop 停止监控，可重复调用
func (m *FolderMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.watcher.Close()
		utils.Info("停止监控文件夹: %s", m.folderPath)

		m.mutex.Lock()
		defer m.mutex.Unlock()
		for path, timer := range m.pendingFiles {
			timer.Stop()
			delete(m.pendingFiles, path)
			delete(m.pendingCreated, path)
		}
	})
}

// watchLoop 监控循环
func (m *FolderMonitor) watchLoop() {
	for {
		select {
		case <-m.stopChan:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFileEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			utils.Error("监控文件夹时出错: %v", err)
		}
	}
}

// 处理文件事件
func (m *FolderMonitor) handleFileEvent(event fsnotify.Event) {
	filePath := event.Name

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if m.hasTargetExtension(filePath) {
			m.cancelPending(filePath)
			if m.handler != nil {
				m.handler.OnFileDeleted(filePath)
			}
		}
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !m.isTargetFile(filePath) {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// 防抖窗口内出现过创建事件就按新文件处理
	if event.Op&fsnotify.Create != 0 {
		m.pendingCreated[filePath] = true
	}
	if timer, exists := m.pendingFiles[filePath]; exists {
		timer.Stop()
	}
	m.pendingFiles[filePath] = time.AfterFunc(m.debounceTime, func() {
		m.processFile(filePath)
	})

	utils.Debug("检测到文件变化: %s", filePath)
}

func (m *FolderMonitor) cancelPending(filePath string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if timer, exists := m.pendingFiles[filePath]; exists {
		timer.Stop()
		delete(m.pendingFiles, filePath)
	}
	delete(m.pendingCreated, filePath)
}

// 判断是否为目标文件类型
func (m *FolderMonitor) isTargetFile(filePath string) bool {
	fileInfo, err := os.Stat(filePath)
	if err != nil || fileInfo.IsDir() {
		return false
	}
	return m.hasTargetExtension(filePath)
}

func (m *FolderMonitor) hasTargetExtension(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, targetExt := range m.fileExtensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}

// 处理文件
func (m *FolderMonitor) processFile(filePath string) {
	m.mutex.Lock()
	created := m.pendingCreated[filePath]
	delete(m.pendingFiles, filePath)
	delete(m.pendingCreated, filePath)
	m.mutex.Unlock()

	select {
	case <-m.stopChan:
		return
	default:
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return
	}
	if m.handler == nil {
		return
	}

	utils.Info("准备处理文件: %s", filePath)
	if created {
		m.handler.OnFileCreated(filePath)
	} else {
		m.handler.OnFileModified(filePath)
	}
}

// FileMovementHandler 把收件目录中写入完成的媒体文件移动到媒体目录
type FileMovementHandler struct {
	targetFolder   string
	processedFiles map[string]bool
	mutex          sync.Mutex
}

// NewFileMovementHandler 创建文件移动处理器
func NewFileMovementHandler(targetFolder string) *FileMovementHandler {
	return &FileMovementHandler{
		targetFolder:   targetFolder,
		processedFiles: make(map[string]bool),
	}
}

// OnFileCreated 处理文件创建事件
func (h *FileMovementHandler) OnFileCreated(filePath string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.processedFiles[filePath] {
		return
	}
	if _, err := h.moveFile(filePath); err != nil {
		utils.Error("%v", err)
		return
	}
	h.processedFiles[filePath] = true
}

// OnFileModified 写入完成的修改事件按新文件处理
func (h *FileMovementHandler) OnFileModified(filePath string) {
	h.OnFileCreated(filePath)
}

// OnFileDeleted 处理文件删除事件
func (h *FileMovementHandler) OnFileDeleted(filePath string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.processedFiles, filePath)
}

// moveFile 将文件移动到目标文件夹，重名时追加时间戳
func (h *FileMovementHandler) moveFile(sourcePath string) (string, error) {
	if err := os.MkdirAll(h.targetFolder, 0755); err != nil {
		return "", fmt.Errorf("创建目标文件夹失败: %w", err)
	}

	filename := filepath.Base(sourcePath)
	targetPath := filepath.Join(h.targetFolder, filename)

	if _, err := os.Stat(targetPath); err == nil {
		ext := filepath.Ext(filename)
		name := filename[:len(filename)-len(ext)]
		timestamp := time.Now().Format("20060102150405.000")
		targetPath = filepath.Join(h.targetFolder, fmt.Sprintf("%s_%s%s", name, strings.ReplaceAll(timestamp, ".", ""), ext))
	}

	if err := os.Rename(sourcePath, targetPath); err != nil {
		return "", fmt.Errorf("移动文件失败 %s -> %s: %w", sourcePath, targetPath, err)
	}

	utils.Info("文件已移动: %s -> %s", sourcePath, targetPath)
	return targetPath, nil
}

// StartFolderMonitoring 开始监控收件文件夹并把媒体文件移动到目标文件夹
func StartFolderMonitoring(sourceFolder, targetFolder string, debounceTime time.Duration) (func(), error) {
	handler := NewFileMovementHandler(targetFolder)

	monitor, err := NewFolderMonitor(sourceFolder, MediaExtensions, handler, debounceTime)
	if err != nil {
		return nil, err
	}
	if err := monitor.Start(); err != nil {
		monitor.Stop()
		return nil, err
	}
	return monitor.Stop, nil
}
