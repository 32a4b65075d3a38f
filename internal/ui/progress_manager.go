package ui

import (
	"sync"
)

// ProgressManager 管理多个进度条，每个处理中的文件一个
type ProgressManager struct {
	progressBars map[string]*ProgressBar
	mutex        sync.Mutex
	enabled      bool
	term         *TerminalManager
}

// NewProgressManager 创建输出到标准输出的进度管理器
func NewProgressManager(enabled bool) *ProgressManager {
	return NewProgressManagerWithTerminal(enabled, GetTerminalManager())
}

// NewProgressManagerWithTerminal 创建使用指定终端的进度管理器
func NewProgressManagerWithTerminal(enabled bool, term *TerminalManager) *ProgressManager {
	return &ProgressManager{
		progressBars: make(map[string]*ProgressBar),
		enabled:      enabled,
		term:         term,
	}
}

// Enabled 是否显示进度条
func (pm *ProgressManager) Enabled() bool {
	return pm.enabled
}

// CreateProgressBar 创建并注册一个新的进度条，未启用时返回 nil
func (pm *ProgressManager) CreateProgressBar(id string, total int, prefix string, suffix string) *ProgressBar {
	if !pm.enabled {
		return nil
	}

	pm.mutex.Lock()
	old, exists := pm.progressBars[id]
	bar := newProgressBar(pm.term, total, prefix, suffix)
	pm.progressBars[id] = bar
	pm.mutex.Unlock()

	// 如果已经存在同名进度条，先完成它
	if exists {
		old.Complete("已被替换")
	}
	return bar
}

// GetProgressBar 获取已存在的进度条
func (pm *ProgressManager) GetProgressBar(id string) *ProgressBar {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	return pm.progressBars[id]
}

// UpdateProgressBar 更新进度条
func (pm *ProgressManager) UpdateProgressBar(id string, current int, suffix string) {
	if bar := pm.GetProgressBar(id); bar != nil {
		bar.Update(current, suffix)
	}
}

// CompleteProgressBar 完成并移除进度条
func (pm *ProgressManager) CompleteProgressBar(id string, suffix string) {
	pm.mutex.Lock()
	bar, exists := pm.progressBars[id]
	delete(pm.progressBars, id)
	pm.mutex.Unlock()

	if exists {
		bar.Complete(suffix)
	}
}

// Callback 返回更新指定进度条的回调，可直接作为流水线的进度回调。
// 进度条不存在时会先创建。
func (pm *ProgressManager) Callback(id, prefix string) func(percent int, message string) {
	return func(percent int, message string) {
		if !pm.enabled {
			return
		}
		if pm.GetProgressBar(id) == nil {
			pm.CreateProgressBar(id, 100, prefix, message)
		}
		pm.UpdateProgressBar(id, percent, message)
	}
}

// PrintMsg 在进度条之间安全地打印消息
func (pm *ProgressManager) PrintMsg(format string, args ...interface{}) {
	pm.term.PrintMsg(format, args...)
}

// CloseAll 完成所有进度条
func (pm *ProgressManager) CloseAll(suffix string) {
	pm.mutex.Lock()
	bars := make([]*ProgressBar, 0, len(pm.progressBars))
	for _, bar := range pm.progressBars {
		bars = append(bars, bar)
	}
	pm.progressBars = make(map[string]*ProgressBar)
	pm.mutex.Unlock()

	for _, bar := range bars {
		bar.Complete(suffix)
	}
}
