package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalManager 管理终端输出，确保进度条和消息不会混乱
type TerminalManager struct {
	mu sync.Mutex
	w  io.Writer
}

var (
	globalTerminalManager *TerminalManager
	once                  sync.Once
)

// GetTerminalManager 获取输出到标准输出的全局终端管理器
func GetTerminalManager() *TerminalManager {
	once.Do(func() {
		globalTerminalManager = NewTerminalManager(os.Stdout)
	})
	return globalTerminalManager
}

// NewTerminalManager 创建写入 w 的终端管理器
func NewTerminalManager(w io.Writer) *TerminalManager {
	return &TerminalManager{w: w}
}

// PrintMsg 清除当前进度行后打印一行消息
func (tm *TerminalManager) PrintMsg(format string, args ...interface{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprint(tm.w, "\033[2K\r")
	fmt.Fprintf(tm.w, format+"\n", args...)
}

// UpdateProgress 在当前行重绘进度。line 原样输出，不做格式化。
func (tm *TerminalManager) UpdateProgress(line string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprint(tm.w, "\033[2K\r")
	fmt.Fprint(tm.w, line)
}

// Newline 结束当前进度行
func (tm *TerminalManager) Newline() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprintln(tm.w)
}
