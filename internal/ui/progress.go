package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ProgressBar 进度条结构
type ProgressBar struct {
	Total      int       // 总步数
	Current    int       // 当前进度
	Prefix     string    // 前缀
	Suffix     string    // 后缀
	Width      int       // 进度条宽度
	FillChar   string    // 填充字符
	EmptyChar  string    // 空白字符
	StartTime  time.Time // 开始时间
	LastUpdate time.Time // 上次更新时间

	term *TerminalManager
}

// NewProgressBar 创建输出到标准输出的进度条
func NewProgressBar(total int, prefix string, suffix string) *ProgressBar {
	return newProgressBar(GetTerminalManager(), total, prefix, suffix)
}

func newProgressBar(term *TerminalManager, total int, prefix, suffix string) *ProgressBar {
	if total <= 0 {
		total = 100
	}
	now := time.Now()
	return &ProgressBar{
		Total:      total,
		Prefix:     prefix,
		Suffix:     suffix,
		Width:      30,
		FillChar:   "█",
		EmptyChar:  "░",
		StartTime:  now,
		LastUpdate: now,
		term:       term,
	}
}

// Update 更新进度
func (p *ProgressBar) Update(current int, suffix string) {
	if current < 0 {
		return
	}
	if current > p.Total {
		current = p.Total
	}
	p.Current = current
	if suffix != "" {
		p.Suffix = suffix
	}
	p.LastUpdate = time.Now()
	p.term.UpdateProgress(color.CyanString(p.line()))
}

// Increment 增加进度
func (p *ProgressBar) Increment(suffix string) {
	p.Update(p.Current+1, suffix)
}

// Complete 完成进度条
func (p *ProgressBar) Complete(suffix string) {
	p.Update(p.Total, suffix)
	p.term.Newline()
}

// line 渲染当前进度行
func (p *ProgressBar) line() string {
	percent := float64(p.Current) / float64(p.Total)
	elapsed := p.LastUpdate.Sub(p.StartTime)

	var remaining time.Duration
	if p.Current > 0 {
		remaining = time.Duration(float64(elapsed) / percent * (1 - percent))
	}

	return fmt.Sprintf("%s %s %3.0f%% | %s<%s | %s",
		p.Prefix, renderProgressBar(p.Current, p.Total, p.Width, p.FillChar, p.EmptyChar),
		percent*100, formatDuration(elapsed), formatDuration(remaining), p.Suffix)
}

// String 返回进度条的字符串表示
func (p *ProgressBar) String() string {
	percent := float64(p.Current) / float64(p.Total) * 100
	return fmt.Sprintf("%s %s %3.0f%% | %d/%d",
		p.Prefix, renderProgressBar(p.Current, p.Total, p.Width, p.FillChar, p.EmptyChar),
		percent, p.Current, p.Total)
}

func renderProgressBar(current, total, width int, fill, empty string) string {
	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat(fill, filled) + strings.Repeat(empty, width-filled) + "]"
}

// 格式化持续时间为 MM:SS 格式
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
