// Package media 通过 ffprobe 读取音频元信息。
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoDuration ffprobe 没有给出可用的时长
var ErrNoDuration = errors.New("无法获取媒体时长")

// MediaInfo 存储媒体文件的详细信息
type MediaInfo struct {
	Path       string  // 文件路径
	Name       string  // 文件名
	Format     string  // 文件格式
	Duration   float64 // 时长(秒)
	SampleRate int     // 采样率(Hz)
	Channels   int     // 声道数
	Bitrate    int     // 比特率(kbps)
	Size       int64   // 文件大小(字节)
}

// Prober 读取音频时长
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFProbe 调用 ffprobe 命令行
type FFProbe struct {
	Binary string
}

// NewFFProbe 创建使用 PATH 中 ffprobe 的探测器
func NewFFProbe() *FFProbe {
	return &FFProbe{Binary: "ffprobe"}
}

// Available 检查ffprobe是否可用
func (p *FFProbe) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// Duration 实现 Prober
func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Info(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// Info 获取媒体文件信息
func (p *FFProbe) Info(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, p.binary(),
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration,size,bit_rate,format_name:stream=sample_rate,channels,codec_type",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("获取媒体信息失败: %w", err)
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}
	info.Path = path
	info.Name = filepath.Base(path)
	info.Format = strings.TrimPrefix(filepath.Ext(path), ".")
	if fi, err := os.Stat(path); err == nil {
		info.Size = fi.Size()
	}
	return info, nil
}

func (p *FFProbe) binary() string {
	if p.Binary == "" {
		return "ffprobe"
	}
	return p.Binary
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// parseProbeOutput 解析 ffprobe 的 JSON 输出，数值字段为 N/A 时保持为零
func parseProbeOutput(output []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("无法解析媒体信息: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil || duration <= 0 {
		return nil, ErrNoDuration
	}

	info := &MediaInfo{Duration: duration}
	if br, err := strconv.Atoi(out.Format.BitRate); err == nil {
		info.Bitrate = br / 1000
	}
	if size, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
		info.Size = size
	}
	for _, s := range out.Streams {
		if s.CodecType != "" && s.CodecType != "audio" {
			continue
		}
		if sr, err := strconv.Atoi(s.SampleRate); err == nil {
			info.SampleRate = sr
		}
		info.Channels = s.Channels
		break
	}
	return info, nil
}
