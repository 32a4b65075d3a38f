// Package audio 用 ffmpeg 从视频文件中提取音轨，供语音识别使用。
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ccp-p/asr-media-cli/caption-aligner/internal/ui"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// AudioExtractor 音频提取器
type AudioExtractor struct {
	Binary          string // ffmpeg 路径，为空时从 PATH 查找
	OutputDir       string // 提取出的音频存放目录
	ProgressManager *ui.ProgressManager
}

// NewAudioExtractor 创建新的音频提取器
func NewAudioExtractor(outputDir string) *AudioExtractor {
	return &AudioExtractor{Binary: "ffmpeg", OutputDir: outputDir}
}

// Available ffmpeg 是否可用
func (e *AudioExtractor) Available() bool {
	_, err := exec.LookPath(e.binary())
	return err == nil
}

// AudioPath 视频对应的音频文件路径
func (e *AudioExtractor) AudioPath(videoPath string) string {
	base := filepath.Base(videoPath)
	return filepath.Join(e.OutputDir, strings.TrimSuffix(base, filepath.Ext(base))+".mp3")
}

// ExtractAudioFromVideo 从视频文件提取音频。音频已存在时直接返回，第二个返回值表示是否新提取。
func (e *AudioExtractor) ExtractAudioFromVideo(ctx context.Context, videoPath string) (string, bool, error) {
	audioPath := e.AudioPath(videoPath)
	if utils.CheckFileExists(audioPath) {
		utils.Info("音频已存在: %s", audioPath)
		return audioPath, false, nil
	}
	if err := utils.EnsureDirExists(e.OutputDir); err != nil {
		return "", false, fmt.Errorf("创建音频目录失败: %w", err)
	}

	videoFilename := filepath.Base(videoPath)
	progressID := "extract_" + videoFilename
	if e.ProgressManager != nil {
		e.ProgressManager.CreateProgressBar(progressID, 100, "提取 "+videoFilename, "正在提取")
	}

	cmd := exec.CommandContext(ctx, e.binary(),
		"-i", videoPath,
		"-q:a", "0",
		"-map", "a",
		audioPath,
		"-y",
	)
	utils.Info("正在从视频提取音频: %s", videoFilename)

	if output, err := cmd.CombinedOutput(); err != nil {
		e.complete(progressID, "提取失败")
		// 失败时可能留下不完整的文件
		os.Remove(audioPath)
		utils.Debug("ffmpeg 输出: %s", string(output))
		return "", false, fmt.Errorf("音频提取失败: %w", err)
	}
	if !utils.CheckFileExists(audioPath) {
		e.complete(progressID, "提取失败")
		return "", false, fmt.Errorf("提取的音频文件不存在: %s", audioPath)
	}

	e.complete(progressID, "提取完成")
	utils.Info("音频提取成功: %s", audioPath)
	return audioPath, true, nil
}

func (e *AudioExtractor) complete(progressID, suffix string) {
	if e.ProgressManager != nil {
		e.ProgressManager.CompleteProgressBar(progressID, suffix)
	}
}

func (e *AudioExtractor) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}
