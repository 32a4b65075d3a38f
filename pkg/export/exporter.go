// Package export 把最终字幕段落写成 SRT、WebVTT 和 JSON 文件。
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// Options 导出选项
type Options struct {
	OmitSpeaker bool // 不输出说话人标签
}

// Exporter 按格式把段落写入输出目录
type Exporter struct {
	OutputFolder string
	Options      Options
}

// NewExporter 创建导出器
func NewExporter(outputFolder string) *Exporter {
	return &Exporter{OutputFolder: outputFolder}
}

// Export 导出指定格式（srt, vtt, json），返回 格式 -> 文件路径
func (e *Exporter) Export(segments []models.FinalSegment, audioPath, language string, formats ...string) (map[string]string, error) {
	outputs := make(map[string]string, len(formats))
	for _, format := range formats {
		var buf bytes.Buffer
		var err error
		switch format {
		case "srt":
			err = WriteSRT(&buf, segments, e.Options)
		case "vtt":
			err = WriteWebVTT(&buf, segments, e.Options)
		case "json":
			err = WriteJSON(&buf, segments, language)
		default:
			return outputs, fmt.Errorf("不支持的导出格式: %s", format)
		}
		if err != nil {
			return outputs, err
		}

		path, err := e.write(audioPath, format, buf.Bytes())
		if err != nil {
			return outputs, err
		}
		outputs[format] = path
	}
	return outputs, nil
}

func (e *Exporter) write(audioPath, ext string, data []byte) (string, error) {
	if err := utils.EnsureDirExists(e.OutputFolder); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	baseName := filepath.Base(audioPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if ext == "json" {
		ext = "transcript.json"
	}
	outputFile := filepath.Join(e.OutputFolder, fmt.Sprintf("%s.%s", baseName, ext))

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return "", fmt.Errorf("写入%s文件失败: %w", ext, err)
	}
	utils.Info("已导出字幕: %s", outputFile)
	return outputFile, nil
}

func writeLine(w io.Writer, format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("写入失败: %w", err)
	}
	return nil
}
