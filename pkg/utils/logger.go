package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// 日志级别常量
const (
	LogLevelVerbose = "VERBOSE"
	LogLevelNormal  = "INFO"
	LogLevelQuiet   = "WARN"
	LogLevelError   = "ERROR"
)

var (
	// Log 全局日志实例，InitLogger 之前也可以安全使用
	Log = logrus.New()
	// 是否启用了终端进度条
	terminalProgressEnabled bool
)

// InitLogger 初始化日志系统
// level: 日志级别 (VERBOSE/INFO/WARN/ERROR，大小写不敏感，也接受 debug)
// logFile: 日志文件路径，空字符串表示仅输出到控制台
func InitLogger(level string, logFile string) error {
	Log = logrus.New()

	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if terminalProgressEnabled {
		// 进度条占用终端时日志写入文件
		if logFile == "" {
			logFile = filepath.Join(os.TempDir(), "caption-aligner.log")
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			Log.SetOutput(file)
		}
	} else if logFile != "" {
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("创建日志目录失败: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}

		// 同时输出到文件和控制台
		Log.SetOutput(io.MultiWriter(os.Stdout, file))
	} else {
		Log.SetOutput(os.Stdout)
	}

	Log.SetLevel(parseLevel(level))
	return nil
}

func parseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case LogLevelVerbose, "DEBUG":
		return logrus.DebugLevel
	case LogLevelNormal:
		return logrus.InfoLevel
	case LogLevelQuiet, "WARNING":
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// EnableTerminalProgress 启用终端进度条模式，之后日志不再输出到终端
func EnableTerminalProgress(logFile string) {
	terminalProgressEnabled = true
	InitLogger(Log.GetLevel().String(), logFile)
}

// DisableTerminalProgress 禁用终端进度条模式，日志恢复到终端输出
func DisableTerminalProgress() {
	terminalProgressEnabled = false
	Log.SetOutput(os.Stdout)
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) {
	if len(args) > 0 {
		Log.Debugf(format, args...)
	} else {
		Log.Debug(format)
	}
}

// Info 输出信息日志
func Info(format string, args ...interface{}) {
	if len(args) > 0 {
		Log.Infof(format, args...)
	} else {
		Log.Info(format)
	}
}

// Warn 输出警告日志
func Warn(format string, args ...interface{}) {
	if len(args) > 0 {
		Log.Warnf(format, args...)
	} else {
		Log.Warn(format)
	}
}

// Error 输出错误日志
func Error(format string, args ...interface{}) {
	if len(args) > 0 {
		Log.Errorf(format, args...)
	} else {
		Log.Error(format)
	}
}

// Fatal 输出致命错误日志并退出
func Fatal(format string, args ...interface{}) {
	if len(args) > 0 {
		Log.Fatalf(format, args...)
	} else {
		Log.Fatal(format)
	}
}

// WithField 创建带字段的日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

// WithFields 创建带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
