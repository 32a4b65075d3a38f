package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ccp-p/asr-media-cli/caption-aligner/internal/controller"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

var (
	mediaDir   = flag.String("media", "", "媒体文件目录")
	outputDir  = flag.String("output", "", "输出目录")
	inputFile  = flag.String("file", "", "只处理指定的音频文件")
	language   = flag.String("lang", "", "识别语言 (zh, en, zh-tw ...)")
	asrService = flag.String("asr", "", "ASR服务 (kuaishou, bcut, file, auto)")
	watchMode  = flag.Bool("watch", false, "处理完成后继续监控媒体目录")
	configFile = flag.String("config", "", "配置文件路径")
	envFile    = flag.String("env", ".env", "环境变量文件")
	logLevel   = flag.String("log-level", "info", "日志级别 (debug, info, warn, error)")
	logFile    = flag.String("log-file", "", "日志文件路径")
)

func main() {
	flag.Parse()

	if _, err := logrus.ParseLevel(*logLevel); err != nil {
		*logLevel = "info"
	}
	if err := utils.InitLogger(*logLevel, *logFile); err != nil {
		color.Red("初始化日志失败: %v", err)
		os.Exit(1)
	}

	printWelcome()

	config := loadConfig()
	if err := config.Validate(); err != nil {
		color.Red("配置无效: %v", err)
		os.Exit(1)
	}

	pc, err := controller.NewProcessorController(config)
	if err != nil {
		color.Red("初始化失败: %v", err)
		os.Exit(1)
	}
	defer pc.Cleanup()
	pc.SetupSignalHandlers()

	if *inputFile != "" {
		if err := pc.ProcessFile(*inputFile); err != nil {
			pc.PrintStats()
			os.Exit(1)
		}
	} else if err := pc.ProcessMedia(); err != nil {
		utils.Error("批量处理失败: %v", err)
	}

	if config.WatchMode {
		if err := pc.StartWatchMode(); err != nil {
			utils.Error("监控模式启动失败: %v", err)
		}
	}

	pc.PrintStats()
	fmt.Println("\n所有文件处理完成!")
}

func printWelcome() {
	fmt.Println()
	color.Cyan("================================")
	color.Cyan("      字幕对齐工具 - Go 版本     ")
	color.Cyan("================================")
	fmt.Println()
}

func loadConfig() *models.Config {
	fmt.Print("加载配置... ")

	config := models.NewDefaultConfig()
	if *configFile != "" {
		if err := config.LoadFromFile(*configFile); err != nil {
			color.Yellow("警告: 加载配置文件失败: %v", err)
			logrus.Warnf("配置加载失败: %v，将使用默认配置", err)
		} else {
			color.Green("成功")
		}
	} else {
		color.Yellow("未指定配置文件，使用默认配置")
	}

	config.LoadEnv(*envFile)

	// 命令行参数优先
	if *mediaDir != "" {
		config.MediaFolder = *mediaDir
	}
	if *outputDir != "" {
		config.OutputFolder = *outputDir
	}
	if *language != "" {
		config.Language = *language
	}
	if *asrService != "" {
		config.ASRService = *asrService
	}
	if *watchMode {
		config.WatchMode = true
	}
	if config.LogFile == "" {
		config.LogFile = *logFile
	}

	if utils.Log.IsLevelEnabled(logrus.DebugLevel) {
		config.PrintConfig()
	}
	return config
}
