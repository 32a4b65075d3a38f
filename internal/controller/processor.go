package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/ccp-p/asr-media-cli/caption-aligner/internal/ui"
	"github.com/ccp-p/asr-media-cli/caption-aligner/internal/watcher"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/asr"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/audio"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/diarize"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/export"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/llm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/media"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/pipeline"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/refine"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/scanner"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/store"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// ASR 服务权重，auto 模式优先选择权重高的服务
const (
	kuaishouWeight = 10
	bcutWeight     = 30
	fileWeight     = 5
)

// 视频提取出的音频放在输出目录下的子目录
const extractedAudioDir = "audio"

// ProcessorController 处理器控制器，协调各个组件工作
type ProcessorController struct {
	// 配置
	Config *models.Config

	// UI组件
	ProgressManager *ui.ProgressManager

	// 处理组件
	Pipeline     *pipeline.Pipeline
	ASRSelector  *asr.Selector
	Store        *store.JSONStore
	Exporter     *export.Exporter
	Extractor    *audio.AudioExtractor
	ErrorHandler *utils.ErrorHandler

	// 上下文控制
	ctx        context.Context
	cancelFunc context.CancelFunc

	// 状态数据
	Stats struct {
		StartTime       time.Time
		TotalFiles      int
		SuccessfulFiles int
		FailedFiles     int
		CachedFiles     int
	}

	// 资源管理
	cleanup []func() // 清理函数列表
	mu      sync.Mutex
	runMu   sync.Mutex // 进度回调与运行绑定，逐个文件处理
}

// NewProcessorController 根据配置创建所有服务并组装流水线
func NewProcessorController(config *models.Config) (*ProcessorController, error) {
	selector := asr.NewSelector()
	registerASRServices(selector)

	deps := pipeline.Deps{
		ASR:      selector.Engine(config.ASRService),
		Diarizer: newDiarizer(config),
		Store:    store.NewJSONStore(config.OutputFolder),
	}

	if config.LLMAPIKey == "" {
		utils.Warn("未配置文本服务密钥（%s），句子整理和时长分组可能失败", models.EnvLLMAPIKey)
	}
	completer := llm.NewClient(config.LLMAPIKey, config.LLMBaseURL, config.LLMModel)
	deps.Reorganizer = refine.NewReorganizer(completer)
	merger := refine.NewMerger(completer)
	merger.SkipInBounds = config.SkipMergeInBounds
	deps.Merger = merger

	// 没有 ffprobe 时以识别结果的最后时间作为音频时长
	if probe := media.NewFFProbe(); probe.Available() {
		deps.Prober = probe
	} else {
		utils.Warn("未找到 ffprobe，音频时长将取识别结果的结束时间")
	}

	pc, err := NewProcessorControllerWithDeps(config, deps)
	if err != nil {
		return nil, err
	}
	pc.ASRSelector = selector
	return pc, nil
}

// NewProcessorControllerWithDeps 使用给定的服务创建控制器，Store 为空时使用输出目录
func NewProcessorControllerWithDeps(config *models.Config, deps pipeline.Deps) (*ProcessorController, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	jsonStore, ok := deps.Store.(*store.JSONStore)
	if deps.Store == nil {
		jsonStore = store.NewJSONStore(config.OutputFolder)
		deps.Store = jsonStore
		ok = true
	}

	p, err := pipeline.New(deps)
	if err != nil {
		return nil, fmt.Errorf("创建处理流水线失败: %w", err)
	}
	p.AlignOptions.SearchMargin = config.SearchMargin
	p.AlignOptions.Threshold = config.MatchThreshold
	p.MinSegmentDuration = config.MinSegmentDuration

	ctx, cancel := context.WithCancel(context.Background())
	pc := &ProcessorController{
		Config:          config,
		ProgressManager: ui.NewProgressManager(config.ShowProgress),
		Pipeline:        p,
		Exporter:        export.NewExporter(config.OutputFolder),
		Extractor:       audio.NewAudioExtractor(filepath.Join(config.OutputFolder, extractedAudioDir)),
		ErrorHandler:    utils.NewErrorHandler(config.MaxRetries, config.RetryDelay),
		ctx:             ctx,
		cancelFunc:      cancel,
	}
	if ok {
		pc.Store = jsonStore
	}
	pc.Extractor.ProgressManager = pc.ProgressManager
	pc.Stats.StartTime = time.Now()
	return pc, nil
}

// 注册ASR服务
func registerASRServices(selector *asr.Selector) {
	selector.Register("kuaishou", asr.NewKuaiShouEngine(), kuaishouWeight)
	selector.Register("bcut", asr.NewBcutEngine(), bcutWeight)
	selector.Register("file", asr.NewFileEngine(), fileWeight)
}

func newDiarizer(config *models.Config) diarize.Engine {
	if config.DiarizationURL == "" {
		return diarize.Noop{}
	}
	return diarize.NewHTTPEngine(config.DiarizationURL)
}

// Context 返回控制器的上下文，收到中断信号后取消
func (pc *ProcessorController) Context() context.Context {
	return pc.ctx
}

// Transcribe 处理单个音频文件，失败时按配置重试。
// 句子整理为空、分组结果不合法、识别无结果和取消不会重试。
func (pc *ProcessorController) Transcribe(ctx context.Context, audioPath, language string) (*models.Result, []models.FinalSegment, error) {
	pc.runMu.Lock()
	defer pc.runMu.Unlock()

	if language == "" {
		language = pc.Config.Language
	}
	base := filepath.Base(audioPath)

	mediaPath := audioPath
	if _, isVideo := scanner.NewMediaScanner().Classify(mediaPath); isVideo {
		extracted, _, err := pc.Extractor.ExtractAudioFromVideo(ctx, mediaPath)
		if err != nil {
			return nil, nil, err
		}
		audioPath = extracted
	}

	barID := "align_" + base
	pc.ProgressManager.CreateProgressBar(barID, 100, "字幕对齐 "+base, "准备中...")
	pc.Pipeline.Progress = pipeline.ProgressCallback(pc.ProgressManager.Callback(barID, "字幕对齐 "+base))
	defer func() { pc.Pipeline.Progress = nil }()

	var outcome *pipeline.Outcome
	err := pc.ErrorHandler.RetryIf("字幕对齐 "+base, func() error {
		var runErr error
		outcome, runErr = pc.Pipeline.Process(ctx, pipeline.Request{
			AudioPath:   audioPath,
			Language:    language,
			MinDuration: pc.Config.MinDuration,
			MaxDuration: pc.Config.MaxDuration,
		})
		return runErr
	}, retryable)
	if err != nil {
		pc.ProgressManager.CompleteProgressBar(barID, "处理失败")
		return nil, nil, err
	}

	outputs, err := pc.Exporter.Export(outcome.Segments, audioPath, language, pc.exportFormats()...)
	if err != nil {
		pc.ProgressManager.CompleteProgressBar(barID, "导出失败")
		return nil, nil, fmt.Errorf("导出字幕失败: %w", err)
	}
	if outcome.StorePath != "" {
		outputs["result"] = outcome.StorePath
	}
	pc.ProgressManager.CompleteProgressBar(barID, "处理完成")

	result := &models.Result{
		RunID:         outcome.RunID,
		FilePath:      mediaPath,
		Language:      language,
		FromCache:     outcome.FromCache,
		OutputFiles:   outputs,
		SegmentCount:  len(outcome.Segments),
		DurationMs:    int64(outcome.AudioDuration * 1000),
		ProcessTimeMs: outcome.Elapsed.Milliseconds(),
	}
	return result, outcome.Segments, nil
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, pipeline.ErrNoSentences),
		errors.Is(err, refine.ErrMalformedMerge),
		errors.Is(err, asr.ErrNoSegments),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (pc *ProcessorController) exportFormats() []string {
	formats := []string{"json"}
	if pc.Config.ExportSRT {
		formats = append(formats, "srt")
	}
	if pc.Config.ExportVTT {
		formats = append(formats, "vtt")
	}
	return formats
}

// ProcessFile 处理单个文件并更新统计，实现 watcher.MediaProcessor
func (pc *ProcessorController) ProcessFile(path string) error {
	result, _, err := pc.Transcribe(pc.ctx, path, pc.Config.Language)

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.Stats.TotalFiles++
	if err != nil {
		pc.Stats.FailedFiles++
		color.Red("处理失败: %s - %v", filepath.Base(path), err)
		return err
	}
	pc.Stats.SuccessfulFiles++
	if result.FromCache {
		pc.Stats.CachedFiles++
	}
	pc.printResult(result)
	return nil
}

func (pc *ProcessorController) printResult(result *models.Result) {
	if result.FromCache {
		color.Cyan("已有结果: %s", filepath.Base(result.FilePath))
	} else {
		color.Green("处理成功: %s", filepath.Base(result.FilePath))
	}
	fmt.Printf("字幕段数: %d, 音频时长: %s, 处理用时: %s\n",
		result.SegmentCount,
		utils.FormatTimeDuration(float64(result.DurationMs)/1000),
		utils.FormatTimeDuration(float64(result.ProcessTimeMs)/1000))

	kinds := make([]string, 0, len(result.OutputFiles))
	for kind := range result.OutputFiles {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("- %s: %s\n", kind, result.OutputFiles[kind])
	}
}

// IsRecognizedFile 文件已有持久化结果时返回 true，实现 watcher.MediaProcessor
func (pc *ProcessorController) IsRecognizedFile(path string) bool {
	if pc.Store == nil {
		return false
	}
	if _, isVideo := scanner.NewMediaScanner().Classify(path); isVideo {
		path = pc.Extractor.AudioPath(path)
		if !utils.CheckFileExists(path) {
			return false
		}
	}
	storePath, err := pc.Store.Path(path, pc.Config.Language)
	if err != nil {
		return false
	}
	return utils.CheckFileExists(storePath)
}

// ListMediaFiles 列出媒体文件夹中的音视频文件，按文件名排序
func (pc *ProcessorController) ListMediaFiles() ([]scanner.MediaFile, error) {
	files, err := scanner.NewMediaScanner().ScanDirectory(pc.Config.MediaFolder, pc.IsRecognizedFile)
	if err != nil {
		return nil, fmt.Errorf("扫描媒体文件夹失败: %w", err)
	}
	return files, nil
}

// ProcessMedia 依次处理媒体文件夹中的所有文件，单个文件失败不影响其余文件。
// 已有结果的文件直接使用缓存并重新导出。
func (pc *ProcessorController) ProcessMedia() error {
	files, err := pc.ListMediaFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		utils.Info("媒体文件夹中没有待处理的文件: %s", pc.Config.MediaFolder)
		return nil
	}

	fmt.Println("\n找到以下媒体文件:")
	fmt.Println("--------------------")
	for i, file := range files {
		fileType := "音频"
		if file.IsVideo {
			fileType = "视频"
		}
		status := ""
		if file.Processed {
			status = " (已有结果)"
		}
		fmt.Printf("%d. [%s] %s (%.2f MB)%s\n", i+1, fileType, file.Name, float64(file.Size)/(1024*1024), status)
	}
	fmt.Println("--------------------")
	utils.Info("其中 %d 个文件需要重新对齐", len(scanner.FilterNewFiles(files)))

	for i, file := range files {
		select {
		case <-pc.ctx.Done():
			return pc.ctx.Err()
		default:
		}
		fmt.Printf("\n[%d/%d] 开始处理: %s\n", i+1, len(files), file.Name)
		_ = pc.ProcessFile(file.Path)
	}
	return nil
}

// StartWatchMode 监控媒体文件夹，阻塞直到收到中断信号
func (pc *ProcessorController) StartWatchMode() error {
	mediaWatcher := watcher.NewMediaWatcher(pc.Config.MediaFolder, pc.Config.InboxFolder, pc, pc.ProgressManager)
	if err := mediaWatcher.Start(); err != nil {
		return err
	}
	pc.addCleanup(mediaWatcher.Stop)

	utils.Info("监控已启动，按Ctrl+C退出...")
	return pc.waitForTermination()
}

// PrintStats 输出处理统计和 ASR 服务状态
func (pc *ProcessorController) PrintStats() {
	pc.mu.Lock()
	stats := pc.Stats
	pc.mu.Unlock()

	fmt.Println()
	color.Cyan("处理统计:")
	fmt.Printf("总文件数: %d, 成功: %d (已有结果 %d), 失败: %d, 总用时: %s\n",
		stats.TotalFiles, stats.SuccessfulFiles, stats.CachedFiles, stats.FailedFiles,
		utils.FormatTimeDuration(time.Since(stats.StartTime).Seconds()))

	if pc.ASRSelector != nil {
		utils.Info("ASR服务统计信息:")
		serviceStats := pc.ASRSelector.GetStats()
		names := make([]string, 0, len(serviceStats))
		for name := range serviceStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			stat := serviceStats[name]
			utils.Info("%s: 调用次数=%d, 成功=%d, 可用=%v", name, stat.TotalCount, stat.SuccessCount, stat.Available)
		}
	}
	pc.ErrorHandler.PrintErrorStats()
}

// 添加清理函数
func (pc *ProcessorController) addCleanup(cleanup func()) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cleanup = append(pc.cleanup, cleanup)
}

// Cleanup 逆序执行所有清理函数
func (pc *ProcessorController) Cleanup() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for i := len(pc.cleanup) - 1; i >= 0; i-- {
		pc.cleanup[i]()
	}
	pc.cleanup = nil
	pc.cancelFunc()

	if pc.ProgressManager != nil {
		pc.ProgressManager.CloseAll("已完成")
	}
	utils.DisableTerminalProgress()
}

// SetupSignalHandlers 收到中断信号时取消上下文
func (pc *ProcessorController) SetupSignalHandlers() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-c:
			utils.Info("接收到中断信号，正在停止...")
			pc.cancelFunc()
		case <-pc.ctx.Done():
		}
		signal.Stop(c)
	}()
}

// 等待终止信号
func (pc *ProcessorController) waitForTermination() error {
	<-pc.ctx.Done()
	return nil
}
