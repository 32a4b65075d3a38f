// Package pipeline 串联识别、改写、对齐、分组和说话人分配，并缓存最终结果。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/align"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/asr"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/diarize"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/media"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/refine"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/speaker"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/store"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// ErrNoSentences 改写服务没有产出任何句子，本次运行失败且不保存结果
var ErrNoSentences = errors.New("句子整理结果为空")

const (
	defaultMinDuration = 1.0
	defaultMaxDuration = 20.0
)

// ProgressCallback 是进度回调函数，用于通知处理过程的进度
type ProgressCallback func(percent int, message string)

// Request 一次运行的输入
type Request struct {
	AudioPath   string
	Language    string
	MinDuration float64 // 分组后每段的最短时长（秒）
	MaxDuration float64 // 分组后每段的最长时长（秒）
}

// Outcome 一次运行的详细结果
type Outcome struct {
	RunID         string
	Segments      []models.FinalSegment
	FromCache     bool
	StorePath     string
	AudioDuration float64
	SentenceCount int
	LowConfidence int
	Elapsed       time.Duration
}

// Deps 流水线依赖的外部服务，Store 和 Prober 可以为空
type Deps struct {
	ASR         asr.Engine
	Diarizer    diarize.Engine
	Reorganizer refine.Reorganizer
	Merger      refine.Merger
	Store       store.ResultStore
	Prober      media.Prober
}

// Pipeline 字幕对齐流水线。识别和说话人分离模型只有一份，同一实例上的运行串行执行。
type Pipeline struct {
	deps Deps

	// AlignOptions 模糊对齐参数
	AlignOptions align.Options
	// MinSegmentDuration 单调修正时补足的最小时长
	MinSegmentDuration float64
	// Progress 每个阶段开始时回调，可为空
	Progress ProgressCallback

	mu sync.Mutex
}

// New 创建流水线。Diarizer 为空时不做说话人分离。
func New(deps Deps) (*Pipeline, error) {
	if deps.ASR == nil {
		return nil, fmt.Errorf("缺少语音识别引擎")
	}
	if deps.Reorganizer == nil {
		return nil, fmt.Errorf("缺少句子整理服务")
	}
	if deps.Merger == nil {
		return nil, fmt.Errorf("缺少时长分组服务")
	}
	if deps.Diarizer == nil {
		deps.Diarizer = diarize.Noop{}
	}
	return &Pipeline{
		deps:               deps,
		AlignOptions:       align.DefaultOptions(),
		MinSegmentDuration: align.DefaultMinDuration,
	}, nil
}

// Run 处理一个音频文件并返回最终段落。已有持久化结果时直接返回。
func (p *Pipeline) Run(ctx context.Context, req Request) ([]models.FinalSegment, error) {
	outcome, err := p.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	return outcome.Segments, nil
}

// Process 与 Run 相同，额外返回运行信息
func (p *Pipeline) Process(ctx context.Context, req Request) (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.AudioPath == "" {
		return nil, fmt.Errorf("音频路径为空")
	}
	if req.MinDuration <= 0 {
		req.MinDuration = defaultMinDuration
	}
	if req.MaxDuration <= 0 {
		req.MaxDuration = defaultMaxDuration
	}
	if req.MaxDuration < req.MinDuration {
		return nil, fmt.Errorf("最长时长 %.1f 小于最短时长 %.1f", req.MaxDuration, req.MinDuration)
	}

	started := time.Now()
	outcome := &Outcome{RunID: uuid.NewString()}
	log := utils.WithFields(logrus.Fields{
		"run_id":   outcome.RunID,
		"audio":    req.AudioPath,
		"language": req.Language,
	})

	if p.deps.Store != nil {
		p.progress(0, "检查已有结果")
		cached, ok, err := p.deps.Store.Load(req.AudioPath, req.Language)
		if err != nil {
			return nil, err
		}
		if ok {
			log.Info("已存在处理结果，跳过处理")
			outcome.Segments = cached
			outcome.FromCache = true
			outcome.SentenceCount = len(cached)
			if len(cached) > 0 {
				outcome.AudioDuration = cached[len(cached)-1].End
			}
			outcome.Elapsed = time.Since(started)
			p.progress(100, "使用已有结果")
			return outcome, nil
		}
	}

	p.progress(5, "语音识别")
	raw, err := p.deps.ASR.Transcribe(ctx, req.AudioPath, req.Language)
	if err != nil {
		return nil, fmt.Errorf("语音识别失败: %w", err)
	}
	log.WithField("stage", "asr").Infof("识别得到 %d 个段落", len(raw))

	p.progress(30, "构建字符时间轴")
	fixed := align.FixBoundaries(raw)
	timeline, rawText := align.BuildTimeline(fixed)

	p.progress(35, "整理句子")
	sentences, err := p.deps.Reorganizer.Reorganize(ctx, rawText, req.Language)
	if err != nil {
		return nil, fmt.Errorf("句子整理失败: %w", err)
	}
	if len(sentences) == 0 {
		log.WithField("stage", "reorganize").Error("没有得到任何句子，放弃本次处理")
		return nil, ErrNoSentences
	}
	outcome.SentenceCount = len(sentences)

	p.progress(55, "对齐句子时间")
	aligner := align.NewAligner(timeline, p.AlignOptions)
	aligned := align.EnforceMonotonic(aligner.AlignAll(sentences), p.MinSegmentDuration)
	outcome.LowConfidence = aligner.LowConfidenceCount()
	if outcome.LowConfidence > 0 {
		log.WithField("stage", "align").Warnf("%d/%d 个句子匹配置信度低", outcome.LowConfidence, len(sentences))
	}

	p.progress(65, "按时长分组")
	merged, err := p.deps.Merger.Merge(ctx, aligned, refine.MergeOptions{
		Language:    req.Language,
		MinDuration: req.MinDuration,
		MaxDuration: req.MaxDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("时长分组失败: %w", err)
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("时长分组失败: %w", refine.ErrMalformedMerge)
	}

	outcome.AudioDuration = p.audioDuration(ctx, req.AudioPath, fixed, log)
	merged = FixBoundaries(merged, outcome.AudioDuration)

	p.progress(80, "说话人分离")
	turns, err := p.deps.Diarizer.Diarize(ctx, req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("说话人分离失败: %w", err)
	}
	if len(turns) == 0 {
		log.WithField("stage", "speaker").Warn("说话人分离结果为空，输出不带说话人标签")
	}
	outcome.Segments = speaker.Assign(merged, turns)

	if p.deps.Store != nil {
		p.progress(95, "保存结果")
		path, err := p.deps.Store.Save(req.AudioPath, req.Language, outcome.Segments)
		if err != nil {
			return nil, err
		}
		outcome.StorePath = path
	}

	outcome.Elapsed = time.Since(started)
	log.Infof("处理完成: %d 个字幕段, 耗时 %s", len(outcome.Segments), utils.FormatTimeDuration(outcome.Elapsed.Seconds()))
	p.progress(100, "处理完成")
	return outcome, nil
}

// audioDuration 优先使用探测到的音频时长；探测失败或短于识别结果时使用最后一个识别段落的结束时间
func (p *Pipeline) audioDuration(ctx context.Context, audioPath string, raw []models.RawSegment, log *logrus.Entry) float64 {
	var speechEnd float64
	if len(raw) > 0 {
		speechEnd = raw[len(raw)-1].End
	}
	if p.deps.Prober == nil {
		return speechEnd
	}

	d, err := p.deps.Prober.Duration(ctx, audioPath)
	if err != nil {
		log.Warnf("获取音频时长失败，使用识别结果的结束时间: %v", err)
		return speechEnd
	}
	if d < speechEnd {
		log.Warnf("音频时长 %.3fs 短于识别结果 %.3fs", d, speechEnd)
		return speechEnd
	}
	return d
}

func (p *Pipeline) progress(percent int, message string) {
	if p.Progress != nil {
		p.Progress(percent, message)
	}
}
