package asr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/models"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// Auto 按权重和可用性自动选择引擎
const Auto = "auto"

// ServiceStats 服务统计数据
type ServiceStats struct {
	SuccessCount int  `json:"success_count"`
	TotalCount   int  `json:"total_count"`
	Available    bool `json:"available"`
	Weight       int  `json:"weight"`
}

// Selector 管理已注册的识别引擎并记录调用结果。
// 成功率过低的引擎在 auto 模式下暂时不再被选中。
type Selector struct {
	mu      sync.RWMutex
	engines map[string]Engine
	stats   map[string]*ServiceStats
	order   []string
}

// NewSelector 创建引擎选择器
func NewSelector() *Selector {
	return &Selector{
		engines: make(map[string]Engine),
		stats:   make(map[string]*ServiceStats),
	}
}

// Register 注册识别引擎，同名引擎会被覆盖
func (s *Selector) Register(name string, engine Engine, weight int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.engines[name]; !exists {
		s.order = append(s.order, name)
	}
	s.engines[name] = engine
	s.stats[name] = &ServiceStats{Available: true, Weight: weight}
	utils.Debug("注册ASR服务: %s, 权重: %d", name, weight)
}

// ReportResult 报告服务调用结果
func (s *Selector) ReportResult(name string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, exists := s.stats[name]
	if !exists {
		return
	}
	if success {
		stat.SuccessCount++
	}
	stat.TotalCount++

	if !success && stat.TotalCount > 5 && float64(stat.SuccessCount)/float64(stat.TotalCount) < 0.2 {
		stat.Available = false
		utils.Warn("ASR服务 %s 成功率过低，临时禁用", name)
	} else if success && !stat.Available {
		stat.Available = true
		utils.Info("ASR服务 %s 恢复可用", name)
	}
}

// Select 返回指定名称的引擎；名称为 auto 时选择可用引擎中权重最高的，权重相同按注册顺序
func (s *Selector) Select(name string) (string, Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name != Auto {
		engine, ok := s.engines[name]
		if !ok {
			return "", nil, fmt.Errorf("未知的ASR服务: %s", name)
		}
		return name, engine, nil
	}

	candidates := make([]string, 0, len(s.order))
	for _, n := range s.order {
		if s.stats[n].Available {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return "", nil, fmt.Errorf("没有可用的ASR服务")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return s.stats[candidates[i]].Weight > s.stats[candidates[j]].Weight
	})
	return candidates[0], s.engines[candidates[0]], nil
}

// Engine 返回一个按名称选择引擎并自动上报结果的 Engine
func (s *Selector) Engine(name string) Engine {
	return &selectedEngine{selector: s, name: name}
}

// GetStats 获取服务使用统计信息
func (s *Selector) GetStats() map[string]ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ServiceStats, len(s.stats))
	for name, stat := range s.stats {
		out[name] = *stat
	}
	return out
}

type selectedEngine struct {
	selector *Selector
	name     string
}

func (e *selectedEngine) Transcribe(ctx context.Context, audioPath, language string) ([]models.RawSegment, error) {
	name, engine, err := e.selector.Select(e.name)
	if err != nil {
		return nil, err
	}
	segments, err := engine.Transcribe(ctx, audioPath, language)
	e.selector.ReportResult(name, err == nil && len(segments) > 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return segments, nil
}
