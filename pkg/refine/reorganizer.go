// Package refine 通过文本服务改写识别文本并按时长重新分组。
package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/llm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/textnorm"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

const reorganizePrompt = `你是一个专业的字幕整理助手。下面是一段语音识别的原始文本，语言为 %s。
请把它整理成通顺、自然的句子：
1. 补全标点，每句话以句号、问号或感叹号结尾；
2. 修正明显的识别错误和口误，但不要增删内容、不要总结、不要翻译；
3. 保持原文的先后顺序；
4. 只输出整理后的正文，不要任何解释或标题。`

// Reorganizer 把原始识别文本改写为有序句子列表
type Reorganizer interface {
	Reorganize(ctx context.Context, rawText, language string) ([]string, error)
}

// LLMReorganizer 基于对话补全服务的句子整理
type LLMReorganizer struct {
	completer llm.Completer
}

// NewReorganizer 创建句子整理器
func NewReorganizer(completer llm.Completer) *LLMReorganizer {
	return &LLMReorganizer{completer: completer}
}

// Reorganize 调用文本服务改写原文，做简繁转换和空白压缩后分句。
// 服务返回空文本时返回空列表和 nil 错误，由调用方判定失败；服务调用错误原样向上返回。
func (r *LLMReorganizer) Reorganize(ctx context.Context, rawText, language string) ([]string, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, nil
	}

	log := utils.WithFields(logrus.Fields{"stage": "reorganize", "language": language})
	log.Debugf("发送 %d 个字符进行句子整理", len([]rune(rawText)))

	reply, err := r.completer.Complete(ctx, fmt.Sprintf(reorganizePrompt, language), rawText)
	if err != nil {
		return nil, fmt.Errorf("句子整理服务调用失败: %w", err)
	}

	text := strings.TrimSpace(stripCodeFence(reply))
	if text == "" {
		log.Warn("句子整理服务返回空文本")
		return nil, nil
	}

	converter, err := textnorm.NewScriptConverter(language)
	if err != nil {
		log.Warnf("简繁转换不可用，保留原文: %v", err)
	} else if converted, err := converter.Convert(text); err != nil {
		log.Warnf("简繁转换失败，保留原文: %v", err)
	} else {
		text = converted
	}

	sentences := textnorm.SplitSentences(textnorm.CollapseWhitespace(text))
	log.Infof("整理得到 %d 个句子", len(sentences))
	return sentences, nil
}

// stripCodeFence 去掉模型回复外层的 markdown 代码块标记
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// 去掉语言标记所在的首行
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
