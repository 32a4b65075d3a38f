// Package llm 封装兼容 OpenAI chat/completions 协议的大模型调用。
package llm

import "context"

// Completer 一次性对话补全：系统提示词加用户内容，返回模型回复文本
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// CompleterFunc 让普通函数实现 Completer，测试中常用
type CompleterFunc func(ctx context.Context, systemPrompt, userContent string) (string, error)

// Complete 调用 f 本身
func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	return f(ctx, systemPrompt, userContent)
}
