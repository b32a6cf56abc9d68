package llm

import (
	"context"

	"campus-assistant/internal/tool"
)

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ToolDescriptor 暴露给模型的工具描述
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  tool.Schema `json:"parameters"`
}

// ToolCall 模型请求的一次工具调用
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResult 一次模型调用的产出：自由文本，或一组工具调用请求（可同时存在）
type ChatResult struct {
	Text      string
	ToolCalls []ToolCall
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Client LLM 客户端接口。模型服务是外部协作者：
// 输入上下文与可用工具描述，输出文本或工具调用请求。
type Client interface {
	// ChatWithContext 携带上下文聊天，tools 可为空
	ChatWithContext(ctx context.Context, messages []Message, tools []ToolDescriptor, options GenerateOptions) (*ChatResult, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}
