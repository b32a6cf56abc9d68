package tool

import (
	"context"
)

// Schema 表示工具的 JSON Schema（供 LLM function-calling 使用）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result 工具执行结果。执行失败记录在 Err 中作为数据返回，
// 不作为 error 上抛：单个工具失败不应中断编排循环。
type Result struct {
	Content string `json:"content"`
	Err     string `json:"error,omitempty"`
}

// OK 执行是否成功
func (r Result) OK() bool { return r.Err == "" }

// Tool 编排循环可执行的外部能力
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, input map[string]any) (Result, error)
}
