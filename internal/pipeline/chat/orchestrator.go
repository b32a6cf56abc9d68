// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-assistant/internal/model/llm"
	"campus-assistant/internal/pipeline/common"
	"campus-assistant/internal/tool/registry"
	"campus-assistant/pkg/log"
	"campus-assistant/pkg/metrics"
)

// DefaultMaxToolIterations 单次请求允许的模型调用轮数上限
const DefaultMaxToolIterations = 3

// OrchestratorState 编排循环状态
type OrchestratorState string

const (
	StateInvoking           OrchestratorState = "invoking"
	StateAwaitingToolResult OrchestratorState = "awaiting_tool_result"
	StateDone               OrchestratorState = "done"
	StateFailed             OrchestratorState = "failed"
)

// Orchestrator 工具调用编排器：驱动 模型调用 -> 工具执行 -> 再调用 的有界循环。
// 工具层面的失败作为数据回灌给模型（不终止循环），传输层失败才终止。
type Orchestrator struct {
	client        llm.Client
	registry      *registry.Registry
	maxIterations int
	options       llm.GenerateOptions
	logger        *log.Logger
}

// NewOrchestrator 创建编排器，maxIterations <= 0 时默认 3
func NewOrchestrator(client llm.Client, reg *registry.Registry, maxIterations int, options llm.GenerateOptions, logger *log.Logger) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxToolIterations
	}
	return &Orchestrator{
		client:        client,
		registry:      reg,
		maxIterations: maxIterations,
		options:       options,
		logger:        logger,
	}
}

// toolOutcome 回灌给模型的单次工具执行结果
type toolOutcome struct {
	Tool    string `json:"tool"`
	OK      bool   `json:"ok"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Run 执行编排循环，返回模型最终文本。
// 达到轮数上限时：有可用文本则正常结束返回该文本，否则失败。
func (o *Orchestrator) Run(ctx context.Context, messages []llm.Message) (string, error) {
	descriptors := o.toolDescriptors()
	conversation := make([]llm.Message, len(messages))
	copy(conversation, messages)

	lastText := ""

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		o.transition(StateInvoking, iteration)
		result, err := o.client.ChatWithContext(ctx, conversation, descriptors, o.options)
		if err != nil {
			o.transition(StateFailed, iteration)
			o.logger.Error("模型调用failed", "iteration", iteration, "error", err)
			return "", err
		}
		if result.Text != "" {
			lastText = result.Text
		}

		if len(result.ToolCalls) == 0 {
			o.transition(StateDone, iteration)
			return lastText, nil
		}

		o.transition(StateAwaitingToolResult, iteration)
		outcomes := o.executeToolCalls(ctx, result.ToolCalls)

		// 工具结果序列化后作为新的 user 轮回灌，继续下一轮模型调用
		raw, _ := json.Marshal(outcomes)
		if result.Text != "" {
			conversation = append(conversation, llm.Message{Role: "assistant", Content: result.Text})
		}
		conversation = append(conversation, llm.Message{
			Role:    common.RoleUser,
			Content: "工具执行结果：\n" + string(raw),
		})
	}

	// 轮数耗尽：降级到最近一次可用文本
	if lastText != "" {
		o.transition(StateDone, o.maxIterations)
		o.logger.Warn("工具调用轮数耗尽，使用最近一次模型文本", "max_iterations", o.maxIterations)
		return lastText, nil
	}
	o.transition(StateFailed, o.maxIterations)
	return "", fmt.Errorf("工具调用轮数耗尽且无可用回复: %w", common.ErrUpstreamTransport)
}

func (o *Orchestrator) transition(state OrchestratorState, iteration int) {
	o.logger.Debug("编排状态", "state", string(state), "iteration", iteration)
}

// executeToolCalls 逐个执行本轮工具调用，彼此独立，单个失败不影响其余
func (o *Orchestrator) executeToolCalls(ctx context.Context, calls []llm.ToolCall) []toolOutcome {
	outcomes := make([]toolOutcome, 0, len(calls))
	for _, call := range calls {
		t, ok := o.registry.Get(call.Name)
		if !ok {
			outcomes = append(outcomes, toolOutcome{Tool: call.Name, OK: false, Error: "未知工具"})
			continue
		}

		start := time.Now()
		res, err := t.Execute(ctx, call.Arguments)
		metrics.ToolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			// 工具实现违反约定上抛了 error，同样降级为结果数据
			outcomes = append(outcomes, toolOutcome{Tool: call.Name, OK: false, Error: err.Error()})
			continue
		}
		if !res.OK() {
			o.logger.Warn("工具执行failed", "tool", call.Name, "error", res.Err)
			outcomes = append(outcomes, toolOutcome{Tool: call.Name, OK: false, Error: res.Err})
			continue
		}
		outcomes = append(outcomes, toolOutcome{Tool: call.Name, OK: true, Content: res.Content})
	}
	return outcomes
}

// toolDescriptors 将注册表内容转换为暴露给模型的工具描述
func (o *Orchestrator) toolDescriptors() []llm.ToolDescriptor {
	tools := o.registry.List()
	descriptors := make([]llm.ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		descriptors = append(descriptors, llm.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return descriptors
}
