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

// Package chat 实现对话请求的编排管线：
// 清洗 -> 历史校验 -> 指纹 -> 缓存探测 -> 提示词组装 -> 工具循环 -> 规范化 -> 回写缓存。
package chat

import (
	"context"
	"errors"
	"fmt"

	"campus-assistant/internal/knowledge"
	"campus-assistant/internal/pipeline/common"
	"campus-assistant/internal/sanitize"
	"campus-assistant/pkg/log"
	"campus-assistant/pkg/metrics"
)

// Service 对话管线服务，持有编排各阶段所需的协作者
type Service struct {
	orchestrator      *Orchestrator
	cache             *ResponseCache
	dictionary        *knowledge.Dictionary
	systemPrompt      string
	fingerprintWindow int
	limits            sanitize.Options
	logger            *log.Logger
}

// ServiceOptions Service 可调参数，上限项零值回落各自默认
type ServiceOptions struct {
	SystemPrompt      string
	FingerprintWindow int
	MessageMaxLen     int
	HistoryLimit      int
}

// NewService 创建对话管线服务
func NewService(orchestrator *Orchestrator, cache *ResponseCache, dict *knowledge.Dictionary, opts ServiceOptions, logger *log.Logger) *Service {
	if dict == nil {
		dict = knowledge.Default()
	}
	if opts.FingerprintWindow <= 0 {
		opts.FingerprintWindow = DefaultFingerprintWindow
	}
	return &Service{
		orchestrator:      orchestrator,
		cache:             cache,
		dictionary:        dict,
		systemPrompt:      opts.SystemPrompt,
		fingerprintWindow: opts.FingerprintWindow,
		limits: sanitize.Options{
			MessageMaxLen: opts.MessageMaxLen,
			HistoryLimit:  opts.HistoryLimit,
		},
		logger: logger,
	}
}

// Handle 处理一次对话请求，所有路径收敛到 *common.ChatResponse。
// 失败返回 *common.PipelineError，transport 层据此映射状态码。
func (s *Service) Handle(ctx context.Context, req *common.ChatRequest) (*common.ChatResponse, error) {
	// 清洗：消息清洗后为空视为无效输入
	message := sanitize.TextStringWith(req.Message, s.limits)
	if message == "" {
		metrics.ChatRequestTotal.WithLabelValues("rejected").Inc()
		return nil, common.NewPipelineError("sanitize", "消息为空或仅含被过滤内容",
			fmt.Errorf("%w: 空消息", common.ErrInvalidInput))
	}

	// 历史校验：任何形态的输入都归一为合法序列
	history := sanitize.HistoryWith(req.History, s.limits)

	// 指纹 + 缓存探测（no_cache 请求整体旁路缓存）
	fingerprint := Fingerprint(history, message, s.fingerprintWindow)
	if !req.NoCache {
		cached, found, err := s.cache.Lookup(ctx, fingerprint)
		if err != nil {
			// 缓存故障降级为未命中，不拦截请求
			s.logger.Warn("缓存查询failed，按未命中处理", "error", err)
		}
		if found {
			s.cache.RecordHit()
			metrics.CacheEventTotal.WithLabelValues("hit").Inc()
			metrics.ChatRequestTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
		s.cache.RecordMiss()
		metrics.CacheEventTotal.WithLabelValues("miss").Inc()
	}

	// 提示词组装 + 工具循环
	messages := AssemblePrompt(s.systemPrompt, s.dictionary.RenderPrompt(), history, message)
	text, err := s.orchestrator.Run(ctx, messages)
	if err != nil {
		metrics.ChatRequestTotal.WithLabelValues("failed").Inc()
		return nil, s.classifyUpstreamError(err)
	}

	// 规范化：畸形模型输出在此降级，永不外泄
	resp := Normalize(text)

	if !req.NoCache {
		if err := s.cache.StoreResponse(ctx, fingerprint, resp); err != nil {
			// 回写失败不影响本次响应
			s.logger.Warn("缓存回写failed", "error", err)
		} else {
			metrics.CacheEventTotal.WithLabelValues("save").Inc()
		}
	}

	metrics.ChatRequestTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

// CacheStats 暴露缓存运行统计（运维端点用）
func (s *Service) CacheStats(ctx context.Context) (CacheStats, error) {
	return s.cache.Stats(ctx)
}

// classifyUpstreamError 将编排错误归类为管线错误
func (s *Service) classifyUpstreamError(err error) error {
	switch {
	case errors.Is(err, common.ErrUpstreamCapacity):
		return common.NewPipelineError("orchestrate", "上游模型配额受限", err)
	case errors.Is(err, common.ErrUpstreamTransport):
		return common.NewPipelineError("orchestrate", "上游模型不可达", err)
	default:
		return common.NewPipelineError("orchestrate", "模型调用failed",
			fmt.Errorf("%w: %v", common.ErrUpstreamTransport, err))
	}
}
