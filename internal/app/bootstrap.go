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

// Package app 负责组件装配：配置 -> 日志 -> 缓存 -> 模型客户端 -> 工具 -> 管线。
package app

import (
	"fmt"
	"time"

	pkgerrors "campus-assistant/pkg/errors"

	"campus-assistant/internal/knowledge"
	"campus-assistant/internal/model/llm"
	"campus-assistant/internal/pipeline/chat"
	"campus-assistant/internal/ratelimit"
	"campus-assistant/internal/storage/cache"
	"campus-assistant/internal/tool/builtin"
	"campus-assistant/internal/tool/registry"
	"campus-assistant/pkg/config"
	"campus-assistant/pkg/log"
	"campus-assistant/pkg/utils"
)

// Bootstrap 装配完成的应用依赖
type Bootstrap struct {
	Config     *config.Config
	Logger     *log.Logger
	CacheStore cache.Store
	Service    *chat.Service
	Limiter    *ratelimit.Limiter
}

// NewBootstrap 按配置装配全部组件
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "初始化日志failed")
	}

	store, err := cache.NewCache(cfg.Storage.Cache)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "初始化响应缓存failed")
	}
	responseCache := chat.NewResponseCache(store,
		utils.ParseDurationOr(cfg.Storage.Cache.TTL, chat.DefaultCacheTTL))

	client, err := NewLLMClientFromConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if limits, ok := cfg.RateLimits.LLM[client.Provider()]; ok {
		providerLimiter := llm.NewProviderLimiter(llm.ProviderLimitConfig{
			RequestsPerMinute: limits.RequestsPerMinute,
			MaxConcurrent:     limits.MaxConcurrent,
		})
		client = llm.NewRateLimitedClient(client, providerLimiter)
		logger.Info("Provider 限流已启用",
			"provider", client.Provider(),
			"requests_per_minute", limits.RequestsPerMinute,
			"max_concurrent", limits.MaxConcurrent)
	}

	reg := registry.New()
	reg.Register(builtin.NewWebFetchTool(
		utils.ParseDurationOr(cfg.Chat.FetchTimeout, builtin.DefaultFetchTimeout),
		utils.DefaultInt(cfg.Chat.FetchMaxChars, builtin.DefaultFetchMaxChars),
	))

	options := generateOptionsFromConfig(cfg)
	orchestrator := chat.NewOrchestrator(client, reg,
		utils.DefaultInt(cfg.Chat.MaxToolIterations, chat.DefaultMaxToolIterations),
		options, logger)

	dict := knowledge.FromConfig(cfg.Knowledge.Resources)
	service := chat.NewService(orchestrator, responseCache, dict, chat.ServiceOptions{
		SystemPrompt:      cfg.Chat.SystemPrompt,
		FingerprintWindow: cfg.Chat.FingerprintWindow,
		MessageMaxLen:     cfg.Chat.MessageMaxLen,
		HistoryLimit:      cfg.Chat.HistoryLimit,
	}, logger)

	var limiter *ratelimit.Limiter
	if cfg.API.Middleware.RateLimit {
		limiter = ratelimit.New(
			utils.ParseDurationOr(cfg.API.Middleware.RateLimitWindow, ratelimit.DefaultWindow),
			utils.DefaultInt(cfg.API.Middleware.RateLimitMax, ratelimit.DefaultMaxPerWindow),
		)
		limiter.StartSweep(ratelimit.DefaultSweepInterval)
	}

	logger.Info("组件装配完成",
		"cache_type", utils.CoalesceString(cfg.Storage.Cache.Type, "memory"),
		"llm_provider", client.Provider(),
		"llm_model", client.Model(),
		"rate_limit", cfg.API.Middleware.RateLimit)

	return &Bootstrap{
		Config:     cfg,
		Logger:     logger,
		CacheStore: store,
		Service:    service,
		Limiter:    limiter,
	}, nil
}

// NewLLMClientFromConfig 按默认 Provider 配置创建 LLM 客户端。
// 目前所有 Provider 都走 OpenAI 兼容协议，base_url 区分实际后端。
func NewLLMClientFromConfig(cfg *config.Config) (llm.Client, error) {
	providerName := utils.CoalesceString(cfg.Model.Defaults.LLM, "openai")
	provider, ok := cfg.Model.LLM.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("未配置模型提供商: %s", providerName)
	}

	modelName := ""
	for _, info := range provider.Models {
		modelName = info.Name
		break
	}

	timeout := utils.ParseDurationOr(cfg.Chat.LLMTimeout, 15*time.Second)
	client, err := llm.NewOpenAIClientWithBaseURL(modelName, provider.APIKey, provider.BaseURL, timeout)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "初始化 LLM 客户端failed")
	}
	return client, nil
}

// generateOptionsFromConfig 从默认 Provider 的首个模型取生成参数
func generateOptionsFromConfig(cfg *config.Config) llm.GenerateOptions {
	providerName := utils.CoalesceString(cfg.Model.Defaults.LLM, "openai")
	provider, ok := cfg.Model.LLM.Providers[providerName]
	if !ok {
		return llm.GenerateOptions{}
	}
	for _, info := range provider.Models {
		return llm.GenerateOptions{
			Temperature: info.Temperature,
			MaxTokens:   info.MaxTokens,
		}
	}
	return llm.GenerateOptions{}
}
