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

package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"campus-assistant/pkg/metrics"
)

// ProviderLimitConfig Provider 维度限流配置（RPM + 并发）。
// 与 API 层按客户端的滑动窗口限流相互独立：这里保护的是上游配额。
type ProviderLimitConfig struct {
	RequestsPerMinute float64
	MaxConcurrent     int
}

// ProviderLimiter 单 Provider 限流器
type ProviderLimiter struct {
	requestLimiter *rate.Limiter
	semaphore      chan struct{}
}

// NewProviderLimiter 创建 Provider 限流器，cfg 为零值时各维度关闭
func NewProviderLimiter(cfg ProviderLimitConfig) *ProviderLimiter {
	l := &ProviderLimiter{}
	if cfg.RequestsPerMinute > 0 {
		rps := cfg.RequestsPerMinute / 60.0
		burst := int(rps * 2)
		if burst < 1 {
			burst = 1
		}
		l.requestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	if cfg.MaxConcurrent > 0 {
		l.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return l
}

// Wait 等待获取执行许可（阻塞直到可以执行或 ctx 取消）
func (l *ProviderLimiter) Wait(ctx context.Context) error {
	if l.requestLimiter != nil {
		if err := l.requestLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}
	if l.semaphore != nil {
		select {
		case l.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发 slot（在调用完成后调用）
func (l *ProviderLimiter) Release() {
	if l.semaphore != nil {
		select {
		case <-l.semaphore:
		default:
		}
	}
}

// RateLimitedClient 包装任意 LLM Client，在真实调用前后执行限流控制
type RateLimitedClient struct {
	inner   Client
	limiter *ProviderLimiter
}

// NewRateLimitedClient 创建带限流的 LLM 客户端。limiter 为 nil 时退化为直接调用。
func NewRateLimitedClient(inner Client, limiter *ProviderLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// ChatWithContext 实现 Client.ChatWithContext，调用前后执行限流并记录耗时
func (c *RateLimitedClient) ChatWithContext(ctx context.Context, messages []Message, tools []ToolDescriptor, options GenerateOptions) (*ChatResult, error) {
	if c.limiter != nil {
		start := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		waited := time.Since(start)
		if waited > 100*time.Millisecond {
			metrics.RateLimitWaitSeconds.WithLabelValues("llm", c.inner.Provider()).Observe(waited.Seconds())
		}
		defer c.limiter.Release()
	}

	start := time.Now()
	result, err := c.inner.ChatWithContext(ctx, messages, tools, options)
	metrics.LLMDuration.WithLabelValues(c.inner.Provider()).Observe(time.Since(start).Seconds())
	return result, err
}

// Model 返回底层 Client 的模型名称
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }
