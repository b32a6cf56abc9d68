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
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"campus-assistant/internal/pipeline/common"
	"campus-assistant/internal/storage/cache"
)

// DefaultCacheTTL 响应缓存条目的默认存活时长
const DefaultCacheTTL = 24 * time.Hour

// ResponseCache 指纹到规范化响应的缓存。Lookup 本身不计数：
// 命中/未命中由调用方通过 RecordHit/RecordMiss 上报，
// 保证读写操作无统计副作用。
type ResponseCache struct {
	store cache.Store
	ttl   time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	saves  atomic.Int64
}

// CacheStats 缓存运行统计
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Saves   int64 `json:"saves"`
	Entries int   `json:"entries"`
}

// NewResponseCache 创建响应缓存，ttl <= 0 时使用默认 24h
func NewResponseCache(store cache.Store, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{store: store, ttl: ttl}
}

// Lookup 按指纹查找已缓存的响应，缺失返回 (nil, false, nil)
func (c *ResponseCache) Lookup(ctx context.Context, fingerprint string) (*common.ChatResponse, bool, error) {
	var resp common.ChatResponse
	err := c.store.Get(ctx, fingerprint, &resp)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("查询响应缓存failed: %w", err)
	}
	return &resp, true, nil
}

// StoreResponse 写入响应并累加 saves 计数
func (c *ResponseCache) StoreResponse(ctx context.Context, fingerprint string, resp *common.ChatResponse) error {
	if err := c.store.Set(ctx, fingerprint, resp, c.ttl); err != nil {
		return fmt.Errorf("写入响应缓存failed: %w", err)
	}
	c.saves.Add(1)
	return nil
}

// RecordHit 上报一次缓存命中
func (c *ResponseCache) RecordHit() { c.hits.Add(1) }

// RecordMiss 上报一次缓存未命中
func (c *ResponseCache) RecordMiss() { c.misses.Add(1) }

// Stats 返回累计计数与当前存活条目数
func (c *ResponseCache) Stats(ctx context.Context) (CacheStats, error) {
	entries, err := c.store.Count(ctx)
	if err != nil {
		return CacheStats{}, fmt.Errorf("统计缓存条目failed: %w", err)
	}
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Saves:   c.saves.Load(),
		Entries: entries,
	}, nil
}

// Close 关闭底层存储
func (c *ResponseCache) Close() error { return c.store.Close() }
