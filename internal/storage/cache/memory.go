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

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore 内存缓存存储实现。过期采用读取时惰性判断 + 周期被动清扫，
// 不在每次读取时做全量回收。并发 Get/Set 由 RWMutex 保护，键冲突 last-write-wins。
type MemoryStore struct {
	items map[string]*cacheItem
	mu    sync.RWMutex

	sweepStop chan struct{}
	closeOnce sync.Once
}

// cacheItem 缓存项
type cacheItem struct {
	value      []byte
	expiration int64 // UnixNano，0 表示不过期
}

// NewMemoryStore 创建新的内存缓存存储。sweepInterval > 0 时启动周期清扫 goroutine。
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items:     make(map[string]*cacheItem),
		sweepStop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	var exp int64
	if expiration > 0 {
		exp = time.Now().Add(expiration).UnixNano()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = &cacheItem{
		value:      data,
		expiration: exp,
	}
	return nil
}

// Get 获取缓存，缺失或过期返回 ErrCacheMiss
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	item, exists := s.items[key]
	s.mu.RUnlock()

	if !exists {
		return ErrCacheMiss
	}
	if item.expiration > 0 && item.expiration < time.Now().UnixNano() {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Count 当前存活（未过期）条目数
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	now := time.Now().UnixNano()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if item.expiration == 0 || item.expiration >= now {
			n++
		}
	}
	return n, nil
}

// Clear 清除所有缓存
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*cacheItem)
	return nil
}

// Close 停止清扫 goroutine
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.sweepStop)
	})
	return nil
}

// sweepLoop 周期删除已过期条目
func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.sweepStop:
			return
		}
	}
}

// sweep 单次清扫，供测试直接调用
func (s *MemoryStore) sweep() {
	now := time.Now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if item.expiration > 0 && item.expiration < now {
			delete(s.items, key)
		}
	}
}
