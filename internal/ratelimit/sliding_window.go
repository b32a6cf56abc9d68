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

// Package ratelimit 按客户端身份的滑动窗口限流。
// 窗口长度与窗口内最大请求数是静态配置，不由请求派生。
package ratelimit

import (
	"sync"
	"time"
)

// 默认参数：每客户端每分钟最多 20 次请求，空闲身份每 5 分钟清扫一次
const (
	DefaultWindow        = time.Minute
	DefaultMaxPerWindow  = 20
	DefaultSweepInterval = 5 * time.Minute
)

// Limiter 滑动窗口限流器：identity -> 窗口内请求时间戳序列。
// 每次 Allow 都会先剪除窗口之外的时间戳；周期清扫删除无活动的身份以约束内存。
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	clients map[string][]time.Time

	now       func() time.Time // 测试注入
	sweepStop chan struct{}
	closeOnce sync.Once
}

// New 创建限流器，window/max 非法时回落默认值
func New(window time.Duration, max int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxPerWindow
	}
	return &Limiter{
		window:    window,
		max:       max,
		clients:   make(map[string][]time.Time),
		now:       time.Now,
		sweepStop: make(chan struct{}),
	}
}

// Allow 判断 identity 是否允许发起一次请求。
// 允许时记录本次时间戳；拒绝时不记录（拒绝的请求不消耗窗口配额）。
func (l *Limiter) Allow(identity string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.clients[identity]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.clients[identity] = kept
		return false
	}
	l.clients[identity] = append(kept, now)
	return true
}

// ActiveIdentities 当前持有时间戳的身份数（运维观测/测试用）
func (l *Limiter) ActiveIdentities() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// StartSweep 启动周期清扫 goroutine，interval <= 0 使用默认值
func (l *Limiter) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.sweepStop:
				return
			}
		}
	}()
}

// Close 停止清扫 goroutine
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.sweepStop)
	})
}

// sweep 删除窗口内无任何活动的身份
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, stamps := range l.clients {
		active := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				active = true
				break
			}
		}
		if !active {
			delete(l.clients, identity)
		}
	}
}
