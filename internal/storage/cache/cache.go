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
	"fmt"
	"time"

	"campus-assistant/pkg/config"
	"campus-assistant/pkg/utils"
)

// NewCache 根据配置创建缓存存储统一入口
func NewCache(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		sweep := utils.ParseDurationOr(cfg.SweepInterval, time.Hour)
		return NewMemoryStore(sweep), nil
	case "redis":
		return NewRedisStore(cfg.Addr, cfg.Password, cfg.DB)
	default:
		return nil, fmt.Errorf("unsupported 缓存类型: %s", cfg.Type)
	}
}
