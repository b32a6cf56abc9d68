package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 键不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

// Store 缓存存储接口
type Store interface {
	// Set 设置缓存，expiration <= 0 表示不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 获取缓存，缺失或过期返回 ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
	// Count 当前存活条目数
	Count(ctx context.Context) (int, error)
	// Clear 清除所有缓存
	Clear(ctx context.Context) error
	// Close 关闭缓存连接并停止后台清扫
	Close() error
}
