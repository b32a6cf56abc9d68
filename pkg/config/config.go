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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Model      ModelConfig      `mapstructure:"model"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit       bool   `mapstructure:"rate_limit"`
	RateLimitWindow string `mapstructure:"rate_limit_window"` // 滑动窗口长度，如 "1m"
	RateLimitMax    int    `mapstructure:"rate_limit_max"`    // 窗口内单客户端最大请求数
}

// ChatConfig 对话管线配置
type ChatConfig struct {
	SystemPrompt      string `mapstructure:"system_prompt"`
	HistoryLimit      int    `mapstructure:"history_limit"`      // 校验后保留的历史条数上限，<=0 默认 10
	FingerprintWindow int    `mapstructure:"fingerprint_window"` // 指纹计算使用的末尾历史条数，<=0 默认 3
	MessageMaxLen     int    `mapstructure:"message_max_len"`    // 单条内容 rune 上限，<=0 默认 1000
	MaxToolIterations int    `mapstructure:"max_tool_iterations"`
	LLMTimeout        string `mapstructure:"llm_timeout"`   // 如 "15s"
	FetchTimeout      string `mapstructure:"fetch_timeout"` // 如 "8s"
	FetchMaxChars     int    `mapstructure:"fetch_max_chars"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig 响应缓存配置
type CacheConfig struct {
	Type          string `mapstructure:"type"` // memory | redis
	Addr          string `mapstructure:"addr"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TTL           string `mapstructure:"ttl"`            // 条目存活时长，如 "24h"
	SweepInterval string `mapstructure:"sweep_interval"` // 过期清扫间隔，如 "1h"
}

// KnowledgeConfig 静态知识字典配置，空则使用内置条目
type KnowledgeConfig struct {
	Resources []ResourceConfig `mapstructure:"resources"`
}

// ResourceConfig 单条知识条目
type ResourceConfig struct {
	Key     string `mapstructure:"key"`
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Summary string `mapstructure:"summary"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// RateLimitsConfig LLM Provider 维度限流配置（与 API 客户端滑动窗口限流相互独立）
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	// 替换环境变量
	replaceEnvVars(&config)

	return &config, nil
}

// replaceEnvVars 将 Provider 的 ${ENV} 形式 API Key 替换为环境变量值
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		if strings.HasPrefix(providerConfig.APIKey, "$") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(providerConfig.APIKey, "}"), "${")
			if val := os.Getenv(envVar); val != "" {
				providerConfig.APIKey = val
				config.Model.LLM.Providers[provider] = providerConfig
			}
		}
	}
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}
