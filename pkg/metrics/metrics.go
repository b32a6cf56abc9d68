package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ChatRequestTotal, CacheEventTotal,
		LLMDuration, ToolDuration,
		RateLimitRejectedTotal, RateLimitWaitSeconds,
	)
}

// ChatRequestTotal 对话请求总数（按最终结果）
var ChatRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campus_chat_request_total",
		Help: "对话请求总数（按最终结果）",
	},
	[]string{"outcome"}, // ok | cached | rejected | failed
)

// CacheEventTotal 响应缓存事件数
var CacheEventTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campus_cache_event_total",
		Help: "响应缓存事件数",
	},
	[]string{"event"}, // hit | miss | save
)

// LLMDuration LLM 调用耗时（秒）
var LLMDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "campus_llm_duration_seconds",
		Help:    "LLM 调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "campus_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// RateLimitRejectedTotal 客户端滑动窗口限流拒绝数
var RateLimitRejectedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "campus_ratelimit_rejected_total",
		Help: "客户端滑动窗口限流拒绝数",
	},
)

// RateLimitWaitSeconds Provider 限流等待耗时（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "campus_ratelimit_wait_seconds",
		Help:    "Provider 限流等待耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"scope", "provider"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
