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

package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"campus-assistant/internal/pipeline/common"
	"campus-assistant/internal/ratelimit"
	"campus-assistant/pkg/metrics"
)

// RequestIDHeader 请求 ID 透传头
const RequestIDHeader = "X-Request-ID"

// ClientIDHeader 限流身份头，缺省回落到远端 IP
const ClientIDHeader = "X-Client-ID"

// CORS 跨域中间件，allowOrigins 为空时允许所有来源
func CORS(allowOrigins []string) app.HandlerFunc {
	origins := "*"
	if len(allowOrigins) > 0 {
		origins = allowOrigins[0]
	}
	return func(ctx context.Context, c *app.RequestContext) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-ID, X-Request-ID")

		if string(c.Method()) == "OPTIONS" {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 访问日志中间件：分配请求 ID 并记录耗时与状态码
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		requestID := string(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next(ctx)

		hlog.CtxInfof(ctx, "request_id=%s method=%s path=%s status=%d duration_ms=%d",
			requestID, c.Method(), c.Path(), c.Response.StatusCode(), time.Since(start).Milliseconds())
	}
}

// RateLimit 客户端滑动窗口限流中间件。
// 身份优先取 X-Client-ID 头，缺省回落到远端 IP；拒绝返回 429 且不消耗配额。
func RateLimit(limiter *ratelimit.Limiter) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		identity := string(c.GetHeader(ClientIDHeader))
		if identity == "" {
			identity = c.ClientIP()
		}

		if !limiter.Allow(identity) {
			metrics.RateLimitRejectedTotal.Inc()
			metrics.ChatRequestTotal.WithLabelValues("rejected").Inc()
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, common.ErrorBody{
				Error:   "rate_limited",
				Message: common.ErrRateLimited.Error(),
			})
			return
		}
		c.Next(ctx)
	}
}
