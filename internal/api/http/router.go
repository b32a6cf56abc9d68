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

package http

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"campus-assistant/internal/api/http/middleware"
	"campus-assistant/internal/ratelimit"
	"campus-assistant/pkg/config"
)

// Router 路由配置
type Router struct {
	handler *Handler
	limiter *ratelimit.Limiter
	cfg     config.APIConfig
}

// NewRouter 创建路由。limiter 可为 nil（限流中间件关闭）。
func NewRouter(handler *Handler, limiter *ratelimit.Limiter, cfg config.APIConfig) *Router {
	return &Router{handler: handler, limiter: limiter, cfg: cfg}
}

// Build 构建 Hertz 服务实例并注册路由，opts 供追踪等扩展注入
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	serverOpts := append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(serverOpts...)
	r.RegisterRoutes(h)
	return h
}

// RegisterRoutes 在给定引擎上注册全部中间件与路由
func (r *Router) RegisterRoutes(h *server.Hertz) {
	h.Use(middleware.AccessLog())
	if r.cfg.CORS.Enable {
		h.Use(middleware.CORS(r.cfg.CORS.AllowOrigins))
	}

	api := h.Group("/api")
	{
		chatHandlers := []app.HandlerFunc{}
		if r.cfg.Middleware.RateLimit && r.limiter != nil {
			chatHandlers = append(chatHandlers, middleware.RateLimit(r.limiter))
		}
		chatHandlers = append(chatHandlers, r.handler.Chat)
		api.POST("/chat", chatHandlers...)

		api.GET("/health", r.handler.HealthCheck)
		api.GET("/cache/stats", r.handler.CacheStats)
	}

	h.GET("/metrics", r.handler.Metrics)
}
