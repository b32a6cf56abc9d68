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
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"campus-assistant/internal/api/http/middleware"
	"campus-assistant/internal/pipeline/chat"
	"campus-assistant/internal/pipeline/common"
	"campus-assistant/pkg/metrics"
)

// Handler API 处理器
type Handler struct {
	service *chat.Service
}

// NewHandler 创建 API 处理器
func NewHandler(service *chat.Service) *Handler {
	return &Handler{service: service}
}

// chatRequestBody 入站请求体。conversationHistory 保持 any：
// 客户端传入的任意形态都交给管线归一，transport 层不做历史校验。
type chatRequestBody struct {
	Message             string `json:"message"`
	ConversationHistory any    `json:"conversationHistory"`
	NoCache             bool   `json:"no_cache"`
}

// Chat 处理一次对话请求
// POST /api/chat
func (h *Handler) Chat(c context.Context, ctx *app.RequestContext) {
	var body chatRequestBody
	if err := json.Unmarshal(ctx.Request.Body(), &body); err != nil {
		ctx.JSON(consts.StatusBadRequest, common.ErrorBody{
			Error:   "invalid_request",
			Message: "请求体不是合法 JSON",
		})
		return
	}

	clientID := string(ctx.GetHeader(middleware.ClientIDHeader))
	if clientID == "" {
		clientID = ctx.ClientIP()
	}

	resp, err := h.service.Handle(c, &common.ChatRequest{
		Message:  body.Message,
		History:  body.ConversationHistory,
		NoCache:  body.NoCache,
		ClientID: clientID,
	})
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// writeError 将管线错误映射为统一的 ErrorBody 响应
func (h *Handler) writeError(c context.Context, ctx *app.RequestContext, err error) {
	hlog.CtxWarnf(c, "chat pipeline error: %v", err)

	status := consts.StatusInternalServerError
	code := "internal_error"
	message := "服务内部错误"

	switch {
	case errors.Is(err, common.ErrInvalidInput):
		status = consts.StatusBadRequest
		code = "invalid_input"
		message = common.ErrInvalidInput.Error()
	case errors.Is(err, common.ErrRateLimited):
		status = consts.StatusTooManyRequests
		code = "rate_limited"
		message = common.ErrRateLimited.Error()
	case errors.Is(err, common.ErrUpstreamCapacity):
		status = consts.StatusServiceUnavailable
		code = "upstream_capacity"
		message = common.ErrUpstreamCapacity.Error()
	case errors.Is(err, common.ErrUpstreamTransport):
		status = consts.StatusBadGateway
		code = "upstream_transport"
		message = common.ErrUpstreamTransport.Error()
	}

	ctx.JSON(status, common.ErrorBody{Error: code, Message: message})
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{
		"status":  "ok",
		"service": "campus-assistant",
	})
}

// CacheStats 响应缓存运行统计
// GET /api/cache/stats
func (h *Handler) CacheStats(c context.Context, ctx *app.RequestContext) {
	stats, err := h.service.CacheStats(c)
	if err != nil {
		hlog.CtxErrorf(c, "failed to read cache stats: %v", err)
		ctx.JSON(consts.StatusInternalServerError, common.ErrorBody{
			Error:   "internal_error",
			Message: "无法读取缓存统计",
		})
		return
	}
	ctx.JSON(consts.StatusOK, stats)
}

// Metrics Prometheus 文本格式指标
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(c, "failed to write prometheus metrics: %v", err)
		ctx.JSON(consts.StatusInternalServerError, common.ErrorBody{
			Error:   "internal_error",
			Message: "无法导出指标",
		})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
