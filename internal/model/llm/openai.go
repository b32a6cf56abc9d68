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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"campus-assistant/internal/pipeline/common"
)

// OpenAIClient OpenAI 兼容客户端（chat completions + function calling）
type OpenAIClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *resty.Client
}

// NewOpenAIClient 创建新的 OpenAI 客户端（base 优先用 OPENAI_BASE_URL 环境变量）
func NewOpenAIClient(model, apiKey string, timeout time.Duration) (*OpenAIClient, error) {
	return NewOpenAIClientWithBaseURL(model, apiKey, "", timeout)
}

// NewOpenAIClientWithBaseURL 创建 OpenAI 兼容客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIClientWithBaseURL(model, apiKey, baseURL string, timeout time.Duration) (*OpenAIClient, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(2 * time.Second)

	return &OpenAIClient{
		provider: "openai",
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
	}, nil
}

// openAIToolCall 响应中的工具调用
type openAIToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// openAIResponse chat completions 响应
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatWithContext 使用上下文聊天。429 归类为 ErrUpstreamCapacity，
// 连接失败/超时/5xx 归类为 ErrUpstreamTransport。
func (c *OpenAIClient) ChatWithContext(ctx context.Context, messages []Message, tools []ToolDescriptor, options GenerateOptions) (*ChatResult, error) {
	// 转换消息格式
	openAIMessages := make([]map[string]string, len(messages))
	for i, msg := range messages {
		openAIMessages[i] = map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		}
	}

	// 构建请求
	request := map[string]interface{}{
		"model":       c.model,
		"messages":    openAIMessages,
		"temperature": options.Temperature,
	}
	if options.MaxTokens > 0 {
		request["max_tokens"] = options.MaxTokens
	}
	if len(tools) > 0 {
		openAITools := make([]map[string]interface{}, len(tools))
		for i, t := range tools {
			openAITools[i] = map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Parameters,
				},
			}
		}
		request["tools"] = openAITools
		request["tool_choice"] = "auto"
	}

	// 发送请求
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(request).
		Post(c.baseURL + "/chat/completions")

	if err != nil {
		return nil, fmt.Errorf("调用 OpenAI API failed: %w: %v", common.ErrUpstreamTransport, err)
	}

	// 检查响应状态
	switch {
	case response.StatusCode() == http.StatusTooManyRequests:
		return nil, fmt.Errorf("OpenAI API 限流: %w", common.ErrUpstreamCapacity)
	case response.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("OpenAI API 返回错误 %d: %w", response.StatusCode(), common.ErrUpstreamTransport)
	}

	// 解析响应
	var result openAIResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 OpenAI 响应failed: %w: %v", common.ErrUpstreamTransport, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API 没有返回结果: %w", common.ErrUpstreamTransport)
	}

	msg := result.Choices[0].Message
	out := &ChatResult{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		call := ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
				// 参数不是合法 JSON 时原样透传，由工具侧拒绝
				call.Arguments = map[string]any{"raw": tc.Function.Arguments}
			}
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

// Model 返回模型名称
func (c *OpenAIClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string {
	return c.provider
}
