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

package chat

import (
	"encoding/json"
	"strings"

	"campus-assistant/internal/pipeline/common"
)

// FallbackMessage 模型输出为空时的兜底回复
const FallbackMessage = "抱歉，我暂时无法回答这个问题，请稍后再试。"

// rawModelResponse 宽松解析模型输出用
type rawModelResponse struct {
	Message string       `json:"message"`
	Link    *common.Link `json:"link"`
}

// Normalize 将模型原始文本规范化为统一的 ChatResponse。
// 畸形输出只会降级，永不报错：非 JSON 文本整段作为 message；
// 合法 JSON 但缺少可用 message 时用固定兜底回复。
func Normalize(raw string) *common.ChatResponse {
	text := StripCodeFence(raw)
	if strings.TrimSpace(text) == "" {
		return &common.ChatResponse{Message: FallbackMessage}
	}

	var parsed rawModelResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return &common.ChatResponse{Message: strings.TrimSpace(text)}
	}
	if parsed.Message == "" {
		return &common.ChatResponse{Message: FallbackMessage}
	}

	resp := &common.ChatResponse{Message: parsed.Message}
	// link 必须带非空 url 才有效
	if parsed.Link != nil && parsed.Link.URL != "" {
		resp.Link = parsed.Link
	}
	return resp
}

// StripCodeFence 剥掉包裹 JSON 的 Markdown 代码围栏（``` 或 ```json）
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// 丢弃围栏行上的语言标记，如 json
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 16 && !strings.ContainsAny(first, "{}") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
