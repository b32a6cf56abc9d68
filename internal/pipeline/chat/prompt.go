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
	"fmt"
	"strings"

	"campus-assistant/internal/model/llm"
	"campus-assistant/internal/pipeline/common"
)

// DefaultSystemPrompt 默认系统提示词，要求模型产出 {message, link} JSON
const DefaultSystemPrompt = `你是 Western University 的校园助手，帮助学生解答学费、录取、住宿等校园事务问题。
回答使用提问者的语言，内容基于官方资源，不要编造信息。
最终回答必须是一个 JSON 对象：{"message": "回答正文", "link": {"url": "...", "text": "...", "name": "..."} 或 null}。
只有在确有相关官方页面时才给 link，否则 link 为 null。`

// AssemblePrompt 组装模型输入：系统消息（基础提示词 + 知识清单），
// 加一条用户消息，内含带角色标签的历史轮次与清晰分隔的当前问题。
// 纯函数，不修改任何入参。
func AssemblePrompt(systemPrompt, knowledgePrompt string, history []common.ConversationMessage, message string) []llm.Message {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	system := systemPrompt
	if knowledgePrompt != "" {
		system = systemPrompt + "\n\n" + knowledgePrompt
	}

	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("对话历史：\n")
		for _, m := range history {
			fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("当前问题：\n")
	b.WriteString(message)

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: common.RoleUser, Content: b.String()},
	}
}
