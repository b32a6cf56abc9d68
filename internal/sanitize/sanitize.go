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

// Package sanitize 对用户输入做尽力而为的提示注入缓解。
// 这是输出质量启发式，不是安全边界：它不覆盖全部注入向量，
// 调用方不得依赖它做安全控制。过滤集合固定，不随版本悄然扩大。
package sanitize

import (
	"regexp"
	"strings"

	"campus-assistant/internal/pipeline/common"
	"campus-assistant/pkg/utils"
)

const (
	// MessageMaxLen 单条内容 rune 上限
	MessageMaxLen = 1000
	// HistoryLimit 校验后保留的历史条数上限
	HistoryLimit = 10
)

var (
	scriptSchemeRe = regexp.MustCompile(`(?i)(javascript|data|vbscript)\s*:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	angleReplacer  = strings.NewReplacer("<", "", ">", "")
)

// Options 可调上限，零值回落包级默认
type Options struct {
	MessageMaxLen int
	HistoryLimit  int
}

func (o Options) normalize() Options {
	if o.MessageMaxLen <= 0 {
		o.MessageMaxLen = MessageMaxLen
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = HistoryLimit
	}
	return o
}

// Text 清洗任意输入为可嵌入提示词的字符串，非字符串输入返回空串
func Text(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return TextString(s)
}

// TextString 按默认上限清洗字符串
func TextString(s string) string {
	return TextStringWith(s, Options{})
}

// TextStringWith 清洗字符串：去标记分隔符、禁用脚本类 URI scheme、
// 去内联事件处理器、去首尾空白、截断到上限。有损且尽力而为。
func TextStringWith(s string, opts Options) string {
	opts = opts.normalize()
	s = angleReplacer.Replace(s)
	s = scriptSchemeRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return utils.TruncateRunes(s, opts.MessageMaxLen)
}

// History 按默认上限归一对话历史
func History(v any) []common.ConversationMessage {
	return HistoryWith(v, Options{})
}

// HistoryWith 将客户端声称的对话历史归一为合法序列。
// 非数组输入得到空序列。处理顺序固定为先截断后过滤：
// 无论输入多长，校验开销都被限制在 O(HistoryLimit)。
func HistoryWith(v any, opts Options) []common.ConversationMessage {
	opts = opts.normalize()
	switch raw := v.(type) {
	case []common.ConversationMessage:
		return MessagesWith(raw, opts)
	case []any:
		if len(raw) > opts.HistoryLimit {
			raw = raw[len(raw)-opts.HistoryLimit:]
		}
		out := make([]common.ConversationMessage, 0, len(raw))
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			content, ok := m["content"].(string)
			if !ok || !validRole(role) {
				continue
			}
			out = append(out, common.ConversationMessage{
				Role:    role,
				Content: TextStringWith(content, opts),
			})
		}
		return out
	default:
		return []common.ConversationMessage{}
	}
}

// Messages 按默认上限处理已具型历史
func Messages(raw []common.ConversationMessage) []common.ConversationMessage {
	return MessagesWith(raw, Options{})
}

// MessagesWith 已具型历史的同一处理：先截断后过滤再清洗
func MessagesWith(raw []common.ConversationMessage, opts Options) []common.ConversationMessage {
	opts = opts.normalize()
	if len(raw) > opts.HistoryLimit {
		raw = raw[len(raw)-opts.HistoryLimit:]
	}
	out := make([]common.ConversationMessage, 0, len(raw))
	for _, m := range raw {
		if !validRole(m.Role) {
			continue
		}
		out = append(out, common.ConversationMessage{
			Role:    m.Role,
			Content: TextStringWith(m.Content, opts),
		})
	}
	return out
}

func validRole(role string) bool {
	return role == common.RoleUser || role == common.RoleAssistant
}
