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
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"campus-assistant/internal/pipeline/common"
)

// DefaultFingerprintWindow 指纹计算纳入的末尾历史条数
const DefaultFingerprintWindow = 3

// Fingerprint 计算请求指纹：取清洗后历史的末尾 window 条，
// 每条编码为 "role:content"，与当前消息拼接后求 SHA-256。
// 同样的近期上下文 + 同样的问题 => 同样的指纹，作为缓存键使用。
func Fingerprint(history []common.ConversationMessage, message string, window int) string {
	if window <= 0 {
		window = DefaultFingerprintWindow
	}
	start := len(history) - window
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, m := range history[start:] {
		b.WriteString(m.Role)
		b.WriteString(":")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("|")
	b.WriteString(message)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
