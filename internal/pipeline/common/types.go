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

package common

// 对话消息角色，校验只接受这两个值
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage 单条对话消息
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Link 响应中附带的资源链接
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// ChatResponse 对外唯一的响应形态，所有路径必须收敛到它
type ChatResponse struct {
	Message string `json:"message"`
	Link    *Link  `json:"link"`
}

// ChatRequest 进入管线的请求（transport 层已完成 JSON 解码）。
// History 保持 any：客户端传入非数组时由 HistoryValidator 归一为空序列。
type ChatRequest struct {
	Message  string
	History  any
	NoCache  bool
	ClientID string
}

// ErrorBody 拒绝/失败时的响应对象
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Link    *Link  `json:"link"`
}
