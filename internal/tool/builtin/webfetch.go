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

package builtin

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"campus-assistant/internal/tool"
	"campus-assistant/pkg/utils"
)

// 提取文本上限与默认超时
const (
	DefaultFetchMaxChars = 4000
	DefaultFetchTimeout  = 8 * time.Second
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// WebFetchTool 实现 web_fetch：抓取网页并提取有界纯文本。
// 模型请求外部数据时编排循环执行的唯一内建能力。
type WebFetchTool struct {
	client   *resty.Client
	maxChars int
}

// NewWebFetchTool 创建 web_fetch 工具，timeout/maxChars 非法时用默认值
func NewWebFetchTool(timeout time.Duration, maxChars int) *WebFetchTool {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxChars <= 0 {
		maxChars = DefaultFetchMaxChars
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(3))
	return &WebFetchTool{client: client, maxChars: maxChars}
}

// Name 实现 tool.Tool
func (t *WebFetchTool) Name() string { return "web_fetch" }

// Description 实现 tool.Tool
func (t *WebFetchTool) Description() string {
	return "抓取指定 URL 的网页并返回提取后的纯文本摘要。传入 url。"
}

// Schema 实现 tool.Tool
func (t *WebFetchTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "网页抓取参数",
		Properties: map[string]tool.SchemaProperty{
			"url": {Type: "string", Description: "要抓取的 http/https URL"},
		},
		Required: []string{"url"},
	}
}

// Execute 实现 tool.Tool。任何失败都记入 Result.Err 返回，不上抛 error。
func (t *WebFetchTool) Execute(ctx context.Context, input map[string]any) (tool.Result, error) {
	rawURL, _ := input["url"].(string)
	if rawURL == "" {
		return tool.Result{Err: "url 不能为空"}, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return tool.Result{Err: "url 必须是合法的 http/https 地址"}, nil
	}

	resp, err := t.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return tool.Result{Err: "抓取failed: " + err.Error()}, nil
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return tool.Result{Err: "抓取failed: 状态码 " + resp.Status()}, nil
	}

	text := ExtractText(string(resp.Body()), t.maxChars)
	out := map[string]string{
		"url":     rawURL,
		"content": text,
	}
	raw, _ := json.Marshal(out)
	return tool.Result{Content: string(raw)}, nil
}

// ExtractText 从 HTML 提取有界纯文本：丢弃 script/style 块，
// 去标签，折叠空白，按 rune 截断。输出永远有界。
func ExtractText(html string, maxChars int) string {
	s := scriptBlockRe.ReplaceAllString(html, " ")
	s = styleBlockRe.ReplaceAllString(s, " ")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return utils.TruncateRunes(s, maxChars)
}
