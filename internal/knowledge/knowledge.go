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

// Package knowledge 维护校园资源静态知识字典。
// 条目在系统提示词中展示给模型，供其在回答中引用官方链接，
// 或作为 web_fetch 的候选抓取目标。
package knowledge

import (
	"fmt"
	"strings"

	"campus-assistant/pkg/config"
)

// Resource 一条校园资源：稳定 key + 展示名 + 官方 URL + 摘要
type Resource struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Dictionary 只读知识字典，构造后不再变更
type Dictionary struct {
	entries []Resource
	byKey   map[string]Resource
}

// Default 返回内置的 Western University 资源字典
func Default() *Dictionary {
	return newDictionary([]Resource{
		{
			Key:     "tuition_fees",
			Name:    "Office of the Registrar – Fees & Refunds",
			URL:     "https://registrar.uwo.ca/student_finances/fees_refunds/",
			Summary: "本科与研究生学费标准、杂费明细、退款政策与缴费截止日期",
		},
		{
			Key:     "admissions",
			Name:    "Undergraduate Admissions",
			URL:     "https://welcome.uwo.ca/admissions/",
			Summary: "本科申请要求、申请流程与录取时间线",
		},
		{
			Key:     "financial_aid",
			Name:    "Financial Aid & Scholarships",
			URL:     "https://registrar.uwo.ca/student_finances/",
			Summary: "奖学金、助学金与 OSAP 等资助渠道",
		},
		{
			Key:     "housing",
			Name:    "Housing & Residence",
			URL:     "https://residence.uwo.ca/",
			Summary: "校内宿舍类型、申请方式与费用",
		},
		{
			Key:     "library",
			Name:    "Western Libraries",
			URL:     "https://www.lib.uwo.ca/",
			Summary: "图书馆开放时间、馆藏检索与学习空间预约",
		},
		{
			Key:     "academic_calendar",
			Name:    "Academic Calendar",
			URL:     "https://www.westerncalendar.uwo.ca/",
			Summary: "课程目录、学位要求与重要学期日期",
		},
	})
}

// FromConfig 从配置构建字典，配置为空时回退到内置条目
func FromConfig(resources []config.ResourceConfig) *Dictionary {
	if len(resources) == 0 {
		return Default()
	}
	entries := make([]Resource, 0, len(resources))
	for _, r := range resources {
		if r.Key == "" || r.URL == "" {
			continue
		}
		entries = append(entries, Resource{Key: r.Key, Name: r.Name, URL: r.URL, Summary: r.Summary})
	}
	if len(entries) == 0 {
		return Default()
	}
	return newDictionary(entries)
}

func newDictionary(entries []Resource) *Dictionary {
	byKey := make(map[string]Resource, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}
	return &Dictionary{entries: entries, byKey: byKey}
}

// Resources 按注册顺序返回全部条目的副本
func (d *Dictionary) Resources() []Resource {
	out := make([]Resource, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup 按 key 查找条目
func (d *Dictionary) Lookup(key string) (Resource, bool) {
	r, ok := d.byKey[key]
	return r, ok
}

// RenderPrompt 将字典渲染为系统提示词中的资源清单
func (d *Dictionary) RenderPrompt() string {
	var b strings.Builder
	b.WriteString("可引用的校园官方资源：\n")
	for _, e := range d.entries {
		fmt.Fprintf(&b, "- %s（%s）：%s %s\n", e.Name, e.Key, e.Summary, e.URL)
	}
	return b.String()
}
