package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-assistant/internal/knowledge"
	"campus-assistant/internal/model/llm"
	"campus-assistant/internal/pipeline/common"
	"campus-assistant/internal/storage/cache"
	"campus-assistant/internal/tool"
	"campus-assistant/internal/tool/registry"
	"campus-assistant/pkg/log"
)

func newTestService(t *testing.T, client llm.Client, reg *registry.Registry) *Service {
	t.Helper()
	if reg == nil {
		reg = registry.New()
	}
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	logger := log.NewNopLogger()
	orch := NewOrchestrator(client, reg, 3, llm.GenerateOptions{}, logger)
	return NewService(orch, NewResponseCache(store, time.Hour), knowledge.Default(), ServiceOptions{}, logger)
}

func TestService_EmptyMessageRejected(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{{Text: "不应被调用"}}}
	svc := newTestService(t, client, nil)

	for _, msg := range []string{"", "   ", "<>"} {
		_, err := svc.Handle(context.Background(), &common.ChatRequest{Message: msg})
		require.Error(t, err, "消息 %q 应被拒绝", msg)
		assert.True(t, errors.Is(err, common.ErrInvalidInput))

		pe, ok := common.GetPipelineError(err)
		require.True(t, ok)
		assert.Equal(t, "sanitize", pe.Stage)
	}
	assert.Equal(t, 0, client.calls, "无效输入不应触达模型")
}

func TestService_CacheHitIdempotent(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{
		{Text: `{"message":"本科学费约 $6,050。","link":{"url":"https://registrar.uwo.ca/student_finances/fees_refunds/","text":"查看学费页","name":"Fees & Refunds"}}`},
	}}
	svc := newTestService(t, client, nil)
	ctx := context.Background()
	req := &common.ChatRequest{Message: "Western 本科学费多少？"}

	first, err := svc.Handle(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, first.Link)

	second, err := svc.Handle(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "第二次请求应命中缓存，零上游调用")
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, first.Link.URL, second.Link.URL)

	stats, err := svc.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Saves)
	assert.Equal(t, 1, stats.Entries)
}

func TestService_NoCacheBypassesBothDirections(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{{Text: `{"message":"回答","link":null}`}}}
	svc := newTestService(t, client, nil)
	ctx := context.Background()
	req := &common.ChatRequest{Message: "住宿申请怎么弄？", NoCache: true}

	_, err := svc.Handle(ctx, req)
	require.NoError(t, err)
	_, err = svc.Handle(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls, "no_cache 请求不得命中缓存")
	stats, _ := svc.CacheStats(ctx)
	assert.Zero(t, stats.Saves, "no_cache 请求不得回写缓存")
	assert.Zero(t, stats.Entries)
}

func TestService_DifferentContextDifferentEntry(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{{Text: `{"message":"看情况","link":null}`}}}
	svc := newTestService(t, client, nil)
	ctx := context.Background()

	_, err := svc.Handle(ctx, &common.ChatRequest{Message: "学费？"})
	require.NoError(t, err)
	_, err = svc.Handle(ctx, &common.ChatRequest{
		Message: "学费？",
		History: []any{map[string]any{"role": "user", "content": "我是研究生"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls, "历史不同指纹应不同")
}

func TestService_MalformedHistoryNormalized(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{{Text: `{"message":"ok","link":null}`}}}
	svc := newTestService(t, client, nil)

	_, err := svc.Handle(context.Background(), &common.ChatRequest{
		Message: "图书馆开门时间？",
		History: "not an array",
	})
	require.NoError(t, err, "非数组历史应归一为空序列而不是报错")

	// 空历史与非数组历史指纹一致 => 第二次命中缓存
	_, err = svc.Handle(context.Background(), &common.ChatRequest{Message: "图书馆开门时间？"})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestService_ToolFailureDegradesGracefully(t *testing.T) {
	reg := registry.New()
	reg.Register(&funcTool{name: "web_fetch", fn: func(in map[string]any) tool.Result {
		return tool.Result{Err: "抓取failed: 状态码 503"}
	}})
	client := &scriptedClient{script: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{Name: "web_fetch", Arguments: map[string]any{"url": "https://registrar.uwo.ca/"}}}},
		{Text: `{"message":"官方页面暂时无法访问，学费标准请稍后查询注册办公室网站。","link":null}`},
	}}
	svc := newTestService(t, client, reg)

	resp, err := svc.Handle(context.Background(), &common.ChatRequest{Message: "本科学费？"})
	require.NoError(t, err, "工具失败应降级为尽力而为的响应")
	assert.Contains(t, resp.Message, "暂时无法访问")
	assert.Nil(t, resp.Link)
}

func TestService_UpstreamCapacitySurfaced(t *testing.T) {
	client := &scriptedClient{err: common.ErrUpstreamCapacity}
	svc := newTestService(t, client, nil)

	_, err := svc.Handle(context.Background(), &common.ChatRequest{Message: "学费？"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstreamCapacity))

	pe, ok := common.GetPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, "orchestrate", pe.Stage)
}

func TestService_UpstreamTransportSurfaced(t *testing.T) {
	client := &scriptedClient{err: common.ErrUpstreamTransport}
	svc := newTestService(t, client, nil)

	_, err := svc.Handle(context.Background(), &common.ChatRequest{Message: "学费？"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstreamTransport))
}

func TestService_MalformedModelOutputNeverErrors(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{{Text: "模型直接给了普通文本而不是 JSON"}}}
	svc := newTestService(t, client, nil)

	resp, err := svc.Handle(context.Background(), &common.ChatRequest{Message: "你好"})
	require.NoError(t, err)
	assert.Equal(t, "模型直接给了普通文本而不是 JSON", resp.Message)
	assert.Nil(t, resp.Link)
}

func TestService_ConfiguredLimitsApplied(t *testing.T) {
	client := &scriptedClient{script: []*llm.ChatResult{{Text: `{"message":"ok","link":null}`}}}
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	logger := log.NewNopLogger()
	orch := NewOrchestrator(client, registry.New(), 3, llm.GenerateOptions{}, logger)
	svc := NewService(orch, NewResponseCache(store, time.Hour), knowledge.Default(), ServiceOptions{
		MessageMaxLen: 4,
		HistoryLimit:  1,
	}, logger)

	history := []any{
		map[string]any{"role": "user", "content": "zzz1"},
		map[string]any{"role": "assistant", "content": "zzz2"},
	}
	_, err := svc.Handle(context.Background(), &common.ChatRequest{
		Message: "abcdefgh",
		History: history,
	})
	require.NoError(t, err)
	require.Len(t, client.seen, 1)

	prompt := client.seen[0][1].Content
	assert.Contains(t, prompt, "当前问题：\nabcd", "message_max_len 应截断当前消息")
	assert.NotContains(t, prompt, "abcde", "截断上限之外的内容不应出现")
	assert.Contains(t, prompt, "zzz2")
	assert.NotContains(t, prompt, "zzz1", "history_limit 应只保留末尾条目")
}

func TestService_WesternTuitionScenario(t *testing.T) {
	// 端到端场景：学费提问 -> 模型抓取注册办公室页面 -> 带官方链接的回答
	reg := registry.New()
	reg.Register(&funcTool{name: "web_fetch", fn: func(in map[string]any) tool.Result {
		url, _ := in["url"].(string)
		if !strings.Contains(url, "registrar.uwo.ca") {
			return tool.Result{Err: "unexpected url: " + url}
		}
		return tool.Result{Content: `{"url":"` + url + `","content":"2026-27 Undergraduate tuition: $6,050 CAD (domestic)"}`}
	}})
	client := &scriptedClient{script: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{Name: "web_fetch", Arguments: map[string]any{"url": "https://registrar.uwo.ca/student_finances/fees_refunds/"}}}},
		{Text: "```json\n{\"message\":\"2026-27 学年本地本科生学费约 $6,050 加元，详情见官方页面。\",\"link\":{\"url\":\"https://registrar.uwo.ca/student_finances/fees_refunds/\",\"text\":\"查看官方学费与退款页面\",\"name\":\"Fees & Refunds\"}}\n```"},
	}}
	svc := newTestService(t, client, reg)

	resp, err := svc.Handle(context.Background(), &common.ChatRequest{Message: "Western 本科一年学费大概多少？"})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "$6,050")
	require.NotNil(t, resp.Link)
	assert.Equal(t, "https://registrar.uwo.ca/student_finances/fees_refunds/", resp.Link.URL)
	assert.Equal(t, "Fees & Refunds", resp.Link.Name)
}
