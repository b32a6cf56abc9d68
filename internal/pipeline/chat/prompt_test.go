package chat

import (
	"strings"
	"testing"

	"campus-assistant/internal/pipeline/common"
)

func TestAssemblePrompt_Shape(t *testing.T) {
	history := []common.ConversationMessage{
		{Role: common.RoleUser, Content: "学费多少？"},
		{Role: common.RoleAssistant, Content: "本科还是研究生？"},
	}
	msgs := AssemblePrompt("你是校园助手。", "可引用的校园官方资源：\n- Registrar", history, "本科")

	if len(msgs) != 2 {
		t.Fatalf("消息数 = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Errorf("首条 role = %q", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "校园助手") || !strings.Contains(msgs[0].Content, "Registrar") {
		t.Errorf("system 内容缺失: %q", msgs[0].Content)
	}
	user := msgs[1].Content
	if !strings.Contains(user, "[user] 学费多少？") || !strings.Contains(user, "[assistant] 本科还是研究生？") {
		t.Errorf("历史轮次缺失角色标签: %q", user)
	}
	if !strings.Contains(user, "当前问题：\n本科") {
		t.Errorf("当前问题未清晰分隔: %q", user)
	}
	// 历史顺序保持
	if strings.Index(user, "学费多少") > strings.Index(user, "本科还是研究生") {
		t.Error("历史顺序被打乱")
	}
}

func TestAssemblePrompt_EmptyHistory(t *testing.T) {
	msgs := AssemblePrompt("", "", nil, "图书馆几点开门？")
	if strings.Contains(msgs[1].Content, "对话历史") {
		t.Error("空历史不应有历史段")
	}
	if msgs[0].Content != DefaultSystemPrompt {
		t.Error("空 systemPrompt 应使用默认提示词")
	}
}

func TestAssemblePrompt_DoesNotMutateHistory(t *testing.T) {
	history := []common.ConversationMessage{{Role: common.RoleUser, Content: "原文"}}
	_ = AssemblePrompt("sp", "", history, "m")
	if history[0].Content != "原文" {
		t.Error("入参被修改")
	}
}
