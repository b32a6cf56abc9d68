package chat

import (
	"testing"

	"campus-assistant/internal/pipeline/common"
)

func TestFingerprint_Deterministic(t *testing.T) {
	history := []common.ConversationMessage{
		{Role: common.RoleUser, Content: "西大的学费是多少？"},
		{Role: common.RoleAssistant, Content: "请问你指本科还是研究生？"},
	}
	a := Fingerprint(history, "本科", 3)
	b := Fingerprint(history, "本科", 3)
	if a != b {
		t.Errorf("相同输入指纹应一致: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("指纹长度 = %d, want 64", len(a))
	}
}

func TestFingerprint_MessageSensitive(t *testing.T) {
	if Fingerprint(nil, "a", 3) == Fingerprint(nil, "b", 3) {
		t.Error("不同消息指纹应不同")
	}
}

func TestFingerprint_WindowOnlyLastN(t *testing.T) {
	old := common.ConversationMessage{Role: common.RoleUser, Content: "很久以前的问题"}
	recent := []common.ConversationMessage{
		{Role: common.RoleUser, Content: "q1"},
		{Role: common.RoleAssistant, Content: "a1"},
		{Role: common.RoleUser, Content: "q2"},
	}
	withOld := append([]common.ConversationMessage{old}, recent...)

	if Fingerprint(withOld, "now", 3) != Fingerprint(recent, "now", 3) {
		t.Error("窗口外的历史不应影响指纹")
	}
}

func TestFingerprint_RoleSensitive(t *testing.T) {
	h1 := []common.ConversationMessage{{Role: common.RoleUser, Content: "x"}}
	h2 := []common.ConversationMessage{{Role: common.RoleAssistant, Content: "x"}}
	if Fingerprint(h1, "m", 3) == Fingerprint(h2, "m", 3) {
		t.Error("role 不同指纹应不同")
	}
}

func TestFingerprint_DefaultWindow(t *testing.T) {
	h := []common.ConversationMessage{{Role: common.RoleUser, Content: "x"}}
	if Fingerprint(h, "m", 0) != Fingerprint(h, "m", DefaultFingerprintWindow) {
		t.Error("window<=0 应使用默认窗口")
	}
}
