package registry

import (
	"context"
	"testing"

	"campus-assistant/internal/tool"
)

type stubTool struct {
	name string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }
func (s *stubTool) Execute(ctx context.Context, input map[string]any) (tool.Result, error) {
	return tool.Result{Content: "ok"}, nil
}

func TestRegistry_RegisterGet(t *testing.T) {
	r := New()
	r.Register(&stubTool{name: "web_fetch"})
	got, ok := r.Get("web_fetch")
	if !ok || got.Name() != "web_fetch" {
		t.Errorf("Get: ok=%v got=%v", ok, got)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get missing should be false")
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	r := New()
	r.Register(&stubTool{name: "b"})
	r.Register(&stubTool{name: "a"})
	r.Register(&stubTool{name: "b"}) // 覆盖不改变顺序
	list := r.List()
	if len(list) != 2 || list[0].Name() != "b" || list[1].Name() != "a" {
		t.Errorf("List: %v", list)
	}
}
