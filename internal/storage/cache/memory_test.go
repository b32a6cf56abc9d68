package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_Set_Get_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k1", &v); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "v1" {
		t.Errorf("Get: got %q", v)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Get(ctx, "k1", &v); err != ErrCacheMiss {
		t.Errorf("Get after Delete: err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStore_Get_Miss(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	var v string
	if err := s.Get(ctx, "missing", &v); err != ErrCacheMiss {
		t.Errorf("Get missing: err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	if err := s.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k", &v); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := s.Get(ctx, "k", &v); err != ErrCacheMiss {
		t.Errorf("Get after expiry: err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStore_Count(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	_ = s.Set(ctx, "a", 1, 0)
	_ = s.Set(ctx, "b", 2, 10*time.Millisecond)
	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count: n=%d err=%v", n, err)
	}
	time.Sleep(20 * time.Millisecond)
	n, _ = s.Count(ctx)
	if n != 1 {
		t.Errorf("Count after expiry: n=%d, want 1", n)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	_ = s.Set(ctx, "gone", 1, 5*time.Millisecond)
	_ = s.Set(ctx, "kept", 2, 0)
	time.Sleep(10 * time.Millisecond)
	s.sweep()
	s.mu.RLock()
	_, goneExists := s.items["gone"]
	_, keptExists := s.items["kept"]
	s.mu.RUnlock()
	if goneExists {
		t.Error("过期条目应被清扫")
	}
	if !keptExists {
		t.Error("未过期条目不应被清扫")
	}
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	_ = s.Set(ctx, "k", "first", 0)
	_ = s.Set(ctx, "k", "second", 0)
	var v string
	if err := s.Get(ctx, "k", &v); err != nil || v != "second" {
		t.Errorf("LastWriteWins: v=%q err=%v", v, err)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	_ = s.Set(ctx, "k1", "v1", 0)
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k1", &v); err != ErrCacheMiss {
		t.Errorf("Get after Clear: err = %v", err)
	}
}
