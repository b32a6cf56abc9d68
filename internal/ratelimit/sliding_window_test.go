package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(window time.Duration, max int) (*Limiter, *fakeClock) {
	l := New(window, max)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l.now = clock.now
	return l, clock
}

func TestAllow_21stCallRejected(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 20)
	for i := 0; i < 20; i++ {
		if !l.Allow("client-a") {
			t.Fatalf("第 %d 次调用应被允许", i+1)
		}
	}
	if l.Allow("client-a") {
		t.Error("窗口内第 21 次调用应被拒绝")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 2)
	if !l.Allow("c") || !l.Allow("c") {
		t.Fatal("前两次应允许")
	}
	if l.Allow("c") {
		t.Fatal("第三次应拒绝")
	}
	clock.advance(61 * time.Second)
	if !l.Allow("c") {
		t.Error("窗口滑出后应重新允许")
	}
}

func TestAllow_IdentitiesIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 1)
	if !l.Allow("a") {
		t.Fatal("a 第一次应允许")
	}
	if !l.Allow("b") {
		t.Error("b 不应受 a 的配额影响")
	}
	if l.Allow("a") {
		t.Error("a 第二次应拒绝")
	}
}

func TestAllow_RejectedCallDoesNotConsumeQuota(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 1)
	_ = l.Allow("c")
	for i := 0; i < 5; i++ {
		if l.Allow("c") {
			t.Fatal("应持续拒绝")
		}
	}
	clock.advance(61 * time.Second)
	if !l.Allow("c") {
		t.Error("被拒绝的调用不应延长封禁")
	}
}

func TestSweep_RemovesIdleIdentities(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 5)
	_ = l.Allow("idle")
	_ = l.Allow("busy")
	clock.advance(2 * time.Minute)
	_ = l.Allow("busy")
	l.sweep()
	if n := l.ActiveIdentities(); n != 1 {
		t.Errorf("ActiveIdentities = %d, want 1", n)
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 100)
	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("shared")
		}()
	}
	wg.Wait()
	close(allowed)
	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	if n != 100 {
		t.Errorf("并发允许数 = %d, want 100", n)
	}
}
