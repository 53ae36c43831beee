package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)
	c.Set("a", "1")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	clock.advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("Get(%s) missing", k)
		}
	}
}

func TestLRUCache_SetRefreshesAndDelete(t *testing.T) {
	c, clock := newTestCache(t, 2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.advance(50 * time.Second)
	c.Set("a", "3")
	clock.advance(20 * time.Second)

	if v, ok := c.Get("a"); !ok || v != "3" {
		t.Errorf("Get(a) = %q, %v, want refreshed value", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should have expired")
	}
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_CleanExpiredAndPurge(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)
	c.Set("old1", "x")
	c.Set("old2", "x")
	clock.advance(30 * time.Second)
	c.Set("fresh", "y")
	clock.advance(45 * time.Second)

	m := NewManager(c)
	if n := m.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d, want 0", c.Size())
	}
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewManager().Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoader(t *testing.T) {
	l := NewLoader[string](NewLRUCache[string](4, time.Hour))
	ctx := context.Background()
	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "detail", nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, _, err := l.Get(ctx, "k", load); err != nil || v != "detail" {
				t.Errorf("Get() = %q, %v", v, err)
			}
		}()
	}
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Errorf("load called %d times, want 1", n)
	}

	if _, hit, _ := l.Get(ctx, "k", load); !hit {
		t.Error("second Get should hit")
	}
	l.Invalidate()
	if _, hit, _ := l.Get(ctx, "k", load); hit {
		t.Error("Get after Invalidate should miss")
	}
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader[int](NewLRUCache[int](4, time.Hour))
	boom := errors.New("db down")

	if _, _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	v, hit, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || hit || v != 7 {
		t.Errorf("Get() = %d, %v, %v; want 7, miss, nil", v, hit, err)
	}
}
