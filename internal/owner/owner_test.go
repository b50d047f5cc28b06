package owner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/vidsorter/internal/domain"
	"github.com/John-Robertt/vidsorter/internal/infra/cache"
)

const id = domain.VideoID("dQw4w9WgXcQ")

func TestLookup_EmptyIsNoOwner(t *testing.T) {
	r := Func(func(ctx context.Context, id domain.VideoID) (string, error) { return "  ", nil })
	if _, err := Lookup(context.Background(), r, id); !errors.Is(err, ErrNoOwner) {
		t.Fatalf("期望 ErrNoOwner，实际：%v", err)
	}
	if _, err := Lookup(context.Background(), nil, id); !errors.Is(err, ErrNoOwner) {
		t.Fatalf("nil resolver 期望 ErrNoOwner，实际：%v", err)
	}

	r = Func(func(ctx context.Context, id domain.VideoID) (string, error) { return " Rick ", nil })
	got, err := Lookup(context.Background(), r, id)
	if err != nil || got != "Rick" {
		t.Fatalf("期望 Rick，实际 %q err=%v", got, err)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, id domain.VideoID) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	})

	start := time.Now()
	_, err := WithTimeout(slow, 20*time.Millisecond).Resolve(context.Background(), id)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("期望 DeadlineExceeded，实际：%v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("超时没有生效")
	}
	if WithTimeout(slow, 0) == nil {
		t.Fatalf("d<=0 应返回原 resolver")
	}
}

func TestCached_OnlySuccess(t *testing.T) {
	var calls atomic.Int32
	fail := true
	r := Func(func(ctx context.Context, id domain.VideoID) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("boom")
		}
		return "Rick Astley", nil
	})
	cr := Cached(r, cache.New(8))

	if _, err := cr.Resolve(context.Background(), id); err == nil {
		t.Fatalf("期望错误")
	}
	fail = false
	for i := 0; i < 3; i++ {
		got, err := cr.Resolve(context.Background(), id)
		if err != nil || got != "Rick Astley" {
			t.Fatalf("期望 Rick Astley，实际 %q err=%v", got, err)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("失败不缓存、成功缓存：期望调用 2 次，实际 %d", n)
	}
}
