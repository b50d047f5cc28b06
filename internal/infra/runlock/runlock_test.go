package runlock

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquire_Exclusive(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(t.TempDir(), "media")

	l1, err := Acquire(dir, root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if _, err := Acquire(dir, root); !errors.Is(err, ErrHeld) {
		t.Fatalf("期望 ErrHeld，实际：%v", err)
	}

	// 不同 root 互不影响。
	l2, err := Acquire(dir, root+"-other")
	if err != nil {
		t.Fatalf("不同 root 不应冲突：%v", err)
	}
	_ = l2.Release()

	if err := l1.Release(); err != nil {
		t.Fatalf("释放失败：%v", err)
	}
	l3, err := Acquire(dir, root)
	if err != nil {
		t.Fatalf("释放后应可再次获取：%v", err)
	}
	_ = l3.Release()
}

func TestPathFor_Stable(t *testing.T) {
	a := PathFor("/tmp", "/media/x/")
	b := PathFor("/tmp", "/media/x")
	if a != b || !strings.HasPrefix(filepath.Base(a), "vidsorter-") {
		t.Fatalf("锁路径不稳定：%q vs %q", a, b)
	}
}

func TestRelease_Nil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil Release 应返回 nil：%v", err)
	}
}
