// Package runlock 防止两个进程同时整理同一个扫描根目录。
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld 表示锁已被另一个进程持有。
var ErrHeld = errors.New("另一个 vidsorter 进程正在整理该目录")

// Lock 是针对某个扫描根目录的建议锁。
//
// 锁文件放在系统临时目录（按 root 的 hash 命名），不写入扫描根目录：
// dry-run 必须保证扫描根目录逐字节不变。
type Lock struct {
	Path string
	fl   *flock.Flock
}

// PathFor 返回 root 对应的锁文件路径（dir 为空时使用 os.TempDir()）。
func PathFor(dir, root string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(dir, "vidsorter-"+hex.EncodeToString(sum[:8])+".lock")
}

// Acquire 非阻塞地获取锁；已被持有时返回 ErrHeld。
func Acquire(dir, root string) (*Lock, error) {
	p := PathFor(dir, root)
	fl := flock.New(p)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("获取运行锁 %q 失败：%w", p, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w（锁文件 %s）", ErrHeld, p)
	}
	return &Lock{Path: p, fl: fl}, nil
}

// Release 释放锁。锁文件本身保留（删除会与新持有者竞争）。
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
