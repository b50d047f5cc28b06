package relocate

import "sync"

// DirLocks 为每个目标目录提供一把互斥锁，并记录 dry-run 下已规划的目标路径。
//
// “选目标名 + 移动”必须在同一目录锁内完成，否则两个同名文件可能选中同一个候选。
// 零值可用。
type DirLocks struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	reserved map[string]struct{}
}

// Lock 锁住 dir，返回解锁函数。
func (l *DirLocks) Lock(dir string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	m, ok := l.locks[dir]
	if !ok {
		m = &sync.Mutex{}
		l.locks[dir] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Reserve 记录一个已规划的目标路径（dry-run 用：不落盘也要让后续文件避开它）。
func (l *DirLocks) Reserve(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserved == nil {
		l.reserved = map[string]struct{}{}
	}
	l.reserved[path] = struct{}{}
}

func (l *DirLocks) Reserved(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.reserved[path]
	return ok
}
