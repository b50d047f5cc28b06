package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveDestination 返回 dir 下第一个“当前不存在”的候选路径：
// name 本身，然后 stem_1.ext、stem_2.ext ……
//
// exists 是存在性判定（由调用方提供：文件系统、dry-run 预留集合或测试桩）。
// 本函数不做任何 I/O；结果只在调用方持有该目录的锁期间有效。
func ResolveDestination(dir, name string, exists func(path string) bool) string {
	cand := filepath.Join(dir, name)
	if !exists(cand) {
		return cand
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		cand = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if !exists(cand) {
			return cand
		}
	}
}
