//go:build !unix

package run

import "os"

// 非 unix 平台没有 access(2)：至少确认目录可列出。
func checkAccess(dir string, _ bool) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	return f.Close()
}
