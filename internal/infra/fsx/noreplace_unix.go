//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
)

// linkNoReplace 借助 link(2) 的“目标存在即失败”语义实现 no-clobber 移动。
func linkNoReplace(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		var le *os.LinkError
		if errors.As(err, &le) && linkUnsupported(le.Err) {
			return checkThenRename(src, dst)
		}
		return err
	}
	if err := os.Remove(src); err != nil {
		// 保证只留一份：撤销刚建立的硬链接，src 保持原样。
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// linkUnsupported：FAT/exFAT 等文件系统不支持硬链接。
func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.EMLINK)
}
