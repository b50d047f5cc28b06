package run

import (
	"fmt"
	"os"

	"github.com/John-Robertt/vidsorter/internal/config"
)

// StartupError 表示派发任何文件之前的致命错误（扫描根目录不存在/不可访问等）。
type StartupError struct {
	Op   string
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("启动失败（%s）%q：%v", e.Op, e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Preflight 检查扫描根目录：必须存在、是目录、当前用户可列出；非 dry-run 还必须可写。
func Preflight(eff config.EffectiveConfig) error {
	fi, err := os.Stat(eff.Path)
	if err != nil {
		return &StartupError{Op: "stat", Path: eff.Path, Err: err}
	}
	if !fi.IsDir() {
		return &StartupError{Op: "stat", Path: eff.Path, Err: fmt.Errorf("不是目录")}
	}
	if err := checkAccess(eff.Path, !eff.DryRun); err != nil {
		return &StartupError{Op: "access", Path: eff.Path, Err: err}
	}
	return nil
}
