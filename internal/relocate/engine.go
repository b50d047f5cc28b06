// Package relocate 实现单文件的“提取 ID → 解析 owner → 建目录 → 无覆盖移动”状态机。
package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/John-Robertt/vidsorter/internal/domain"
	"github.com/John-Robertt/vidsorter/internal/infra/fsx"
	"github.com/John-Robertt/vidsorter/internal/naming"
	"github.com/John-Robertt/vidsorter/internal/owner"
	"github.com/John-Robertt/vidsorter/internal/videoid"
)

// maxMoveAttempts 限制目标被外部抢占（EEXIST）时换候选名的次数。
const maxMoveAttempts = 32

// Engine 对每个文件给出恰好一个终态 FileResult。
//
// 约束：
// - 不 panic、不返回 error：所有失败都折叠进 FileResult（只影响该文件）
// - DryRun：不创建目录、不移动文件，但规划结果与真实运行一致（含同名冲突的 _N）
// - Logger 可以为 nil
type Engine struct {
	Root      string
	Extractor *videoid.Extractor
	Resolver  owner.Resolver

	SkipMetadata bool
	Strict       bool
	DryRun       bool

	Logger *slog.Logger
	Locks  *DirLocks
	// Mover 为空时使用 fsx.RenameNoReplace（测试可注入故障）。
	Mover func(src, dst string) error

	once sync.Once
}

func (e *Engine) init() {
	e.once.Do(func() {
		if e.Locks == nil {
			e.Locks = &DirLocks{}
		}
		if e.Mover == nil {
			e.Mover = fsx.RenameNoReplace
		}
		if e.Logger == nil {
			e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	})
}

// Process 处理单个文件。ctx 只用于 owner 查询。
func (e *Engine) Process(ctx context.Context, f domain.MediaFile) domain.FileResult {
	e.init()

	res := domain.FileResult{
		Src:  f.AbsPath,
		Kind: f.Kind,
		Size: f.Size,
	}
	if res.Kind == "" {
		res.Kind = domain.KindUnknown
	}
	log := e.Logger.With("file", f.Name)

	id, ok := e.Extractor.Extract(f.Name)
	if !ok {
		return e.fail(log, res, domain.ErrIDExtractionFailed, errors.New("文件名中未找到 [11 位视频 ID]"))
	}
	res.VideoID = string(id)

	name, fallback, err := e.resolveOwner(ctx, id)
	if err != nil {
		return e.fail(log, res, domain.ErrMetadataFetchFailed, err)
	}
	res.OwnerFallback = fallback

	dirName := naming.SanitizeDirName(name)
	res.Owner = dirName
	dir := filepath.Join(e.Root, dirName)

	if err := e.ensureDir(dir); err != nil {
		return e.fail(log, res, domain.ErrDirCreationFailed, err)
	}

	dst, err := e.move(f.AbsPath, dir, f.Name)
	if err != nil {
		return e.fail(log, res, domain.ErrMoveFailed, err)
	}
	res.Dst = dst
	res.Status = domain.StatusSucceeded

	if e.DryRun {
		log.Debug("计划移动", "dst", dst, "owner", dirName)
	} else {
		log.Debug("已移动", "dst", dst, "owner", dirName)
	}
	return res
}

// resolveOwner 返回 (owner, 是否降级, error)。只有 Strict 模式下才返回 error。
func (e *Engine) resolveOwner(ctx context.Context, id domain.VideoID) (string, bool, error) {
	if e.SkipMetadata {
		return domain.UnknownOwner, true, nil
	}
	name, err := owner.Lookup(ctx, e.Resolver, id)
	if err == nil {
		return name, false, nil
	}
	if e.Strict {
		return "", false, fmt.Errorf("查询 %s 的 owner 失败：%w", id, err)
	}
	e.Logger.Warn("owner 查询失败，降级为 "+domain.UnknownOwner, "video_id", string(id), "error", err)
	return domain.UnknownOwner, true, nil
}

func (e *Engine) ensureDir(dir string) error {
	if !e.DryRun {
		return fsx.EnsureDir(dir)
	}
	// dry-run 不创建目录，但同名普通文件挡路时真实运行必然失败：提前报告。
	fi, err := os.Stat(dir)
	if err == nil && !fi.IsDir() {
		return &fsx.PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	}
	return nil
}

// move 在目录锁内选出目标名并执行无覆盖移动；目标被抢占时换下一个候选。
func (e *Engine) move(src, dir, name string) (string, error) {
	unlock := e.Locks.Lock(dir)
	defer unlock()

	taken := map[string]struct{}{}
	exists := func(p string) bool {
		if _, ok := taken[p]; ok {
			return true
		}
		return e.Locks.Reserved(p) || fsx.Exists(p)
	}

	for i := 0; i < maxMoveAttempts; i++ {
		dst := naming.ResolveDestination(dir, name, exists)
		if e.DryRun {
			e.Locks.Reserve(dst)
			return dst, nil
		}
		err := e.Mover(src, dst)
		if err == nil {
			return dst, nil
		}
		if fsx.IsExist(err) {
			taken[dst] = struct{}{}
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("目标目录 %q 中候选名连续 %d 次被占用", dir, maxMoveAttempts)
}

func (e *Engine) fail(log *slog.Logger, res domain.FileResult, kind domain.ErrorKind, err error) domain.FileResult {
	res.Status = domain.StatusFailed
	res.ErrorKind = kind
	res.ErrorMsg = err.Error()
	log.Warn("处理失败", "error_kind", string(kind), "error", err)
	return res
}
