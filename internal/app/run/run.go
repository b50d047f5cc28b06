package run

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/John-Robertt/vidsorter/internal/config"
	"github.com/John-Robertt/vidsorter/internal/domain"
	"github.com/John-Robertt/vidsorter/internal/infra/cache"
	"github.com/John-Robertt/vidsorter/internal/owner"
	"github.com/John-Robertt/vidsorter/internal/relocate"
	"github.com/John-Robertt/vidsorter/internal/scan"
	"github.com/John-Robertt/vidsorter/internal/stats"
	"github.com/John-Robertt/vidsorter/internal/videoid"
)

// Execute 执行一次整理（dry-run 或真实移动），返回对外稳定的 RunReport。
//
// 单个文件的失败只体现在报告里，不中止批次；只有发现阶段（扫描根目录不可读）失败时返回 error。
//
// 取消语义：ctx 取消后不再派发新文件；已在 worker 手里的文件用脱离取消的 context 走完
// （owner 查询仍受 LookupTimeout 约束），避免中断把正在进行的查询变成 Unknown_Channel 移动。
// 未派发的文件记为 not_processed，此时 report.Interrupted=true。
//
// obs 与 log 都可以为 nil（log 为 nil 时丢弃日志）。
func Execute(ctx context.Context, eff config.EffectiveConfig, resolver owner.Resolver, obs Observer, log *slog.Logger) (domain.RunReport, error) {
	started := time.Now()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if obs == nil {
		obs = nopObserver{}
	}
	obs.OnStart(eff)

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    eff.DryRun,
		Strict:    eff.Strict,
		StartedAt: started,
	}
	col := stats.New(started)

	scanStarted := time.Now()
	files, err := scan.ScanMedia(eff.Path, eff.Filter())
	if err != nil {
		return domain.RunReport{}, &StartupError{Op: "scan", Path: eff.Path, Err: err}
	}
	col.SetTotal(len(files))

	var nVideo, nAudio int
	for _, f := range files {
		switch f.Kind {
		case domain.KindVideo:
			nVideo++
		case domain.KindAudio:
			nAudio++
		}
	}
	obs.OnPhaseDone("scan", map[string]any{
		"files": len(files),
		"video": nVideo,
		"audio": nAudio,
	}, time.Since(scanStarted))

	if !eff.SkipMetadata && resolver != nil {
		resolver = owner.Cached(owner.WithTimeout(resolver, eff.LookupTimeout), cache.New(eff.CacheSize))
	}
	engine := &relocate.Engine{
		Root:         eff.Path,
		Extractor:    videoid.New(eff.Filter().Exts()),
		Resolver:     resolver,
		SkipMetadata: eff.SkipMetadata,
		Strict:       eff.Strict,
		DryRun:       eff.DryRun,
		Logger:       log,
		Locks:        &relocate.DirLocks{},
	}

	workers := config.ClampWorkers(eff.Workers)
	obs.OnPhaseDone("exec", map[string]any{
		"workers": workers,
		"total":   len(files),
		"dry_run": eff.DryRun,
	}, 0)

	type execResult struct {
		res domain.FileResult
		dur time.Duration
	}

	jobs := make(chan domain.MediaFile)
	results := make(chan execResult, len(files))

	// 已派发的文件必须走完：不把 ctx 的取消传给它们。
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				// 取消与派发在 select 中可能同时就绪：取消后收到的文件不再开始。
				if ctx.Err() != nil {
					continue
				}
				oneStarted := time.Now()
				r := engine.Process(workCtx, f)
				results <- execResult{res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- f:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	seen := make(map[string]struct{}, len(files))
	for it := range results {
		done++
		col.Record(it.res)
		seen[it.res.Src] = struct{}{}
		obs.OnFileDone(done, len(files), it.res, it.dur)
	}

	col.Fill(&rr)
	for _, f := range files {
		if _, ok := seen[f.AbsPath]; ok {
			continue
		}
		rr.Files = append(rr.Files, domain.FileResult{
			Src:    f.AbsPath,
			Kind:   f.Kind,
			Size:   f.Size,
			Status: domain.StatusNotProcessed,
		})
	}
	// 以结果判定中断：所有文件都已到达终态时，晚到的取消不算中断。
	rr.Interrupted = rr.Summary.NotProcessed > 0
	if rr.Interrupted {
		log.Warn("运行被中断", "not_processed", rr.Summary.NotProcessed)
	}

	rr.FinishedAt = time.Now()
	rr.Finalize()
	return rr, nil
}
