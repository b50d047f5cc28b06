package main

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/John-Robertt/vidsorter/internal/app/run"
	"github.com/John-Robertt/vidsorter/internal/config"
	"github.com/John-Robertt/vidsorter/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出：启动时打印生效配置，执行中显示进度条，
// 失败与降级的文件逐行打印在进度条上方。
//
// 所有输出写 stderr，不污染 stdout 的报告。
type progressUI struct {
	w io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar

	ok       int
	fail     int
	fallback int

	okTag   func(a ...any) string
	failTag func(a ...any) string
	warnTag func(a ...any) string
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:       w,
		okTag:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		failTag: color.New(color.FgRed, color.Bold).SprintFunc(),
		warnTag: color.New(color.FgYellow).SprintFunc(),
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mode := "move"
	if eff.DryRun {
		mode = "dry-run（不创建目录/不移动）"
	}
	meta := strings.Join(eff.Resolvers, " -> ")
	switch {
	case eff.SkipMetadata:
		meta = "跳过（全部归入 " + domain.UnknownOwner + "）"
	case eff.Strict:
		meta += "（strict：查询失败即失败）"
	}

	fmt.Fprintf(p.w, "[%s] vidsorter (%s)\n", time.Now().Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  types: %s\n", strings.Join(eff.Filter().Exts(), " "))
	fmt.Fprintf(p.w, "  workers: %d\n", eff.Workers)
	fmt.Fprintf(p.w, "  metadata: %s\n", meta)
	if !eff.SkipMetadata {
		fmt.Fprintf(p.w, "  lookup_timeout: %s\n", eff.LookupTimeout)
		fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	}
	if eff.ReportPath != "" {
		fmt.Fprintf(p.w, "  report: %s\n", eff.ReportPath)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d video=%d audio=%d (%s)\n",
			intField(fields, "files"), intField(fields, "video"), intField(fields, "audio"), formatShortDuration(dur),
		)
	case "exec":
		total := intField(fields, "total")
		fmt.Fprintf(p.w, "执行: workers=%d total=%d\n", intField(fields, "workers"), total)
		if total > 0 {
			p.bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(p.w),
				progressbar.OptionSetDescription("整理中"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.w) }),
			)
		}
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnFileDone(idx, total int, res domain.FileResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := ""
	switch {
	case !res.Succeeded():
		p.fail++
		line = fmt.Sprintf("%s %s %s: %s", p.failTag("FAIL"), filepath.Base(res.Src), res.ErrorKind, truncateRunes(res.ErrorMsg, 120))
	case res.OwnerFallback:
		p.ok++
		p.fallback++
		line = fmt.Sprintf("%s %s -> %s", p.warnTag("UNKNOWN"), filepath.Base(res.Src), res.Owner)
	default:
		p.ok++
	}

	if line != "" {
		if p.bar != nil {
			_ = p.bar.Clear()
		}
		fmt.Fprintf(p.w, "[%d/%d] %s (%s)\n", idx, total, line, formatShortDuration(dur))
	}
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
	if idx >= total {
		p.finishLocked()
	}
}

// Close 结束进度条（中断时最后一个 OnFileDone 可能永远不会到来）。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressUI) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Exit()
	p.bar = nil
	fmt.Fprintf(p.w, "%s ok=%d fail=%d unknown=%d\n", p.okTag("DONE"), p.ok, p.fail, p.fallback)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncateRunes(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
