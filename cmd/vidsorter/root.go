package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/John-Robertt/vidsorter/internal/app/run"
	"github.com/John-Robertt/vidsorter/internal/config"
	"github.com/John-Robertt/vidsorter/internal/domain"
	"github.com/John-Robertt/vidsorter/internal/infra/fsx"
	"github.com/John-Robertt/vidsorter/internal/infra/httpx"
	"github.com/John-Robertt/vidsorter/internal/infra/runlock"
	"github.com/John-Robertt/vidsorter/internal/logging"
	"github.com/John-Robertt/vidsorter/internal/owner"
	"github.com/John-Robertt/vidsorter/internal/provider"
	"github.com/John-Robertt/vidsorter/internal/provider/oembed"
	"github.com/John-Robertt/vidsorter/internal/provider/watchpage"
	"github.com/John-Robertt/vidsorter/internal/provider/ytdlp"
)

type rootFlags struct {
	directory    string
	configPath   string
	includeVideo bool
	includeAudio bool
	videoExts    []string
	audioExts    []string
	workers      int
	dryRun       bool
	skipMetadata bool
	strict       bool
	maxErrors    int
	resolvers    []string
	timeout      time.Duration
	proxy        string
	report       string
	verbose      bool
	quiet        bool
	logFormat    string
}

func newRootCommand() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "vidsorter [directory]",
		Short: "按上传频道整理下载的音视频文件",
		Long: `vidsorter 扫描目录下文件名带 [视频ID] 的音视频文件，查询其上传频道，
并把每个文件移动到 <目录>/<频道名>/ 下（同名文件自动追加 _1、_2 ……）。`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("directory") {
					return fmt.Errorf("目录只能通过位置参数或 --directory 其中一种方式给出")
				}
				f.directory = args[0]
			}
			return runOrganize(cmd, f, len(args) == 1)
		},
	}

	f.bind(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

func (f *rootFlags) bind(fl *pflag.FlagSet) {
	fl.StringVarP(&f.directory, "directory", "d", ".", "要整理的目录")
	fl.StringVarP(&f.configPath, "config", "c", "", "配置文件路径（默认读取 <目录>/"+config.FileName+"，不存在则忽略）")
	fl.BoolVar(&f.includeVideo, "include-video", false, "只处理视频文件（与 --include-audio 都不指定时两类都处理）")
	fl.BoolVar(&f.includeAudio, "include-audio", false, "只处理音频文件")
	fl.StringSliceVar(&f.videoExts, "video-exts", nil, "覆盖内置的视频扩展名列表（逗号分隔）")
	fl.StringSliceVar(&f.audioExts, "audio-exts", nil, "覆盖内置的音频扩展名列表（逗号分隔）")
	fl.IntVarP(&f.workers, "workers", "w", config.DefaultWorkers, "并发 worker 数（1-32）")
	fl.BoolVar(&f.dryRun, "dry-run", false, "只规划不执行：不创建目录、不移动文件")
	fl.BoolVar(&f.skipMetadata, "skip-metadata", false, "不查询频道，全部归入 "+domain.UnknownOwner)
	fl.BoolVar(&f.strict, "strict-metadata", false, "频道查询失败时让该文件失败（默认降级为 "+domain.UnknownOwner+"）")
	fl.IntVar(&f.maxErrors, "max-errors", config.DefaultMaxErrors, "最终报告中最多展示的错误条数")
	fl.StringSliceVar(&f.resolvers, "resolver", []string{config.DefaultResolver}, "频道查询来源链（oembed,watchpage,ytdlp）")
	fl.DurationVar(&f.timeout, "lookup-timeout", config.DefaultLookupTimeout, "单次频道查询的超时")
	fl.StringVar(&f.proxy, "proxy", "", "查询使用的 HTTP 代理，例如 http://127.0.0.1:7890")
	fl.StringVar(&f.report, "report", "", "把 JSON 报告写入该文件")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "输出调试日志")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "只输出错误日志")
	fl.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "日志格式：console 或 json")
}

// cliArgs 把 cobra flags 转成 config.CLIArgs，只有用户显式给出的参数才标记为 Set。
func (f *rootFlags) cliArgs(cmd *cobra.Command, positional bool) config.CLIArgs {
	ch := cmd.Flags().Changed
	cli := config.CLIArgs{
		Path:       f.directory,
		PathSet:    positional || ch("directory"),
		ConfigPath: f.configPath,

		IncludeVideo:    f.includeVideo,
		IncludeVideoSet: ch("include-video"),
		IncludeAudio:    f.includeAudio,
		IncludeAudioSet: ch("include-audio"),
		VideoExts:       f.videoExts,
		VideoExtsSet:    ch("video-exts"),
		AudioExts:       f.audioExts,
		AudioExtsSet:    ch("audio-exts"),

		Workers:         f.workers,
		WorkersSet:      ch("workers"),
		DryRun:          f.dryRun,
		DryRunSet:       ch("dry-run"),
		SkipMetadata:    f.skipMetadata,
		SkipMetadataSet: ch("skip-metadata"),
		Strict:          f.strict,
		StrictSet:       ch("strict-metadata"),
		MaxErrors:       f.maxErrors,
		MaxErrorsSet:    ch("max-errors"),

		Resolvers:        f.resolvers,
		ResolversSet:     ch("resolver"),
		LookupTimeout:    f.timeout,
		LookupTimeoutSet: ch("lookup-timeout"),
		Proxy:            f.proxy,
		ProxySet:         ch("proxy"),
		Report:           f.report,
		ReportSet:        ch("report"),

		LogFormat:    f.logFormat,
		LogFormatSet: ch("log-format"),
	}
	switch {
	case f.verbose:
		cli.LogLevel, cli.LogLevelSet = "debug", true
	case f.quiet:
		cli.LogLevel, cli.LogLevelSet = "error", true
	}
	return cli
}

func runOrganize(cmd *cobra.Command, f *rootFlags, positional bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}
	eff, err := config.LoadEffective(cwd, f.cliArgs(cmd, positional))
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: stderr})
	if err != nil {
		return err
	}
	if eff.ConfigFile != "" {
		logger.Debug("已读取配置文件", "path", eff.ConfigFile)
	}

	if err := run.Preflight(eff); err != nil {
		return err
	}
	if err := checkReportTarget(eff.ReportPath); err != nil {
		return err
	}

	resolver, err := buildResolver(eff, logger)
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire("", eff.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("释放运行锁失败", "path", lock.Path, "error", err)
		}
	}()

	var (
		obs run.Observer
		ui  *progressUI
	)
	if isTerminal(stderr) && eff.LogLevel != "error" {
		ui = newProgressUI(stderr)
		obs = ui
	}

	rr, err := run.Execute(ctx, eff, resolver, obs, logger)
	if ui != nil {
		ui.Close()
	}
	if err != nil {
		return err
	}
	rr.RunID = uuid.NewString()

	var reportErr error
	if eff.ReportPath != "" {
		if reportErr = writeReportFile(eff.ReportPath, rr); reportErr != nil {
			reportErr = fmt.Errorf("写入报告 %q 失败：%w", eff.ReportPath, reportErr)
		}
	}

	emitReport(stdout, stderr, rr, eff.MaxErrors)

	if reportErr != nil {
		return reportErr
	}
	if rr.Interrupted {
		// 报告已输出；交给 main 以非零码退出但不再打印。
		return context.Canceled
	}
	return nil
}

// buildResolver 按 eff.Resolvers 的顺序组装频道查询链（每个来源只问一次）。
func buildResolver(eff config.EffectiveConfig, logger *slog.Logger) (owner.Resolver, error) {
	client, err := httpx.NewClient(eff.ProxyURL, eff.LookupTimeout)
	if err != nil {
		return nil, err
	}
	reg, err := provider.NewRegistry(
		oembed.Provider{},
		watchpage.Provider{},
		ytdlp.Provider{Proxy: eff.ProxyURL},
	)
	if err != nil {
		return nil, err
	}
	chain, err := provider.NewChain(reg, eff.Resolvers, client)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Err: err}
	}
	return traced(chain, logger), nil
}

// traced 在 debug 级别记录每次查询的尝试链路（哪个来源失败、最终由谁给出）。
func traced(ch *provider.Chain, logger *slog.Logger) owner.Resolver {
	return owner.Func(func(ctx context.Context, id domain.VideoID) (string, error) {
		meta, attempts, err := ch.ResolveTrace(ctx, id)
		if logger.Enabled(ctx, slog.LevelDebug) {
			for _, a := range attempts {
				logger.Debug("owner 查询", "video_id", string(id), "provider", a.Provider, "stage", a.Stage, "error", a.Err)
			}
		}
		if err != nil {
			return "", err
		}
		return meta.Owner, nil
	})
}

// checkReportTarget 在派发前确认报告文件所在目录存在，避免跑完才发现写不进去。
func checkReportTarget(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	fi, err := os.Stat(dir)
	if err != nil {
		return &run.StartupError{Op: "report", Path: path, Err: err}
	}
	if !fi.IsDir() {
		return &run.StartupError{Op: "report", Path: path, Err: fmt.Errorf("%q 不是目录", dir)}
	}
	return nil
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), b)
}

// emitReport：stdout 是终端时打印表格；否则 stdout 只输出一个 RunReport JSON，摘要行走 stderr。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport, maxErrors int) {
	if isTerminal(stdout) {
		fmt.Fprint(stdout, renderReport(rr, maxErrors))
		return
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
}
