package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/vidsorter/internal/scan"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段（含 CLI 参数）不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是扫描根目录下自动发现的配置文件名。
	FileName = "vidsorter.toml"

	DefaultWorkers       = 4
	MaxWorkers           = 32
	DefaultMaxErrors     = 10
	DefaultLookupTimeout = 30 * time.Second
	DefaultResolver      = "oembed"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// CLIArgs 保留每个参数“是否显式指定”的信息（XxxSet）。
// 这能保证覆盖优先级可实现：例如 --dry-run=false 必须能覆盖配置文件里的 dry_run = true。
type CLIArgs struct {
	Path    string
	PathSet bool

	// ConfigPath 非空时必须存在；为空时尝试 <root>/vidsorter.toml（可选）。
	ConfigPath string

	IncludeVideo    bool
	IncludeVideoSet bool
	IncludeAudio    bool
	IncludeAudioSet bool

	VideoExts    []string
	VideoExtsSet bool
	AudioExts    []string
	AudioExtsSet bool

	Workers    int
	WorkersSet bool

	DryRun          bool
	DryRunSet       bool
	SkipMetadata    bool
	SkipMetadataSet bool
	Strict          bool
	StrictSet       bool

	MaxErrors    int
	MaxErrorsSet bool

	Resolvers    []string
	ResolversSet bool

	LookupTimeout    time.Duration
	LookupTimeoutSet bool

	Proxy    string
	ProxySet bool

	Report    string
	ReportSet bool

	LogLevel     string
	LogLevelSet  bool
	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 vidsorter.toml 的解析结构。未知字段视为错误（避免拼写错误被静默忽略）。
type FileConfig struct {
	Directory      string   `toml:"directory"`
	IncludeVideo   *bool    `toml:"include_video"`
	IncludeAudio   *bool    `toml:"include_audio"`
	VideoExts      []string `toml:"video_exts"`
	AudioExts      []string `toml:"audio_exts"`
	Workers        int      `toml:"workers"`
	DryRun         *bool    `toml:"dry_run"`
	SkipMetadata   *bool    `toml:"skip_metadata"`
	StrictMetadata *bool    `toml:"strict_metadata"`
	MaxErrors      *int     `toml:"max_errors"`
	Resolver       []string `toml:"resolver"`
	LookupTimeout  string   `toml:"lookup_timeout"`
	Proxy          string   `toml:"proxy"`
	Report         string   `toml:"report"`
	CacheSize      int      `toml:"cache_size"`

	Logging LoggingConfig `toml:"logging"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path       string
	ConfigFile string // 实际读取的配置文件；未读取时为空

	IncludeVideo bool
	IncludeAudio bool
	VideoExts    []string
	AudioExts    []string

	Workers      int
	DryRun       bool
	SkipMetadata bool
	Strict       bool
	MaxErrors    int

	Resolvers     []string
	LookupTimeout time.Duration
	ProxyURL      string
	ReportPath    string
	CacheSize     int

	LogLevel  string
	LogFormat string
}

// Filter 返回扫描阶段使用的过滤条件。
func (e EffectiveConfig) Filter() scan.Filter {
	return scan.Filter{
		VideoExts:    e.VideoExts,
		AudioExts:    e.AudioExts,
		IncludeVideo: e.IncludeVideo,
		IncludeAudio: e.IncludeAudio,
	}
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) --config 显式给出：必须存在；相对路径以 cwd 为基准
// 2) 否则：尝试 <root>/vidsorter.toml（可选），root = CLI path（默认 "."）
//
// 覆盖优先级（固定）：显式 CLI 参数 > 配置文件 > 内置默认值。
// 配置文件中的 directory 只在 CLI 未显式给出路径时生效，相对路径以配置文件所在目录为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	root := absCleanFrom(cwdAbs, cli.Path)
	if root == "" {
		root = cwdAbs
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		if !cli.PathSet && strings.TrimSpace(fc.Directory) != "" {
			root = absCleanFrom(filepath.Dir(cfgPath), fc.Directory)
		}
	} else {
		cfgPath = filepath.Join(root, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}
	if !exists {
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, root, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigFile = cfgPath
	return eff, nil
}

func merge(cwdAbs, root string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		Path:          root,
		VideoExts:     scan.NormalizeExts(scan.DefaultVideoExts),
		AudioExts:     scan.NormalizeExts(scan.DefaultAudioExts),
		Workers:       DefaultWorkers,
		MaxErrors:     DefaultMaxErrors,
		Resolvers:     []string{DefaultResolver},
		LookupTimeout: DefaultLookupTimeout,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}

	pickBool(&eff.IncludeVideo, fc.IncludeVideo, cli.IncludeVideo, cli.IncludeVideoSet)
	pickBool(&eff.IncludeAudio, fc.IncludeAudio, cli.IncludeAudio, cli.IncludeAudioSet)
	pickBool(&eff.DryRun, fc.DryRun, cli.DryRun, cli.DryRunSet)
	pickBool(&eff.SkipMetadata, fc.SkipMetadata, cli.SkipMetadata, cli.SkipMetadataSet)
	pickBool(&eff.Strict, fc.StrictMetadata, cli.Strict, cli.StrictSet)

	if exts, set := pickList(fc.VideoExts, cli.VideoExts, cli.VideoExtsSet); set {
		eff.VideoExts = scan.NormalizeExts(exts)
	}
	if exts, set := pickList(fc.AudioExts, cli.AudioExts, cli.AudioExtsSet); set {
		eff.AudioExts = scan.NormalizeExts(exts)
	}
	if len(eff.Filter().Exts()) == 0 {
		return EffectiveConfig{}, errors.New("扩展名列表为空：没有任何文件会被处理")
	}

	if fc.Workers != 0 {
		eff.Workers = fc.Workers
	}
	if cli.WorkersSet {
		eff.Workers = cli.Workers
	}
	eff.Workers = ClampWorkers(eff.Workers)

	if fc.MaxErrors != nil {
		eff.MaxErrors = *fc.MaxErrors
	}
	if cli.MaxErrorsSet {
		eff.MaxErrors = cli.MaxErrors
	}
	if eff.MaxErrors < 0 {
		return EffectiveConfig{}, fmt.Errorf("max_errors 不能为负数：%d", eff.MaxErrors)
	}

	if names, set := pickList(fc.Resolver, cli.Resolvers, cli.ResolversSet); set {
		eff.Resolvers = normNames(names)
	}
	if len(eff.Resolvers) == 0 {
		return EffectiveConfig{}, errors.New("resolver 不能为空")
	}

	if s := strings.TrimSpace(fc.LookupTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("lookup_timeout 无效：%w", err)
		}
		eff.LookupTimeout = d
	}
	if cli.LookupTimeoutSet {
		eff.LookupTimeout = cli.LookupTimeout
	}
	if eff.LookupTimeout <= 0 {
		return EffectiveConfig{}, fmt.Errorf("lookup_timeout 必须为正：%s", eff.LookupTimeout)
	}

	eff.ProxyURL = strings.TrimSpace(fc.Proxy)
	if cli.ProxySet {
		eff.ProxyURL = strings.TrimSpace(cli.Proxy)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy 无效：%q", eff.ProxyURL)
		}
	}

	if s := strings.TrimSpace(fc.Report); s != "" {
		eff.ReportPath = absCleanFrom(root, s)
	}
	if cli.ReportSet {
		eff.ReportPath = absCleanFrom(cwdAbs, cli.Report)
	}

	if fc.CacheSize < 0 {
		return EffectiveConfig{}, fmt.Errorf("cache_size 不能为负数：%d", fc.CacheSize)
	}
	eff.CacheSize = fc.CacheSize

	if s := strings.TrimSpace(fc.Logging.Level); s != "" {
		eff.LogLevel = s
	}
	if cli.LogLevelSet {
		eff.LogLevel = cli.LogLevel
	}
	eff.LogLevel = strings.ToLower(strings.TrimSpace(eff.LogLevel))
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("日志级别只能是 debug/info/warn/error，实际是 %q", eff.LogLevel)
	}

	if s := strings.TrimSpace(fc.Logging.Format); s != "" {
		eff.LogFormat = s
	}
	if cli.LogFormatSet {
		eff.LogFormat = cli.LogFormat
	}
	eff.LogFormat = strings.ToLower(strings.TrimSpace(eff.LogFormat))
	if eff.LogFormat != "console" && eff.LogFormat != "json" {
		return EffectiveConfig{}, fmt.Errorf("日志格式只能是 console 或 json，实际是 %q", eff.LogFormat)
	}

	return eff, nil
}

// ClampWorkers 把并发度截断到 [1, MaxWorkers]。
func ClampWorkers(n int) int {
	return min(max(n, 1), MaxWorkers)
}

// pickBool：CLI（显式） > config > 保持默认值。
func pickBool(dst *bool, file *bool, cli, cliSet bool) {
	if file != nil {
		*dst = *file
	}
	if cliSet {
		*dst = cli
	}
}

func pickList(file, cli []string, cliSet bool) ([]string, bool) {
	if cliSet {
		return SplitList(cli), true
	}
	if file != nil {
		return SplitList(file), true
	}
	return nil, false
}

// SplitList 把 ["a,b", " c "] 展开为 ["a", "b", "c"]（兼容逗号分隔与重复参数两种写法）。
func SplitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, x := range in {
		for _, p := range strings.Split(x, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func normNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, x := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(x)))
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
