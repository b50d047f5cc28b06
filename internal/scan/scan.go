package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

var (
	DefaultVideoExts = []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".3gp", ".ogv"}
	DefaultAudioExts = []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".aac", ".opus", ".wma"}
)

// Filter 决定哪些文件参与本次运行。
//
// IncludeVideo/IncludeAudio 都为 false 时视为“两类都要”。
type Filter struct {
	VideoExts    []string
	AudioExts    []string
	IncludeVideo bool
	IncludeAudio bool
}

// Exts 返回参与匹配的扩展名（已规范化、去重、排序）。
func (f Filter) Exts() []string {
	both := !f.IncludeVideo && !f.IncludeAudio
	var out []string
	if both || f.IncludeVideo {
		out = append(out, f.VideoExts...)
	}
	if both || f.IncludeAudio {
		out = append(out, f.AudioExts...)
	}
	return NormalizeExts(out)
}

// NormalizeExts 规范化扩展名列表：去空白、小写、补前导 '.'、去重、排序。
func NormalizeExts(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, x := range in {
		x = strings.ToLower(strings.TrimSpace(x))
		if x == "" || x == "." {
			continue
		}
		if !strings.HasPrefix(x, ".") {
			x = "." + x
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	sort.Strings(out)
	return out
}

// ScanMedia 列出 root 下（不递归）匹配 filter 的媒体文件。
//
// 规则（硬约束）：
// - 只看 root 这一层：之前运行创建的频道目录不会被再次扫描
// - 以 '.' 开头的隐藏文件忽略
// - 目录忽略；符号链接只在指向普通文件时纳入
// - 同一路径只出现一次；输出按 RelPath 排序
//
// 注意：扫描阶段只做 stat，不读文件内容。
func ScanMedia(root string, filter Filter) ([]domain.MediaFile, error) {
	root = filepath.Clean(root)
	allowed := map[string]struct{}{}
	for _, x := range filter.Exts() {
		allowed[x] = struct{}{}
	}
	video := toSet(NormalizeExts(filter.VideoExts))
	audio := toSet(NormalizeExts(filter.AudioExts))

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	files := make([]domain.MediaFile, 0, len(entries))
	for _, d := range entries {
		name := d.Name()
		if strings.HasPrefix(name, ".") || d.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := allowed[ext]; !ok {
			continue
		}

		path := filepath.Join(root, name)
		if _, dup := seen[path]; dup {
			continue
		}

		// Stat 跟随符号链接：指向目录或悬空的链接都跳过。
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[path] = struct{}{}

		files = append(files, domain.MediaFile{
			AbsPath: path,
			RelPath: name,
			Name:    name,
			Ext:     ext,
			Kind:    classify(ext, video, audio),
			Size:    info.Size(),
		})
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func classify(ext string, video, audio map[string]struct{}) domain.MediaKind {
	if _, ok := video[ext]; ok {
		return domain.KindVideo
	}
	if _, ok := audio[ext]; ok {
		return domain.KindAudio
	}
	return domain.KindUnknown
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}
