package videoid

import (
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// Extractor 从文件名中提取 "[<11 位 ID>].<ext>" 形式的 VideoID。
//
// 约束：
// - 方括号段必须紧贴最终扩展名（多个方括号段时取紧贴扩展名的最后一个）
// - 扩展名大小写不敏感，且必须在构造时给定的集合内
// - 纯函数：无副作用，可并发调用
type Extractor struct {
	re *regexp.Regexp
}

// New 以扩展名集合构造 Extractor。exts 允许带或不带前导 '.'，大小写不敏感。
// exts 为空时 Extract 永远返回 false。
func New(exts []string) *Extractor {
	alts := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, x := range exts {
		x = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(x), "."))
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		alts = append(alts, regexp.QuoteMeta(x))
	}
	if len(alts) == 0 {
		return &Extractor{}
	}
	// 长的在前：避免 "m4" 之类的前缀抢先匹配（虽然有 $ 锚定，排序让模式更稳定、便于调试）。
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})

	pattern := `(?is)^.*\[([A-Za-z0-9_-]{11})\]\.(?:` + strings.Join(alts, "|") + `)$`
	return &Extractor{re: regexp.MustCompile(pattern)}
}

// Extract 返回文件名中的 VideoID；不匹配时返回 false。
func (e *Extractor) Extract(name string) (domain.VideoID, bool) {
	if e == nil || e.re == nil {
		return "", false
	}
	m := e.re.FindStringSubmatch(name)
	if len(m) < 2 {
		return "", false
	}
	return domain.ParseVideoID(m[1])
}
