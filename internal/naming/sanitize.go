package naming

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// forbidden 是在常见文件系统（尤其 Windows/SMB 共享）上不能出现在目录名里的字符。
const forbidden = `<>:"/\|?*`

// SanitizeDirName 把任意 owner 名变成可直接用作目录名的字符串。
//
// 规则：
// - 先做 NFC 规范化：同一个频道名的组合/预组合写法落到同一个目录
// - forbidden 中的字符与 ASCII 控制字符替换为 '_'
// - 去掉首尾的 '.' 与空格
// - 结果为空时返回 domain.UnknownOwner
//
// 幂等：SanitizeDirName(SanitizeDirName(x)) == SanitizeDirName(x)。
func SanitizeDirName(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(forbidden, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return domain.UnknownOwner
	}
	return out
}
