package domain

// MediaKind 是按扩展名推断出的文件类别（只用于统计，不决定是否处理）。
type MediaKind string

const (
	KindVideo   MediaKind = "video"
	KindAudio   MediaKind = "audio"
	KindUnknown MediaKind = "unknown"
)

// MediaFile 描述一次扫描得到的媒体文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - Ext 一律小写并带前导 '.'
// - 发现之后不可变；只在一次 run 内存在
type MediaFile struct {
	AbsPath string
	RelPath string
	Name    string // base filename（含扩展名，保留原始大小写）
	Ext     string // ".mp4"
	Kind    MediaKind
	Size    int64
}
