package domain

// UnknownOwner 是 owner 解析被跳过或失败时的兜底目录名。
const UnknownOwner = "Unknown_Channel"

// OwnerMeta 是 provider 解析得到的最小元数据：只关心“这个视频归谁”。
//
// 约束：
// - Owner 为空的结果不是合法结果（provider 必须返回错误，而不是空串）
// - Website 写入最终成功 provider 的来源 URL（便于追溯）
type OwnerMeta struct {
	VideoID   VideoID
	Owner     string
	ChannelID string
	Title     string
	Website   string
}
