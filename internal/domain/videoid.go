package domain

import "regexp"

// VideoID 是平台分配的 11 位视频标识（形如 dQw4w9WgXcQ）。
type VideoID string

// VideoIDLen 是合法 VideoID 的固定长度。
const VideoIDLen = 11

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID 校验 s 是否为合法的 VideoID（不做任何裁剪或大小写变换：ID 区分大小写）。
func ParseVideoID(s string) (VideoID, bool) {
	if !videoIDRE.MatchString(s) {
		return "", false
	}
	return VideoID(s), true
}

// WatchURL 返回该视频的观看页 URL（provider 用它作为查询入口与来源标记）。
func (id VideoID) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + string(id)
}
