package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBody 限制单次响应读取量（watch 页通常 1MB 左右）。
const maxBody = 8 << 20

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 常见：oEmbed 对私有/已删除视频返回 401/404。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示请求被站点引导到了“同意/验证”页面（需要浏览器交互）。
// 约束：不尝试绕过，直接视为 fetch 失败，让上层走下一个 provider 或降级。
type BlockedError struct {
	URL    string
	Reason string // 例如 "consent"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

// FetchURL 发起一次 GET 并返回 body；非 2xx 返回 *HTTPStatusError。
func FetchURL(ctx context.Context, c *http.Client, u string, header http.Header) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}
