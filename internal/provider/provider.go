package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// Provider 把“站点/工具变化”限制在 provider 包内部；核心流程只依赖 owner.Resolver。
//
// 约束：
// - Fetch 不做缓存、不做重试（缓存由 owner.Cached 统一实现；重试是明确的非目标）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - Parse 在找不到 owner 时返回错误，不返回空串
type Provider interface {
	Name() string
	Fetch(ctx context.Context, id domain.VideoID, c *http.Client) (body []byte, pageURL string, err error)
	Parse(id domain.VideoID, body []byte, pageURL string) (domain.OwnerMeta, error)
}
