// Package owner 定义核心流程依赖的“视频 → 频道名”解析边界。
//
// 核心只依赖 Resolver；具体来源（oEmbed、watch 页、yt-dlp）在 provider 包内，
// 超时与进程内缓存以装饰器的形式叠加在这里。
package owner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/John-Robertt/vidsorter/internal/domain"
	"github.com/John-Robertt/vidsorter/internal/infra/cache"
)

// ErrNoOwner 表示解析“成功返回”但没有给出 owner（空串/纯空白）。
var ErrNoOwner = errors.New("未解析到 owner")

// Resolver 把 video id 解析为上传者/频道名。
//
// 约束：实现可以很慢、可以失败；调用方对每个文件只调用一次，不重试。
type Resolver interface {
	Resolve(ctx context.Context, id domain.VideoID) (string, error)
}

// Func 让普通函数满足 Resolver（测试与组合用）。
type Func func(ctx context.Context, id domain.VideoID) (string, error)

func (f Func) Resolve(ctx context.Context, id domain.VideoID) (string, error) {
	return f(ctx, id)
}

// Lookup 调用 r 并统一结果：去掉首尾空白，空结果转换为 ErrNoOwner。
func Lookup(ctx context.Context, r Resolver, id domain.VideoID) (string, error) {
	if r == nil {
		return "", ErrNoOwner
	}
	name, err := r.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNoOwner
	}
	return name, nil
}

// WithTimeout 为每次 Resolve 加上超时；d<=0 时原样返回 r。
func WithTimeout(r Resolver, d time.Duration) Resolver {
	if d <= 0 {
		return r
	}
	return Func(func(ctx context.Context, id domain.VideoID) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return r.Resolve(ctx, id)
	})
}

// Cached 用进程内缓存记住成功结果；失败不缓存（下一个同 id 的文件仍会查询一次）。
func Cached(r Resolver, c *cache.Owners) Resolver {
	if c == nil {
		return r
	}
	return Func(func(ctx context.Context, id domain.VideoID) (string, error) {
		if name, ok := c.Get(id); ok {
			return name, nil
		}
		name, err := Lookup(ctx, r, id)
		if err != nil {
			return "", err
		}
		c.Put(id, name)
		return name, nil
	})
}
