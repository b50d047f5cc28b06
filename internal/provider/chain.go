package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// Attempt 记录一次 provider 尝试（用于解释降级原因）。
type Attempt struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" / "parse" / "ok"
	Err      error  // nil when Stage=="ok"
}

// Error 是 provider 阶段的可追溯错误。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Chain 按固定顺序依次询问若干个不同的 provider，第一个给出 owner 的胜出。
//
// 每个 provider 在一次 Resolve 内最多被问一次：失败就换下一个来源，不会重试同一来源。
// Chain 满足 owner.Resolver。
type Chain struct {
	reg    Registry
	order  []string
	client *http.Client
}

// NewChain 校验 order（非空、已注册、无重复）并构造 Chain。
func NewChain(reg Registry, order []string, c *http.Client) (*Chain, error) {
	if len(order) == 0 {
		return nil, errors.New("resolver 链不能为空")
	}
	seen := make(map[string]struct{}, len(order))
	norm := make([]string, 0, len(order))
	for _, name := range order {
		name = normName(name)
		if _, ok := reg.Get(name); !ok {
			return nil, fmt.Errorf("未知 resolver：%q（可选：%s）", name, strings.Join(reg.Names(), ", "))
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("resolver 链中重复：%q", name)
		}
		seen[name] = struct{}{}
		norm = append(norm, name)
	}
	return &Chain{reg: reg, order: norm, client: c}, nil
}

// Order 返回规范化后的 provider 顺序。
func (ch *Chain) Order() []string {
	return append([]string(nil), ch.order...)
}

// Resolve 返回 id 的 owner 名。
func (ch *Chain) Resolve(ctx context.Context, id domain.VideoID) (string, error) {
	meta, _, err := ch.ResolveTrace(ctx, id)
	if err != nil {
		return "", err
	}
	return meta.Owner, nil
}

// ResolveTrace 与 Resolve 相同，但额外返回 provider 的尝试链路。
func (ch *Chain) ResolveTrace(ctx context.Context, id domain.VideoID) (domain.OwnerMeta, []Attempt, error) {
	if id == "" {
		return domain.OwnerMeta{}, nil, errors.New("video id 不能为空")
	}

	var (
		attempts []Attempt
		lastErr  error
	)
	for _, name := range ch.order {
		if err := ctx.Err(); err != nil {
			// 已取消/超时：后面的来源也不会成功，直接返回（更可解释）。
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		p, _ := ch.reg.Get(name)

		body, pageURL, ferr := p.Fetch(ctx, id, ch.client)
		if ferr != nil {
			lastErr = &Error{Provider: name, Stage: "fetch", Err: ferr}
			attempts = append(attempts, Attempt{Provider: name, Stage: "fetch", Err: ferr})
			continue
		}

		m, perr := p.Parse(id, body, pageURL)
		if perr == nil && strings.TrimSpace(m.Owner) == "" {
			perr = errors.New("元数据中没有 owner")
		}
		if perr != nil {
			lastErr = &Error{Provider: name, Stage: "parse", Err: perr}
			attempts = append(attempts, Attempt{Provider: name, Stage: "parse", Err: perr})
			continue
		}

		m.VideoID = id
		m.Website = pageURL
		attempts = append(attempts, Attempt{Provider: name, Stage: "ok"})
		return m, attempts, nil
	}
	if lastErr == nil {
		lastErr = errors.New("无可用 resolver")
	}
	return domain.OwnerMeta{}, attempts, lastErr
}
