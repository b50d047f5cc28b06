package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// DefaultSize 是进程内 owner 缓存的默认容量（按 video id 计）。
const DefaultSize = 4096

// Owners 是一次运行内的 video id → owner 内存缓存。
//
// 约束：
// - 只存成功结果（失败不缓存，也不持久化：不做跨运行数据库）
// - 并发安全（lru.Cache 内部加锁）
// - nil *Owners 视为“无缓存”，所有读都 miss、所有写都忽略
type Owners struct {
	c *lru.Cache[domain.VideoID, string]
}

// New 创建容量为 size 的缓存；size<=0 时使用 DefaultSize。
func New(size int) *Owners {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[domain.VideoID, string](size)
	if err != nil {
		// size 已保证为正，lru.New 只会在 size<=0 时报错。
		panic(err)
	}
	return &Owners{c: c}
}

func (o *Owners) Get(id domain.VideoID) (string, bool) {
	if o == nil || o.c == nil || id == "" {
		return "", false
	}
	return o.c.Get(id)
}

// Put 写入 owner；空 id 或空 owner 直接忽略。
func (o *Owners) Put(id domain.VideoID, owner string) {
	if o == nil || o.c == nil || id == "" || strings.TrimSpace(owner) == "" {
		return
	}
	o.c.Add(id, owner)
}

func (o *Owners) Len() int {
	if o == nil || o.c == nil {
		return 0
	}
	return o.c.Len()
}
