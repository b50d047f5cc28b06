// Package stats 汇总一次运行中所有 worker 的文件终态。
package stats

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// Collector 是一次运行共享的统计聚合器。
//
// 所有修改方法共用一把锁；worker 只通过方法交互，不直接读写字段。
// 不变量：succeeded+failed <= total；未中断的运行结束时取等号。
type Collector struct {
	mu sync.Mutex

	startedAt time.Time
	now       func() time.Time

	total     int
	succeeded int
	failed    int
	kinds     map[domain.MediaKind]int
	owners    map[string]struct{}
	bytes     int64

	errors     []domain.ErrorRecord
	errorKinds map[domain.ErrorKind]int
	files      []domain.FileResult
}

func New(startedAt time.Time) *Collector {
	return &Collector{
		startedAt:  startedAt,
		now:        time.Now,
		kinds:      map[domain.MediaKind]int{},
		owners:     map[string]struct{}{},
		errorKinds: map[domain.ErrorKind]int{},
	}
}

func (c *Collector) StartedAt() time.Time { return c.startedAt }

// SetTotal 记录发现的文件数（派发前调用一次）。
func (c *Collector) SetTotal(n int) {
	c.mu.Lock()
	c.total = n
	c.mu.Unlock()
}

// Record 吸收一个文件终态。
//
// 成功：计入 owner 目录集合与字节数；失败：追加 ErrorRecord（保持追加顺序）。
func (c *Collector) Record(r domain.FileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kind := r.Kind
	if kind == "" {
		kind = domain.KindUnknown
	}
	c.kinds[kind]++
	c.files = append(c.files, r)

	if r.Succeeded() {
		c.succeeded++
		c.bytes += r.Size
		if r.Owner != "" {
			c.owners[r.Owner] = struct{}{}
		}
		return
	}

	c.failed++
	c.errorKinds[r.ErrorKind]++
	c.errors = append(c.errors, domain.ErrorRecord{
		Filename: filepath.Base(r.Src),
		Kind:     r.ErrorKind,
		Detail:   r.ErrorMsg,
		At:       c.now(),
	})
}

// Summary 返回当前计数的快照。NotProcessed = total - succeeded - failed。
func (c *Collector) Summary() domain.ReportSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaryLocked()
}

func (c *Collector) summaryLocked() domain.ReportSummary {
	ek := make(map[domain.ErrorKind]int, len(c.errorKinds))
	for k, v := range c.errorKinds {
		ek[k] = v
	}
	np := c.total - c.succeeded - c.failed
	if np < 0 {
		np = 0
	}
	return domain.ReportSummary{
		Total:        c.total,
		Succeeded:    c.succeeded,
		Failed:       c.failed,
		NotProcessed: np,
		Video:        c.kinds[domain.KindVideo],
		Audio:        c.kinds[domain.KindAudio],
		Unknown:      c.kinds[domain.KindUnknown],
		Owners:       len(c.owners),
		Bytes:        c.bytes,
		ErrorKinds:   ek,
	}
}

// Errors 返回错误记录的副本（按追加顺序）。
func (c *Collector) Errors() []domain.ErrorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ErrorRecord(nil), c.errors...)
}

// Fill 把当前统计写入 report（summary/files/errors），不修改时间字段。
func (c *Collector) Fill(rep *domain.RunReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rep.Summary = c.summaryLocked()
	rep.Files = append([]domain.FileResult(nil), c.files...)
	rep.Errors = append([]domain.ErrorRecord(nil), c.errors...)
}
