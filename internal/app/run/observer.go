package run

import (
	"time"

	"github.com/John-Robertt/vidsorter/internal/config"
	"github.com/John-Robertt/vidsorter/internal/domain"
)

// Observer 用于把“运行进度/阶段/文件结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - OnFileDone 只在收集 goroutine 上调用（串行）；OnStart/OnPhaseDone 在调用 Execute 的 goroutine 上调用。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFileDone 在某个文件到达终态时调用；idx 从 1 开始。
	OnFileDone(idx, total int, res domain.FileResult, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig)                        {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration)     {}
func (nopObserver) OnFileDone(int, int, domain.FileResult, time.Duration) {}
