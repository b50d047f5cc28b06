package domain

import (
	"sort"
	"time"
)

const (
	StatusSucceeded    = "succeeded"
	StatusFailed       = "failed"
	StatusNotProcessed = "not_processed"
)

// ErrorKind 是单文件失败的固定分类（全部非致命：只影响该文件，不中止批次）。
type ErrorKind string

const (
	ErrIDExtractionFailed  ErrorKind = "ID_EXTRACTION_FAILED"
	ErrMetadataFetchFailed ErrorKind = "METADATA_FETCH_FAILED"
	ErrDirCreationFailed   ErrorKind = "DIR_CREATION_FAILED"
	ErrMoveFailed          ErrorKind = "MOVE_FAILED"
)

// ErrorRecord 一经追加即不可变。
type ErrorRecord struct {
	Filename string    `json:"filename"`
	Kind     ErrorKind `json:"error_kind"`
	Detail   string    `json:"detail"`
	At       time.Time `json:"timestamp"`
}

// FileResult 是单个文件走完状态机后的终态（每个被派发的文件恰好一条）。
type FileResult struct {
	Src     string    `json:"src"`
	Dst     string    `json:"dst"`
	Kind    MediaKind `json:"kind"`
	VideoID string    `json:"video_id"`
	Owner   string    `json:"owner"`
	// OwnerFallback 表示 owner 解析失败/被跳过，已降级为 UnknownOwner。
	OwnerFallback bool  `json:"owner_fallback"`
	Size          int64 `json:"size"`

	Status    string    `json:"status"`
	ErrorKind ErrorKind `json:"error_kind"`
	ErrorMsg  string    `json:"error_msg"`
}

// Succeeded 报告该文件是否以成功终态结束。
func (r FileResult) Succeeded() bool { return r.Status == StatusSucceeded }

// RunReport 是对外稳定输出（stdout JSON / --report 文件）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`
	Strict bool   `json:"strict_metadata"`

	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Interrupted bool      `json:"interrupted"`

	Summary ReportSummary `json:"summary"`
	Files   []FileResult  `json:"files"`
	Errors  []ErrorRecord `json:"errors"`
}

type ReportSummary struct {
	Total        int `json:"total"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	NotProcessed int `json:"not_processed"`

	Video   int `json:"video"`
	Audio   int `json:"audio"`
	Unknown int `json:"unknown"`

	Owners     int               `json:"owners"`
	Bytes      int64             `json:"bytes"`
	ErrorKinds map[ErrorKind]int `json:"error_kinds"`
}

// SuccessRate 返回成功百分比（total=0 时为 0）。
func (s ReportSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// Elapsed 返回本次 run 的耗时。
func (r RunReport) Elapsed() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) files 稳定排序：按 src 字典序（worker 完成顺序不确定，输出不应随之抖动）
// 3) nil 切片/map 归一为空值，JSON 输出 [] / {} 而不是 null
//
// errors 保持追加顺序，不排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Files, func(i, j int) bool { return r.Files[i].Src < r.Files[j].Src })

	if r.Files == nil {
		r.Files = []FileResult{}
	}
	if r.Errors == nil {
		r.Errors = []ErrorRecord{}
	}
	if r.Summary.ErrorKinds == nil {
		r.Summary.ErrorKinds = map[ErrorKind]int{}
	}
}
