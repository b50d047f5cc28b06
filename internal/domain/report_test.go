package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/path",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Files: []FileResult{
			{Src: "b [bbbbbbbbbbb].mp4", Status: StatusSucceeded},
			{Src: "a [aaaaaaaaaaa].mp4", Status: StatusFailed},
			{Src: "c.mp3", Status: StatusFailed},
		},
	}

	r.Finalize()

	if r.Files[0].Src != "a [aaaaaaaaaaa].mp4" || r.Files[1].Src != "b [bbbbbbbbbbb].mp4" || r.Files[2].Src != "c.mp3" {
		t.Fatalf("files 排序不符合契约：%v", []string{r.Files[0].Src, r.Files[1].Src, r.Files[2].Src})
	}
	if r.Elapsed() != time.Second {
		t.Fatalf("期望耗时 1s，实际 %v", r.Elapsed())
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
	// nil errors 应输出 []，而不是 null。
	if !bytes.Contains(b, []byte("\"errors\":[]")) {
		t.Fatalf("errors 应输出为空数组：%s", string(b))
	}
}

func TestReportSummary_SuccessRate(t *testing.T) {
	if got := (ReportSummary{}).SuccessRate(); got != 0 {
		t.Fatalf("total=0 时期望 0，实际 %v", got)
	}
	if got := (ReportSummary{Total: 4, Succeeded: 3}).SuccessRate(); got != 75 {
		t.Fatalf("期望 75，实际 %v", got)
	}
}

func TestParseVideoID(t *testing.T) {
	if _, ok := ParseVideoID("dQw4w9WgXcQ"); !ok {
		t.Fatalf("期望合法 ID")
	}
	for _, s := range []string{"", "short", "dQw4w9WgXcQQ", "dQw4w9WgX.Q"} {
		if _, ok := ParseVideoID(s); ok {
			t.Fatalf("期望 %q 非法", s)
		}
	}
}
