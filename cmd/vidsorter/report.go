package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// detailWidth 是错误表中 detail 列的最大字符数（按 rune 计）。
const detailWidth = 50

// renderReport 把 RunReport 渲染成给人看的表格（汇总 + 错误明细）。
func renderReport(rr domain.RunReport, maxErrors int) string {
	s := rr.Summary
	var b strings.Builder

	title := "整理完成"
	if rr.DryRun {
		title = "整理完成（dry-run，未做任何修改）"
	}
	if rr.Interrupted {
		title = "整理被中断"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendRow(table.Row{"目录", rr.Path})
	tw.AppendRow(table.Row{"总数", s.Total})
	tw.AppendRow(table.Row{"成功", s.Succeeded})
	tw.AppendRow(table.Row{"失败", s.Failed})
	if rr.Interrupted || s.NotProcessed > 0 {
		tw.AppendRow(table.Row{"未处理", s.NotProcessed})
	}
	tw.AppendRow(table.Row{"成功率", fmt.Sprintf("%.1f%%", s.SuccessRate())})
	tw.AppendRow(table.Row{"视频 / 音频 / 其他", fmt.Sprintf("%d / %d / %d", s.Video, s.Audio, s.Unknown)})
	tw.AppendRow(table.Row{"频道目录", s.Owners})
	tw.AppendRow(table.Row{"移动数据量", humanize.Bytes(uint64(max(s.Bytes, 0)))})
	tw.AppendRow(table.Row{"耗时", rr.Elapsed().Round(time.Millisecond).String()})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	b.WriteString(tw.Render())
	b.WriteString("\n")

	if kinds := errorKindRows(s.ErrorKinds); len(kinds) > 0 {
		kt := table.NewWriter()
		kt.SetStyle(table.StyleRounded)
		kt.AppendHeader(table.Row{"错误类型", "数量"})
		for _, r := range kinds {
			kt.AppendRow(r)
		}
		b.WriteString(kt.Render())
		b.WriteString("\n")
	}

	if len(rr.Errors) > 0 && maxErrors > 0 {
		shown := rr.Errors
		if len(shown) > maxErrors {
			shown = shown[:maxErrors]
		}
		et := table.NewWriter()
		et.SetStyle(table.StyleRounded)
		et.AppendHeader(table.Row{"#", "文件", "类型", "详情"})
		for i, e := range shown {
			et.AppendRow(table.Row{i + 1, filepath.Base(e.Filename), string(e.Kind), truncateRunes(e.Detail, detailWidth)})
		}
		b.WriteString(et.Render())
		b.WriteString("\n")
	}
	if more := len(rr.Errors) - max(maxErrors, 0); more > 0 {
		fmt.Fprintf(&b, "... and %d more\n", more)
	}
	return b.String()
}

func errorKindRows(m map[domain.ErrorKind]int) []table.Row {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v > 0 {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	rows := make([]table.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, table.Row{k, m[domain.ErrorKind(k)]})
	}
	return rows
}

// summaryLine 是非交互模式下写 stderr 的一行摘要。
func summaryLine(rr domain.RunReport) string {
	s := rr.Summary
	parts := []string{
		"total=" + strconv.Itoa(s.Total),
		"succeeded=" + strconv.Itoa(s.Succeeded),
		"failed=" + strconv.Itoa(s.Failed),
	}
	if rr.Interrupted {
		parts = append(parts, "not_processed="+strconv.Itoa(s.NotProcessed), "interrupted=true")
	}
	if rr.DryRun {
		parts = append(parts, "dry_run=true")
	}
	return "完成：" + strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
