package parser

import "time"

// SheetStatus 单个 sheet 的处理结果
type SheetStatus string

const (
	StatusImported SheetStatus = "imported"
	StatusSkipped  SheetStatus = "skipped"
	StatusError    SheetStatus = "error"
)

// SheetResult 单个 sheet（或整个文件）的处理记录
// Sheet 为空表示文件级记录（扩展名不允许、无法打开等）。
type SheetResult struct {
	File        string      `json:"file" yaml:"file"`
	Sheet       string      `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Destination string      `json:"destination,omitempty" yaml:"destination,omitempty"`
	Status      SheetStatus `json:"status" yaml:"status"`
	Rows        int         `json:"rows" yaml:"rows"`
	Reason      string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// DestinationSummary 输出 sheet 汇总
type DestinationSummary struct {
	Name        string `json:"name" yaml:"name"`
	Fragments   int    `json:"fragments" yaml:"fragments"`
	Rows        int    `json:"rows" yaml:"rows"`
	Placeholder bool   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// RunReport 一次合并请求的报告
type RunReport struct {
	RunID          string               `json:"runId" yaml:"run_id"`
	Plant          string               `json:"plant" yaml:"plant"`
	TotalFiles     int                  `json:"totalFiles" yaml:"total_files"`
	ProcessedFiles int                  `json:"processedFiles" yaml:"processed_files"`
	SkippedFiles   int                  `json:"skippedFiles" yaml:"skipped_files"`
	ImportedSheets int                  `json:"importedSheets" yaml:"imported_sheets"`
	SkippedSheets  int                  `json:"skippedSheets" yaml:"skipped_sheets"`
	Sheets         []SheetResult        `json:"sheets" yaml:"sheets"`
	Destinations   []DestinationSummary `json:"destinations" yaml:"destinations"`
	Duration       time.Duration        `json:"duration" yaml:"duration"`
}

// Record 追加处理记录并更新计数
func (r *RunReport) Record(res SheetResult) {
	r.Sheets = append(r.Sheets, res)
	if res.Sheet == "" {
		return
	}
	switch res.Status {
	case StatusImported:
		r.ImportedSheets++
	default:
		r.SkippedSheets++
	}
}

// Skipped 返回所有未导入的记录
func (r *RunReport) Skipped() []SheetResult {
	out := make([]SheetResult, 0)
	for _, s := range r.Sheets {
		if s.Status != StatusImported {
			out = append(out, s)
		}
	}
	return out
}

// TotalRows 输出数据行总数
func (r *RunReport) TotalRows() int {
	total := 0
	for _, d := range r.Destinations {
		total += d.Rows
	}
	return total
}
