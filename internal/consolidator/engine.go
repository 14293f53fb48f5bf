// Package consolidator 多工厂 Excel 合并引擎
//
// 按调用方给定的文件顺序逐个处理（顺序决定固定映射模式的序号计数与合并后的行顺序），
// 单个文件/sheet 的失败只记录并跳过，不影响整批输出。
package consolidator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plantmerge/internal/model"
	"plantmerge/internal/parser"
	"plantmerge/internal/profile"
	"plantmerge/internal/workbook"
)

// SummarySheet 没有任何输出 sheet 时写入的诊断 sheet
const SummarySheet = "Summary"

// InputFile 上传文件（只读）
type InputFile struct {
	Filename string
	Content  []byte
}

// Result 合并结果
type Result struct {
	Workbook []byte
	Filename string
	Report   *parser.RunReport
}

// Engine 合并引擎；无状态，可并发用于多个请求
type Engine struct {
	logger *zap.Logger
}

// NewEngine 创建合并引擎
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Consolidate 合并一批文件
// 仅在配置错误（通用模式缺少 sheet 名）时返回错误，其余问题记录在报告中。
func (e *Engine) Consolidate(files []InputFile, p profile.Profile) (*Result, error) {
	if p == nil {
		return nil, ErrNilProfile
	}
	if g, ok := p.(profile.Generic); ok && len(g.SheetGroups) == 0 {
		return nil, profile.ErrSheetNamesRequired
	}

	startTime := time.Now()
	r := newRun(e.logger, p, len(files))

	r.logger.Info("开始合并", zap.Int("files", len(files)))

	if prof, ok := p.(profile.ContentClassified); ok {
		for _, c := range prof.Categories() {
			r.declare(prof.Destination(c), prof.PlaceholderHeader(c))
		}
	}

	for i, f := range files {
		r.processFile(i, f, p)
	}

	w := workbook.NewWriter()
	defer w.Close()

	r.finalize(w)
	if w.SheetCount() == 0 {
		if err := w.WriteTable(SummarySheet, r.summaryTable(p)); err != nil {
			return nil, fmt.Errorf("write summary sheet: %w", err)
		}
		r.report.Destinations = append(r.report.Destinations, parser.DestinationSummary{
			Name:        SummarySheet,
			Rows:        1,
			Placeholder: true,
		})
		r.logger.Warn("没有可输出的 sheet，已写入诊断 sheet")
	}

	data, err := w.Bytes()
	if err != nil {
		return nil, err
	}

	r.report.Duration = time.Since(startTime)
	r.logger.Info("合并完成",
		zap.Int("processed_files", r.report.ProcessedFiles),
		zap.Int("skipped_files", r.report.SkippedFiles),
		zap.Int("imported_sheets", r.report.ImportedSheets),
		zap.Int("skipped_sheets", r.report.SkippedSheets),
		zap.Int("rows", r.report.TotalRows()),
		zap.Duration("duration", r.report.Duration),
	)

	return &Result{
		Workbook: data,
		Filename: profile.OutputFilename(p),
		Report:   r.report,
	}, nil
}

// bucket 输出 sheet 的待合并片段
type bucket struct {
	name        string
	fragments   []*model.Table
	placeholder []string
}

// run 单次请求的状态；请求结束即丢弃
type run struct {
	logger   *zap.Logger
	report   *parser.RunReport
	buckets  []*bucket
	index    map[string]*bucket
	ordinals map[string]int
}

func newRun(logger *zap.Logger, p profile.Profile, totalFiles int) *run {
	runID := uuid.New().String()
	return &run{
		logger: logger.With(zap.String("run_id", runID), zap.String("plant", string(p.Plant()))),
		report: &parser.RunReport{
			RunID:      runID,
			Plant:      string(p.Plant()),
			TotalFiles: totalFiles,
			Sheets:     []parser.SheetResult{},
		},
		index:    make(map[string]*bucket),
		ordinals: make(map[string]int),
	}
}

// bucketFor 按最终 sheet 名取得（或创建）输出桶
// 工作表名在 xlsx 中大小写不敏感，因此以小写作为键。
func (r *run) bucketFor(destination string) *bucket {
	name := workbook.SheetName(destination)
	key := strings.ToLower(name)
	if b, ok := r.index[key]; ok {
		return b
	}
	b := &bucket{name: name}
	r.index[key] = b
	r.buckets = append(r.buckets, b)
	return b
}

// declare 预先声明必须输出的 sheet 及其空表头
func (r *run) declare(destination string, header []string) {
	b := r.bucketFor(destination)
	b.placeholder = append([]string(nil), header...)
}

func (r *run) processFile(idx int, f InputFile, p profile.Profile) {
	if !workbook.AllowedExtension(f.Filename) {
		r.skipFile(f.Filename, "file extension not allowed")
		return
	}

	rd, err := workbook.Open(f.Content)
	if err != nil {
		r.failFile(f.Filename, err)
		return
	}
	defer rd.Close()

	r.report.ProcessedFiles++
	r.logger.Info("处理文件", zap.String("file", f.Filename), zap.Strings("sheets", rd.SheetNames()))

	err = safely(func() error {
		switch prof := p.(type) {
		case profile.FixedMapping:
			r.extractFixed(rd, f.Filename, prof)
		case profile.Generic:
			r.extractGeneric(rd, f.Filename, idx, prof)
		case profile.ContentClassified:
			r.extractClassified(rd, f.Filename, prof)
		default:
			return fmt.Errorf("unsupported profile %T", p)
		}
		return nil
	})
	if err != nil {
		// 文件已计入 processed，这里只记录错误
		r.failSheet(f.Filename, "", "", err)
	}
}

// contribute 追加片段到输出桶
func (r *run) contribute(file, sheet, destination string, t *model.Table) {
	b := r.bucketFor(destination)
	b.fragments = append(b.fragments, t)
	r.report.Record(parser.SheetResult{
		File:        file,
		Sheet:       sheet,
		Destination: b.name,
		Status:      parser.StatusImported,
		Rows:        t.Len(),
	})
	r.logger.Debug("sheet 已合并",
		zap.String("file", file),
		zap.String("sheet", sheet),
		zap.String("destination", b.name),
		zap.Int("rows", t.Len()),
	)
}

// skipSheet 记录被跳过的 sheet（非错误）
func (r *run) skipSheet(file, sheet, destination, reason string) {
	r.report.Record(parser.SheetResult{
		File:        file,
		Sheet:       sheet,
		Destination: destination,
		Status:      parser.StatusSkipped,
		Reason:      reason,
	})
	r.logger.Info("跳过 sheet", zap.String("file", file), zap.String("sheet", sheet), zap.String("reason", reason))
}

// failSheet 记录处理失败的 sheet
func (r *run) failSheet(file, sheet, destination string, err error) {
	sheetErr := &SheetError{File: file, Sheet: sheet, Err: err}
	r.report.Record(parser.SheetResult{
		File:        file,
		Sheet:       sheet,
		Destination: destination,
		Status:      parser.StatusError,
		Reason:      err.Error(),
	})
	r.logger.Warn("sheet 处理失败", zap.Error(sheetErr))
}

func (r *run) skipFile(file, reason string) {
	r.report.SkippedFiles++
	r.report.Record(parser.SheetResult{
		File:   file,
		Status: parser.StatusSkipped,
		Reason: reason,
	})
	r.logger.Info("跳过文件", zap.String("file", file), zap.String("reason", reason))
}

func (r *run) failFile(file string, err error) {
	r.report.SkippedFiles++
	r.report.Record(parser.SheetResult{
		File:   file,
		Status: parser.StatusError,
		Reason: err.Error(),
	})
	r.logger.Warn("文件处理失败", zap.Error(&SheetError{File: file, Err: err}))
}

// finalize 合并每个输出桶并写入工作簿
func (r *run) finalize(w *workbook.Writer) {
	for _, b := range r.buckets {
		var t *model.Table
		switch {
		case len(b.fragments) > 0:
			t = model.Concat(b.fragments...)
		case len(b.placeholder) > 0:
			t = model.NewTable(b.placeholder...)
		default:
			continue
		}

		if err := w.WriteTable(b.name, t); err != nil {
			r.logger.Error("写入输出 sheet 失败", zap.String("destination", b.name), zap.Error(err))
			r.report.Record(parser.SheetResult{
				Destination: b.name,
				Status:      parser.StatusError,
				Reason:      err.Error(),
			})
			continue
		}
		r.report.Destinations = append(r.report.Destinations, parser.DestinationSummary{
			Name:        b.name,
			Fragments:   len(b.fragments),
			Rows:        t.Len(),
			Placeholder: len(b.fragments) == 0,
		})
	}
}

// summaryTable 诊断 sheet 内容
func (r *run) summaryTable(p profile.Profile) *model.Table {
	message := "No valid sheets found"
	expected := ""
	switch prof := p.(type) {
	case profile.FixedMapping:
		message = "No valid sheets found matching the predefined mapping"
		expected = prof.ExpectedSheets()
	case profile.Generic:
		message = "None of the requested sheets were found in the uploaded files"
		expected = prof.ExpectedSheets()
	}

	t := model.NewTable("Status", "Message", "Expected_Sheets", "Files_Processed")
	t.AppendRow([]string{
		"No Data Processed",
		message,
		expected,
		fmt.Sprintf("%d", r.report.TotalFiles),
	})
	return t
}
