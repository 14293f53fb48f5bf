package consolidator

import (
	"errors"

	"go.uber.org/zap"

	"plantmerge/internal/parser"
	"plantmerge/internal/profile"
	"plantmerge/internal/workbook"
)

// extractClassified 内容分类：文件名决定类别，类别决定取哪些 sheet 及是否做列标准化
func (r *run) extractClassified(rd *workbook.Reader, filename string, prof profile.ContentClassified) {
	category := prof.Classify(filename)
	destination := prof.Destination(category)

	if category == profile.CategorySecondary {
		r.extractSecondary(rd, filename, destination, prof)
		return
	}

	sheets, fallback := prof.PrimarySheets(rd.SheetNames())
	if fallback {
		r.logger.Info("未找到带标记的 sheet，尝试全部 sheet", zap.String("file", filename))
	}

	mapper := parser.NewFieldMapper(prof.Schema, prof.ColumnRules)
	processed := 0
	for _, sheet := range sheets {
		err := safely(func() error {
			grid, err := rd.ReadGrid(sheet)
			if err != nil {
				return err
			}
			t, err := firstRowHeader(grid)
			if err != nil {
				return err
			}
			normalized := mapper.Apply(t)
			normalized.AddColumn(prof.ClientColumn, prof.ClientName(filename, sheet))
			r.contribute(filename, sheet, destination, normalized)
			processed++
			return nil
		})
		if errors.Is(err, ErrEmptySheet) {
			r.skipSheet(filename, sheet, destination, err.Error())
			continue
		}
		if err != nil {
			r.failSheet(filename, sheet, destination, err)
		}
	}
	if processed == 0 {
		r.logger.Warn("文件中没有可用的 sheet", zap.String("file", filename))
	}
}

// extractSecondary 次类：优先读取指定 sheet，否则读第一个；保留原始列，仅追加客户名
func (r *run) extractSecondary(rd *workbook.Reader, filename, destination string, prof profile.ContentClassified) {
	sheet := prof.SecondaryPreferredSheet
	if !rd.HasSheet(sheet) {
		names := rd.SheetNames()
		if len(names) == 0 {
			r.skipSheet(filename, "", destination, "workbook has no sheets")
			return
		}
		r.logger.Info("未找到优先 sheet，改用第一个 sheet",
			zap.String("file", filename),
			zap.String("preferred", prof.SecondaryPreferredSheet),
			zap.String("sheet", names[0]),
		)
		sheet = names[0]
	}

	err := safely(func() error {
		grid, err := rd.ReadGrid(sheet)
		if err != nil {
			return err
		}
		t, err := firstRowHeader(grid)
		if err != nil {
			return err
		}
		t.AddColumn(prof.ClientColumn, prof.ClientName(filename, ""))
		r.contribute(filename, sheet, destination, t)
		return nil
	})
	if errors.Is(err, ErrEmptySheet) {
		r.skipSheet(filename, sheet, destination, err.Error())
		return
	}
	if err != nil {
		r.failSheet(filename, sheet, destination, err)
	}
}
