package consolidator

import (
	"strings"

	"plantmerge/internal/parser"
	"plantmerge/internal/profile"
	"plantmerge/internal/workbook"
)

// extractGeneric 通用模式：按文件位置取调用方指定的 sheet
func (r *run) extractGeneric(rd *workbook.Reader, filename string, fileIndex int, prof profile.Generic) {
	requested := prof.SheetsFor(fileIndex)
	if countNames(requested) == 0 {
		r.skipSheet(filename, "", "", "no sheet names requested for this file")
		return
	}

	// 空位不提取，但仍占用序号，保持与自定义输出名的位置对应
	for ordinal, sheet := range requested {
		if sheet == "" {
			continue
		}
		destination := GenericDestination(filename, sheet, prof, fileIndex, ordinal)

		if !rd.HasSheet(sheet) {
			r.skipSheet(filename, sheet, destination, "sheet not found")
			continue
		}

		err := safely(func() error {
			grid, err := rd.ReadGrid(sheet)
			if err != nil {
				return err
			}
			t, err := promoteHeader(grid, prof.MetadataRows)
			if err != nil {
				return err
			}
			r.contribute(filename, sheet, destination, t)
			return nil
		})
		if err != nil {
			r.failSheet(filename, sheet, destination, err)
		}
	}
}

func countNames(names []string) int {
	n := 0
	for _, name := range names {
		if name != "" {
			n++
		}
	}
	return n
}

// GenericDestination 通用模式的输出 sheet 名
// 有同位置的自定义名时使用之，否则为 "<文件名>_<sheet名>"（空格替换为下划线）；结果截断到 31 个字符。
func GenericDestination(filename, sheet string, prof profile.Generic, fileIndex, ordinal int) string {
	if custom, ok := prof.DestinationFor(fileIndex, ordinal); ok && custom != "" {
		return workbook.SheetName(custom)
	}
	name := parser.TrimExtension(filename) + "_" + sheet
	return workbook.SheetName(strings.ReplaceAll(name, " ", "_"))
}
