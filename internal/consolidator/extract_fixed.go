package consolidator

import (
	"plantmerge/internal/parser"
	"plantmerge/internal/profile"
	"plantmerge/internal/workbook"
)

// extractFixed 固定映射：sheet 名查表，可重复的 sheet 按整个请求内的出现序号分配输出名
func (r *run) extractFixed(rd *workbook.Reader, filename string, prof profile.FixedMapping) {
	for _, sheet := range rd.SheetNames() {
		route, ok := prof.Route(sheet)
		if !ok {
			r.skipSheet(filename, sheet, "", "not in predefined mapping")
			continue
		}

		ordinal := 0
		if route.Repeatable {
			// 序号在路由时即被占用，即使随后该 sheet 处理失败
			ordinal = r.ordinals[route.Source]
			r.ordinals[route.Source]++
		}
		destination := workbook.SheetName(route.Destination(ordinal))

		err := safely(func() error {
			grid, err := rd.ReadGrid(sheet)
			if err != nil {
				return err
			}
			t, err := promoteHeader(grid, prof.MetadataRows)
			if err != nil {
				return err
			}
			parser.ApplySynonyms(t, prof.HeaderSynonyms)
			parser.DropColumns(t, prof.DropColumns...)
			if len(t.Columns) == 0 {
				return ErrNoColumns
			}
			r.contribute(filename, sheet, destination, t)
			return nil
		})
		if err != nil {
			r.failSheet(filename, sheet, destination, err)
		}
	}
}
