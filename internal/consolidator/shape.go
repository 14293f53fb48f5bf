package consolidator

import (
	"fmt"

	"plantmerge/internal/model"
)

// promoteHeader 丢弃前 metadataRows 行元数据，下一行作为表头，其余为数据
// 裁剪后至少需要 2 行（表头 + 数据）。
func promoteHeader(grid [][]string, metadataRows int) (*model.Table, error) {
	if metadataRows < 0 {
		metadataRows = 0
	}
	remaining := len(grid) - metadataRows
	if remaining < 2 {
		if remaining < 0 {
			remaining = 0
		}
		return nil, fmt.Errorf("%w: %d rows left after dropping %d metadata rows", ErrMalformedSheet, remaining, metadataRows)
	}
	trimmed := grid[metadataRows:]
	if model.IsBlankRow(trimmed[0]) {
		return nil, fmt.Errorf("%w: header row %d is blank", ErrMalformedSheet, metadataRows+1)
	}
	return model.TableFromGrid(trimmed[0], trimmed[1:]), nil
}

// firstRowHeader 第一行作为表头，去除全空行
func firstRowHeader(grid [][]string) (*model.Table, error) {
	if len(grid) == 0 || model.IsBlankRow(grid[0]) {
		return nil, fmt.Errorf("%w: no header row", ErrEmptySheet)
	}
	t := model.TableFromGrid(grid[0], grid[1:])
	t.DropBlankRows()
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrEmptySheet)
	}
	return t, nil
}

// safely 将单个 sheet 处理中的 panic 转为错误，避免中断整批
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
