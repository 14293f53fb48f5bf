package consolidator

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSheet 裁剪元数据行后不足 表头 + 1 行数据
	ErrMalformedSheet = errors.New("malformed sheet")
	// ErrEmptySheet 去除空行后没有数据
	ErrEmptySheet = errors.New("empty sheet")
	// ErrNoColumns 列处理后没有剩余列
	ErrNoColumns = errors.New("no columns left after column mapping")
	// ErrNilProfile 未指定工厂策略
	ErrNilProfile = errors.New("plant profile is required")
)

// SheetError 单个 sheet 处理失败
type SheetError struct {
	File  string
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("file %q: %v", e.File, e.Err)
	}
	return fmt.Sprintf("sheet %q in %q: %v", e.Sheet, e.File, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}
