// Package profile 定义各工厂（plant）的表格约定：取哪些 sheet、如何裁剪、如何命名输出 sheet。
//
// Profile 是封闭的三选一类型（Generic / FixedMapping / ContentClassified），
// 各变体持有只读配置，由调用方按请求显式选择。
package profile

import (
	"errors"
	"fmt"
	"strings"
)

// PlantID 调用方可选择的工厂标识
type PlantID string

const (
	PlantKunshan PlantID = "kunshan"
	PlantAnhui   PlantID = "anhui"
	PlantCustom  PlantID = "custom"
)

// Plants 已知的工厂标识
var Plants = []PlantID{PlantKunshan, PlantAnhui, PlantCustom}

var (
	// ErrSheetNamesRequired 通用模式缺少 sheet 名称参数
	ErrSheetNamesRequired = errors.New("sheet names input required")
	// ErrUnknownPlant 未知工厂标识
	ErrUnknownPlant = errors.New("unknown plant")
)

// Kind 策略类型
type Kind string

const (
	KindGeneric           Kind = "generic"
	KindFixedMapping      Kind = "fixed_mapping"
	KindContentClassified Kind = "content_classified"
)

// Profile 工厂策略；仅本包内的三个类型实现
type Profile interface {
	Plant() PlantID
	Kind() Kind
	isProfile()
}

// Lookup 根据工厂标识构造策略
// sheetNames / newSheetNames 仅通用模式使用。
func Lookup(id PlantID, sheetNames, newSheetNames string) (Profile, error) {
	switch PlantID(strings.ToLower(strings.TrimSpace(string(id)))) {
	case PlantKunshan:
		return Kunshan(), nil
	case PlantAnhui:
		return Anhui(), nil
	case PlantCustom:
		g, err := NewGeneric(sheetNames, newSheetNames)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlant, id)
	}
}

// OutputFilename 建议的下载文件名
func OutputFilename(p Profile) string {
	if p.Kind() == KindGeneric {
		return "combined.xlsx"
	}
	return fmt.Sprintf("%s_combined.xlsx", p.Plant())
}
