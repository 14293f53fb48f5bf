package profile

import (
	"fmt"
	"strings"

	"plantmerge/internal/parser"
)

// FixedRoute 原始 sheet 名 → 输出 sheet
// Repeatable 为 true 时，同名 sheet 在整个请求内第 N 次出现映射到 Destinations[N-1]。
type FixedRoute struct {
	Source       string
	Destinations []string
	Repeatable   bool
}

// FixedMapping 固定映射模式（昆山）
type FixedMapping struct {
	ID             PlantID
	Routes         []FixedRoute
	MetadataRows   int
	HeaderSynonyms []parser.HeaderSynonym
	DropColumns    []string
}

func (p FixedMapping) Plant() PlantID { return p.ID }
func (FixedMapping) Kind() Kind       { return KindFixedMapping }
func (FixedMapping) isProfile()       {}

// Route 查找 sheet 对应的路由（去除首尾空白后精确匹配）
func (p FixedMapping) Route(sheetName string) (FixedRoute, bool) {
	name := strings.TrimSpace(sheetName)
	for _, r := range p.Routes {
		if r.Source == name {
			return r, true
		}
	}
	return FixedRoute{}, false
}

// Destination 第 ordinal 次（从 0 开始）出现时的输出名
func (r FixedRoute) Destination(ordinal int) string {
	if !r.Repeatable {
		if len(r.Destinations) == 0 {
			return r.Source
		}
		return r.Destinations[0]
	}
	if ordinal < len(r.Destinations) {
		return r.Destinations[ordinal]
	}
	return fmt.Sprintf("%s_%d", r.Source, ordinal+1)
}

// ExpectedSheets 用于诊断输出
func (p FixedMapping) ExpectedSheets() string {
	names := make([]string, 0, len(p.Routes))
	for _, r := range p.Routes {
		if r.Repeatable {
			names = append(names, r.Source+" (multiple)")
			continue
		}
		names = append(names, r.Source)
	}
	return strings.Join(names, ", ")
}

// Kunshan 昆山工厂配置
func Kunshan() FixedMapping {
	return FixedMapping{
		ID: PlantKunshan,
		Routes: []FixedRoute{
			{Source: "Date", Destinations: []string{"WindingStationRodChoke"}},
			{
				Source: "Data",
				Destinations: []string{
					"GluingStationRodChoke",
					"RodChokeFinalInspection",
					"FuseChokeFinalInspection",
				},
				Repeatable: true,
			},
			{Source: "Inspection data", Destinations: []string{"WindingStationFuseChoke"}},
		},
		MetadataRows: 2,
		HeaderSynonyms: []parser.HeaderSynonym{
			{From: []string{"day", "inspect date"}, To: "date"},
		},
		DropColumns: parser.DiscardedHeaders,
	}
}
