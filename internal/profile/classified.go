package profile

import (
	"regexp"
	"strings"

	"plantmerge/internal/parser"
)

// Category 内容分类结果
type Category int

const (
	CategoryPrimary Category = iota
	CategorySecondary
)

// ContentClassified 按文件名/sheet 名关键词分类的模式（安徽）
type ContentClassified struct {
	ID PlantID

	// 文件名包含任一关键词（大小写不敏感）即归入次类
	SecondaryKeywords []string
	// 次类优先读取的 sheet；不存在时读取第一个 sheet
	SecondaryPreferredSheet string
	// 次类文件统一的客户名
	SecondaryClientName string

	// 主类 sheet 名需包含的标记；一个都没有时尝试所有 sheet
	PrimaryMarker string
	// 从文件名/sheet 名中剥离的后缀（如 "2025质量汇总表"）
	ClientSuffix *regexp.Regexp

	PrimaryDestination   string
	SecondaryDestination string

	// 主类标准表头（不含客户名列）
	Schema      []string
	ColumnRules []parser.ColumnRule
	// 追加在末尾的客户名列
	ClientColumn string
}

func (p ContentClassified) Plant() PlantID { return p.ID }
func (ContentClassified) Kind() Kind       { return KindContentClassified }
func (ContentClassified) isProfile()       {}

// Classify 根据文件名判断类别
func (p ContentClassified) Classify(filename string) Category {
	if parser.ContainsFold(filename, p.SecondaryKeywords...) {
		return CategorySecondary
	}
	return CategoryPrimary
}

// Destination 类别对应的输出 sheet
func (p ContentClassified) Destination(c Category) string {
	if c == CategorySecondary {
		return p.SecondaryDestination
	}
	return p.PrimaryDestination
}

// Categories 输出顺序（次类在前，与历史输出一致）
func (p ContentClassified) Categories() []Category {
	return []Category{CategorySecondary, CategoryPrimary}
}

// PlaceholderHeader 类别无数据时输出的表头
func (p ContentClassified) PlaceholderHeader(c Category) []string {
	if c == CategorySecondary {
		return []string{p.ClientColumn}
	}
	return p.FullSchema()
}

// FullSchema 主类完整表头（标准列 + 客户名列）
func (p ContentClassified) FullSchema() []string {
	out := make([]string, 0, len(p.Schema)+1)
	out = append(out, p.Schema...)
	return append(out, p.ClientColumn)
}

// PrimarySheets 主类文件中要处理的 sheet；没有带标记的 sheet 时返回全部
func (p ContentClassified) PrimarySheets(sheets []string) (selected []string, fallback bool) {
	for _, s := range sheets {
		if strings.Contains(s, p.PrimaryMarker) {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		return append([]string(nil), sheets...), true
	}
	return selected, false
}

// ClientName 从文件名（优先）或 sheet 名推导客户名
func (p ContentClassified) ClientName(filename, sheetName string) string {
	base := strings.TrimSpace(parser.TrimExtension(filename))

	if p.Classify(base) == CategorySecondary {
		return p.SecondaryClientName
	}

	if strings.Contains(base, p.PrimaryMarker) {
		if name := p.stripSuffix(base); name != "" {
			return name
		}
	}
	if sheetName != "" && strings.Contains(sheetName, p.PrimaryMarker) {
		if name := p.stripSuffix(sheetName); name != "" {
			return name
		}
	}
	return base
}

func (p ContentClassified) stripSuffix(s string) string {
	if p.ClientSuffix == nil {
		return strings.TrimSpace(strings.ReplaceAll(s, p.PrimaryMarker, ""))
	}
	return strings.TrimSpace(p.ClientSuffix.ReplaceAllString(s, ""))
}

// AnhuiSchema 安徽刷卡质量汇总标准表头（中英双语）
var AnhuiSchema = []string{
	"生产日期\nProduction Date",
	"检验日期\nInspection Date",
	"型号\nType",
	"不良部位\nDefective Part",
	"不良名称\nDefect Name",
	"数量\nQuantity",
	"处理方式\nHandling method",
	"原因\nCause of defect",
	"检验站别\nInspection station",
	"当日检数量\nInspection quantity",
	"备注\nRemark",
}

// AnhuiClientColumn 客户名列
const AnhuiClientColumn = "客户名称\nClient Name"

// AnhuiColumnRules 关键词匹配表；更具体的列排在前面（"当日检数量" 先于 "数量"）
var AnhuiColumnRules = []parser.ColumnRule{
	{Canonical: AnhuiSchema[0], Keywords: []string{"生产日期", "production date", "prod date"}},
	{Canonical: AnhuiSchema[1], Keywords: []string{"检验日期", "inspection date", "inspect date"}},
	{Canonical: AnhuiSchema[9], Keywords: []string{"当日检数量", "inspection quantity", "daily inspection"}},
	{Canonical: AnhuiSchema[8], Keywords: []string{"检验站别", "inspection station", "station"}},
	{Canonical: AnhuiSchema[2], Keywords: []string{"型号", "type", "model"}},
	{Canonical: AnhuiSchema[3], Keywords: []string{"不良部位", "defective part", "defect part"}},
	{Canonical: AnhuiSchema[4], Keywords: []string{"不良名称", "defect name", "defective name"}},
	{Canonical: AnhuiSchema[5], Keywords: []string{"数量", "quantity", "qty"}},
	{Canonical: AnhuiSchema[6], Keywords: []string{"处理方式", "handling method", "handling"}},
	{Canonical: AnhuiSchema[7], Keywords: []string{"原因", "cause", "reason"}},
	{Canonical: AnhuiSchema[10], Keywords: []string{"备注", "remark", "note", "comment"}},
}

// Anhui 安徽工厂配置
func Anhui() ContentClassified {
	return ContentClassified{
		ID:                      PlantAnhui,
		SecondaryKeywords:       []string{"choke", "chocke"},
		SecondaryPreferredSheet: "Inspection data",
		SecondaryClientName:     "Chokes",
		PrimaryMarker:           "质量汇总表",
		ClientSuffix:            regexp.MustCompile(`\s*(\d{4})?\s*质量汇总表`),
		PrimaryDestination:      "Brushcards",
		SecondaryDestination:    "Chokes",
		Schema:                  AnhuiSchema,
		ColumnRules:             AnhuiColumnRules,
		ClientColumn:            AnhuiClientColumn,
	}
}
