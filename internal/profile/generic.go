package profile

import "strings"

// Generic 通用模式：调用方按文件位置给出要提取的 sheet 名及可选的输出名
type Generic struct {
	// SheetGroups[i] 为第 i 个上传文件要提取的 sheet 名
	SheetGroups [][]string
	// DestinationGroups[i][j] 为 SheetGroups[i][j] 的自定义输出名；可为空
	DestinationGroups [][]string
	// MetadataRows 表头之前需要丢弃的行数
	MetadataRows int
}

func (Generic) Plant() PlantID { return PlantCustom }
func (Generic) Kind() Kind     { return KindGeneric }
func (Generic) isProfile()     {}

// NewGeneric 解析 "a,b; c" 形式的参数
func NewGeneric(sheetNamesInput, newSheetNamesInput string) (Generic, error) {
	groups := ParseGroups(sheetNamesInput)
	if !hasName(groups) {
		return Generic{}, ErrSheetNamesRequired
	}
	return Generic{
		SheetGroups:       groups,
		DestinationGroups: ParseGroups(newSheetNamesInput),
		MetadataRows:      2,
	}, nil
}

// ParseGroups 以 ";" 分隔文件、"," 分隔名称；名称去除首尾空白。
// 空输入返回 nil。组内的空名称保留为 ""，"A,,C" 中 C 仍在第 3 位；
// 整段空白的分组为空分组。
func ParseGroups(input string) [][]string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ";")
	groups := make([][]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			groups = append(groups, []string{})
			continue
		}
		names := strings.Split(part, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		groups = append(groups, names)
	}
	return groups
}

func hasName(groups [][]string) bool {
	for _, grp := range groups {
		for _, name := range grp {
			if name != "" {
				return true
			}
		}
	}
	return false
}

// SheetsFor 第 fileIndex 个文件要提取的 sheet，按位置排列；空位为 ""
func (g Generic) SheetsFor(fileIndex int) []string {
	if fileIndex < 0 || fileIndex >= len(g.SheetGroups) {
		return nil
	}
	return g.SheetGroups[fileIndex]
}

// DestinationFor 第 fileIndex 个文件第 ordinal 个 sheet 的自定义输出名
func (g Generic) DestinationFor(fileIndex, ordinal int) (string, bool) {
	if fileIndex < 0 || fileIndex >= len(g.DestinationGroups) {
		return "", false
	}
	names := g.DestinationGroups[fileIndex]
	if ordinal < 0 || ordinal >= len(names) {
		return "", false
	}
	return names[ordinal], true
}

// ExpectedSheets 用于诊断输出的全部请求 sheet
func (g Generic) ExpectedSheets() string {
	groups := make([]string, 0, len(g.SheetGroups))
	for _, grp := range g.SheetGroups {
		names := make([]string, 0, len(grp))
		for _, name := range grp {
			if name != "" {
				names = append(names, name)
			}
		}
		groups = append(groups, strings.Join(names, ", "))
	}
	return strings.Join(groups, "; ")
}
