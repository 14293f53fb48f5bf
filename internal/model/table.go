package model

import (
	"fmt"
	"strings"
)

// Table 有序列名 + 与列对齐的行数据
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable 创建空表（仅表头）
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		Columns: cols,
		Rows:    [][]string{},
	}
}

// TableFromGrid 将表头行与数据行组装为 Table
// 表头空白列命名为 ColumnN，重复列名追加 _2、_3 后缀；数据行宽于表头时表头补齐。
func TableFromGrid(header []string, rows [][]string) *Table {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	padded := make([]string, width)
	copy(padded, header)

	t := NewTable(UniqueHeaders(padded)...)
	for _, row := range rows {
		t.AppendRow(row)
	}
	return t
}

// UniqueHeaders 规范化表头：去除首尾空白、补齐空列名、消除重名
func UniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column%d", i+1)
		}
		base := name
		for n := seen[base]; n > 0; n++ {
			candidate := fmt.Sprintf("%s_%d", base, n+1)
			if _, taken := seen[candidate]; !taken {
				name = candidate
				break
			}
		}
		seen[base]++
		if name != base {
			seen[name]++
		}
		out[i] = name
	}
	return out
}

// Len 数据行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex 返回列位置，不存在返回 -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow 追加一行，按列数补齐或截断
func (t *Table) AppendRow(row []string) {
	out := make([]string, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// AddColumn 追加常量列；同名列已存在时覆盖其值
func (t *Table) AddColumn(name, value string) {
	if idx := t.ColumnIndex(name); idx >= 0 {
		for _, row := range t.Rows {
			row[idx] = value
		}
		return
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// DropBlankRows 删除所有单元格均为空白的行
func (t *Table) DropBlankRows() int {
	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		if IsBlankRow(row) {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return dropped
}

// IsBlankRow 判断一行是否全部为空白
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Concat 按顺序堆叠多个表
// 列集合不一致时取并集（首次出现顺序），缺失列以空串填充。
func Concat(tables ...*Table) *Table {
	out := NewTable()
	index := make(map[string]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := index[c]; ok {
				continue
			}
			index[c] = len(out.Columns)
			out.Columns = append(out.Columns, c)
		}
	}

	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			merged := make([]string, len(out.Columns))
			for i, c := range t.Columns {
				if i < len(row) {
					merged[index[c]] = row[i]
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
