package parser

import (
	"strings"

	"plantmerge/internal/model"
)

// MatchKind 列匹配方式
type MatchKind int

const (
	MatchNone    MatchKind = iota // 未匹配，列被丢弃
	MatchExact                    // 规范化后与标准列名完全一致
	MatchKeyword                  // 关键词子串匹配
	MatchDiscard                  // 显式丢弃（如单独的 type 列）
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchKeyword:
		return "keyword"
	case MatchDiscard:
		return "discard"
	default:
		return "none"
	}
}

// DiscardedHeaders 与目标表头无关、始终丢弃的列（规范化后比较）
var DiscardedHeaders = []string{"type"}

// ColumnRule 标准列 → 关键词列表，按声明顺序匹配，先命中者优先
type ColumnRule struct {
	Canonical string
	Keywords  []string
}

// ColumnMatch 单个原始列的匹配结果
type ColumnMatch struct {
	Index     int       `json:"index"`
	Raw       string    `json:"raw"`
	Canonical string    `json:"canonical,omitempty"`
	Kind      MatchKind `json:"kind"`
}

// FieldMapper 列名映射器：把任意原始表头映射到固定的标准表头集合
type FieldMapper struct {
	schema  []string
	rules   []ColumnRule
	exact   map[string]string
	discard map[string]struct{}
}

// NewFieldMapper 创建列名映射器
func NewFieldMapper(schema []string, rules []ColumnRule) *FieldMapper {
	m := &FieldMapper{
		schema:  append([]string(nil), schema...),
		exact:   make(map[string]string, len(schema)),
		discard: make(map[string]struct{}, len(DiscardedHeaders)),
	}
	for _, c := range schema {
		m.exact[NormalizeHeaderKey(c)] = c
	}
	for _, d := range DiscardedHeaders {
		m.discard[NormalizeHeaderKey(d)] = struct{}{}
	}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = NormalizeHeaderKey(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		m.rules = append(m.rules, ColumnRule{Canonical: r.Canonical, Keywords: kws})
	}
	return m
}

// Map 逐列匹配：显式丢弃 → 完全匹配 → 关键词匹配 → 未匹配
func (m *FieldMapper) Map(headers []string) []ColumnMatch {
	matches := make([]ColumnMatch, len(headers))
	for i, raw := range headers {
		matches[i] = m.mapColumn(i, raw)
	}
	return matches
}

func (m *FieldMapper) mapColumn(idx int, raw string) ColumnMatch {
	match := ColumnMatch{Index: idx, Raw: raw}

	key := NormalizeHeaderKey(raw)
	if key == "" {
		return match
	}
	if _, ok := m.discard[key]; ok {
		match.Kind = MatchDiscard
		return match
	}
	if canonical, ok := m.exact[key]; ok {
		match.Canonical = canonical
		match.Kind = MatchExact
		return match
	}
	for _, r := range m.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(key, kw) {
				match.Canonical = r.Canonical
				match.Kind = MatchKeyword
				return match
			}
		}
	}
	return match
}

// Apply 将表转换为标准表头
// 同一标准列被多个原始列命中时取第一个；缺失的标准列以空串补齐；未匹配列丢弃。
func (m *FieldMapper) Apply(t *model.Table) *model.Table {
	source := make(map[string]int, len(m.schema))
	for _, match := range m.Map(t.Columns) {
		if match.Canonical == "" {
			continue
		}
		if _, taken := source[match.Canonical]; taken {
			continue
		}
		source[match.Canonical] = match.Index
	}

	out := model.NewTable(m.schema...)
	for _, row := range t.Rows {
		values := make([]string, len(m.schema))
		for i, c := range m.schema {
			if idx, ok := source[c]; ok && idx < len(row) {
				values[i] = row[idx]
			}
		}
		out.Rows = append(out.Rows, values)
	}
	return out
}

// HeaderSynonym 同义表头合并为一个列名
type HeaderSynonym struct {
	From []string
	To   string
}

// ApplySynonyms 按同义词表重命名列（规范化后完全匹配），返回重命名的列数
func ApplySynonyms(t *model.Table, synonyms []HeaderSynonym) int {
	renamed := 0
	for i, c := range t.Columns {
		key := NormalizeHeaderKey(c)
		for _, syn := range synonyms {
			if containsKey(syn.From, key) {
				t.Columns[i] = syn.To
				renamed++
				break
			}
		}
	}
	if renamed > 0 {
		t.Columns = model.UniqueHeaders(t.Columns)
	}
	return renamed
}

// DropColumns 删除规范化后等于任一 key 的列，返回删除列数
func DropColumns(t *model.Table, keys ...string) int {
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !containsKey(keys, NormalizeHeaderKey(c)) {
			keep = append(keep, i)
		}
	}
	dropped := len(t.Columns) - len(keep)
	if dropped == 0 {
		return 0
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		values := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				values[j] = row[i]
			}
		}
		t.Rows[r] = values
	}
	t.Columns = cols
	return dropped
}

func containsKey(candidates []string, key string) bool {
	for _, c := range candidates {
		if NormalizeHeaderKey(c) == key {
			return true
		}
	}
	return false
}
