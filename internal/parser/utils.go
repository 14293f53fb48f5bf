package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeHeaderKey 规范化列名用于比较
// NFKC（全角转半角）、去除首尾空白、换行/制表符与连续空白压缩为单个空格、转小写。
func NormalizeHeaderKey(name string) string {
	name = norm.NFKC.String(name)
	name = whitespaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
	return strings.ToLower(name)
}

// ContainsFold 大小写不敏感的子串匹配
func ContainsFold(text string, keywords ...string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// TrimExtension 去除路径与最后一个扩展名
func TrimExtension(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
