package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"plantmerge/internal/model"
)

// MaxSheetNameLength 工作表名称长度上限（xlsx 格式硬限制）
const MaxSheetNameLength = 31

// ContentType xlsx 的 MIME 类型
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrNoFileLoaded 工作簿未打开
var ErrNoFileLoaded = errors.New("no workbook loaded")

var allowedExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"xltx": {},
	"xltm": {},
}

// AllowedExtension 判断文件扩展名是否在白名单内（大小写不敏感）
func AllowedExtension(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

// SheetName 生成合法的工作表名称：替换非法字符后截断到 31 个字符
// 首尾不能是单引号，截断后再去除一次。
func SheetName(candidate string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, candidate)
	name = strings.Trim(Truncate(strings.Trim(name, "'"), MaxSheetNameLength), "'")
	if name == "" {
		name = "Sheet"
	}
	return name
}

// Truncate 按字符（非字节）截断
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// 日期单元格在网格中的文本形式，写出时再还原为日期
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Reader 只读工作簿
type Reader struct {
	file *excelize.File
	// dateStyles 样式 ID 是否为日期格式的缓存
	dateStyles map[int]bool
}

// Open 从内存字节打开工作簿
func Open(content []byte) (*Reader, error) {
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	return &Reader{file: file, dateStyles: make(map[int]bool)}, nil
}

// SheetNames 工作表列表（文件顺序）
func (r *Reader) SheetNames() []string {
	if r == nil || r.file == nil {
		return []string{}
	}
	return r.file.GetSheetList()
}

// HasSheet 判断是否存在指定名称的工作表（大小写敏感）
func (r *Reader) HasSheet(name string) bool {
	for _, s := range r.SheetNames() {
		if s == name {
			return true
		}
	}
	return false
}

// ReadGrid 读取工作表为二维单元格网格
// 日期格式的数值单元格转为 DateLayout / DateTimeLayout 文本，其余取显示值。
func (r *Reader) ReadGrid(sheet string) ([][]string, error) {
	if r == nil || r.file == nil {
		return nil, ErrNoFileLoaded
	}
	rows, err := r.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	raw, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	date1904 := false
	if props, err := r.file.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	for i := range rows {
		if i >= len(raw) {
			break
		}
		for j := range rows[i] {
			if j >= len(raw[i]) {
				break
			}
			if v, ok := r.dateText(sheet, i, j, raw[i][j], date1904); ok {
				rows[i][j] = v
			}
		}
	}
	return rows, nil
}

func (r *Reader) dateText(sheet string, row, col int, raw string, date1904 bool) (string, bool) {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 1 {
		return "", false
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "", false
	}
	styleID, err := r.file.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return "", false
	}
	isDate, cached := r.dateStyles[styleID]
	if !cached {
		if style, err := r.file.GetStyle(styleID); err == nil {
			isDate = isDateFormat(style)
		}
		r.dateStyles[styleID] = isDate
	}
	if !isDate {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return "", false
	}
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(DateLayout), true
	}
	return t.Format(DateTimeLayout), true
}

// 带日期部分的内置数字格式（纯时间格式不在其中）
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true,
	34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true,
	55: true, 56: true, 57: true, 58: true,
}

// isDateFormat 判断样式的数字格式是否包含日期部分
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt == nil {
		return builtinDateFormats[style.NumFmt]
	}
	// 去掉引号内的字面量和 [..] 段（颜色、区域、经过时间）
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, c := range strings.ToLower(*style.CustomNumFmt) {
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(c)
		}
	}
	code := b.String()
	return strings.ContainsAny(code, "yd") || strings.Contains(code, "年")
}

// Close 释放工作簿
func (r *Reader) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Writer 累积写入的输出工作簿
type Writer struct {
	file          *excelize.File
	headerStyle   int
	dateStyle     int
	dateTimeStyle int
	sheets        []string
}

// NewWriter 创建输出工作簿
func NewWriter() *Writer {
	f := excelize.NewFile()
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	dateFmt, dateTimeFmt := "yyyy-mm-dd", "yyyy-mm-dd hh:mm:ss"
	dateStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	dateTimeStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &dateTimeFmt})
	return &Writer{
		file:          f,
		headerStyle:   style,
		dateStyle:     dateStyle,
		dateTimeStyle: dateTimeStyle,
	}
}

// SheetCount 已写入的工作表数
func (w *Writer) SheetCount() int {
	return len(w.sheets)
}

// WriteTable 将表写入一个新工作表，表头位于第 1 行
func (w *Writer) WriteTable(name string, t *model.Table) error {
	if t == nil {
		return errors.New("nil table")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("sheet %q: empty header", name)
	}
	name = SheetName(name)

	if len(w.sheets) == 0 {
		// 复用默认 Sheet1，避免输出中残留空表
		defaultSheet := w.file.GetSheetName(w.file.GetActiveSheetIndex())
		if err := w.file.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename default sheet: %w", err)
		}
	} else {
		if idx, _ := w.file.GetSheetIndex(name); idx >= 0 {
			return fmt.Errorf("sheet %q already written", name)
		}
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := w.file.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", name, err)
	}
	_ = w.file.SetRowStyle(name, 1, 1, w.headerStyle)

	for i, row := range t.Rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.file.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, name, err)
		}
		for j, v := range values {
			if _, ok := v.(time.Time); !ok {
				continue
			}
			style := w.dateStyle
			if len(row[j]) == len(DateTimeLayout) {
				style = w.dateTimeStyle
			}
			dateCell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := w.file.SetCellStyle(name, dateCell, dateCell, style); err != nil {
				return fmt.Errorf("style date cell %s of %q: %w", dateCell, name, err)
			}
		}
	}

	w.sheets = append(w.sheets, name)
	return nil
}

// Bytes 输出工作簿字节流
func (w *Writer) Bytes() ([]byte, error) {
	if len(w.sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	w.file.SetActiveSheet(0)
	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close 释放输出工作簿
func (w *Writer) Close() error {
	return w.file.Close()
}

// maxNumericDigits Excel 数值的有效位数上限
const maxNumericDigits = 15

// cellValue 还原单元格类型：日期文本写为日期，能无损往返的数字写为数值，其余保持文本
func cellValue(v string) interface{} {
	s := strings.TrimSpace(v)
	if s == "" || s != v {
		return v
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return t
	}
	if strings.ContainsAny(s, "eExXnNiI") {
		return v
	}
	digits := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	if digits > maxNumericDigits {
		return v
	}
	// "007"、"1.50"、"+5" 格式化后与原文不同，保持文本
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strconv.FormatFloat(f, 'f', -1, 64) != s {
		return v
	}
	return f
}
