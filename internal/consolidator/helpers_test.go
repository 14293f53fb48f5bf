package consolidator_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"plantmerge/internal/consolidator"
)

type sheetSpec struct {
	name string
	rows [][]string // nil 行表示空行
}

func buildWorkbook(t *testing.T, sheets ...sheetSpec) []byte {
	t.Helper()

	wb := excelize.NewFile()
	t.Cleanup(func() { _ = wb.Close() })

	defaultSheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	for i, s := range sheets {
		if i == 0 {
			if err := wb.SetSheetName(defaultSheet, s.name); err != nil {
				t.Fatalf("rename sheet %q: %v", s.name, err)
			}
		} else if _, err := wb.NewSheet(s.name); err != nil {
			t.Fatalf("new sheet %q: %v", s.name, err)
		}
		for r, row := range s.rows {
			if row == nil {
				continue
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := wb.SetSheetRow(s.name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow %s failed: %v", s.name, err)
			}
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func openResult(t *testing.T, res *consolidator.Result) *excelize.File {
	t.Helper()

	if res == nil || len(res.Workbook) == 0 {
		t.Fatalf("empty result workbook")
	}
	f, err := excelize.OpenReader(bytes.NewReader(res.Workbook))
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func readRows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read %s: %v", sheet, err)
	}
	return rows
}

// kunshanSheet 两行元数据 + 表头 + 数据
func kunshanSheet(name string, header []string, data ...[]string) sheetSpec {
	rows := [][]string{
		{"Report"},
		{"Line 3"},
		header,
	}
	rows = append(rows, data...)
	return sheetSpec{name: name, rows: rows}
}

func sheetNames(f *excelize.File) []string {
	return f.GetSheetList()
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
