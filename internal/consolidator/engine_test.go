package consolidator_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"plantmerge/internal/consolidator"
	"plantmerge/internal/parser"
	"plantmerge/internal/profile"
)

func newEngine() *consolidator.Engine {
	return consolidator.NewEngine(zap.NewNop())
}

func TestConsolidateKunshanRepeatableOrdinals(t *testing.T) {
	t.Parallel()

	header := []string{"Day", "Value", "Type"}
	file := func(tag string) []byte {
		return buildWorkbook(t,
			kunshanSheet("Date", header, []string{tag + "-date", "1"}),
			kunshanSheet("Data", header, []string{tag + "-data1", "2"}),
			kunshanSheet("Data ", header, []string{tag + "-data2", "3"}),
			kunshanSheet("Inspection data", header, []string{tag + "-insp", "4"}),
		)
	}

	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "line1.xlsx", Content: file("f1")},
		{Filename: "line2.xlsx", Content: file("f2")},
	}, profile.Kunshan())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if res.Filename != "kunshan_combined.xlsx" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}

	out := openResult(t, res)
	want := []string{
		"WindingStationRodChoke",
		"GluingStationRodChoke",
		"RodChokeFinalInspection",
		"WindingStationFuseChoke",
		"FuseChokeFinalInspection",
		"Data_4",
	}
	if got := sheetNames(out); !equalStrings(got, want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}

	cases := map[string][]string{
		"WindingStationRodChoke":   {"f1-date", "f2-date"},
		"GluingStationRodChoke":    {"f1-data1"},
		"RodChokeFinalInspection":  {"f1-data2"},
		"FuseChokeFinalInspection": {"f2-data1"},
		"Data_4":                   {"f2-data2"},
		"WindingStationFuseChoke":  {"f1-insp", "f2-insp"},
	}
	for sheet, firstCol := range cases {
		rows := readRows(t, out, sheet)
		if len(rows) != len(firstCol)+1 {
			t.Fatalf("%s: expected %d rows, got %d", sheet, len(firstCol)+1, len(rows))
		}
		if !equalStrings(rows[0], []string{"date", "Value"}) {
			t.Fatalf("%s: unexpected header %v", sheet, rows[0])
		}
		for i, v := range firstCol {
			if rows[i+1][0] != v {
				t.Fatalf("%s row %d: expected %q, got %q", sheet, i+1, v, rows[i+1][0])
			}
		}
	}

	if res.Report.ImportedSheets != 8 {
		t.Fatalf("expected 8 imported sheets, got %d", res.Report.ImportedSheets)
	}
}

func TestConsolidateKunshanOneDataSheetPerFile(t *testing.T) {
	t.Parallel()

	header := []string{"Date", "Value"}
	var files []consolidator.InputFile
	for _, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx", "d.xlsx"} {
		files = append(files, consolidator.InputFile{
			Filename: name,
			Content:  buildWorkbook(t, kunshanSheet("Data", header, []string{name, "1"})),
		})
	}

	res, err := newEngine().Consolidate(files, profile.Kunshan())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	want := []string{"GluingStationRodChoke", "RodChokeFinalInspection", "FuseChokeFinalInspection", "Data_4"}
	if got := sheetNames(openResult(t, res)); !equalStrings(got, want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
}

func TestConsolidateKunshanFailedSheetKeepsOrdinal(t *testing.T) {
	t.Parallel()

	header := []string{"Date", "Value"}
	content := buildWorkbook(t,
		sheetSpec{name: "Data", rows: [][]string{{"only one row"}}},
		kunshanSheet("Data ", header, []string{"second", "1"}),
		kunshanSheet("Notes", header, []string{"x", "1"}),
	)

	res, err := newEngine().Consolidate([]consolidator.InputFile{{Filename: "a.xlsx", Content: content}}, profile.Kunshan())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	out := openResult(t, res)
	if got := sheetNames(out); !equalStrings(got, []string{"RodChokeFinalInspection"}) {
		t.Fatalf("unexpected sheets %v", got)
	}

	var errored, skipped int
	for _, s := range res.Report.Sheets {
		switch s.Status {
		case parser.StatusError:
			errored++
			if !strings.Contains(s.Reason, "malformed") {
				t.Fatalf("unexpected reason %q", s.Reason)
			}
		case parser.StatusSkipped:
			skipped++
			if s.Sheet != "Notes" {
				t.Fatalf("unexpected skipped sheet %q", s.Sheet)
			}
		}
	}
	if errored != 1 || skipped != 1 {
		t.Fatalf("expected 1 error and 1 skip, got %d/%d", errored, skipped)
	}
}

func TestConsolidateNoProcessableFilesWritesSummary(t *testing.T) {
	t.Parallel()

	content := buildWorkbook(t, sheetSpec{name: "Other", rows: [][]string{{"a"}, {"b"}, {"c"}, {"d"}}})
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "a.xlsx", Content: content},
		{Filename: "notes.txt", Content: []byte("hello")},
	}, profile.Kunshan())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	out := openResult(t, res)
	if got := sheetNames(out); !equalStrings(got, []string{consolidator.SummarySheet}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	rows := readRows(t, out, consolidator.SummarySheet)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if !equalStrings(rows[0], []string{"Status", "Message", "Expected_Sheets", "Files_Processed"}) {
		t.Fatalf("unexpected summary header %v", rows[0])
	}
	if rows[1][3] != "2" {
		t.Fatalf("expected Files_Processed 2, got %q", rows[1][3])
	}
	if !strings.Contains(rows[1][2], "Inspection data") {
		t.Fatalf("expected sheets missing: %q", rows[1][2])
	}
	if res.Report.SkippedFiles != 1 {
		t.Fatalf("expected txt file skipped, got %d", res.Report.SkippedFiles)
	}
}

func TestConsolidateCorruptFileDoesNotAbort(t *testing.T) {
	t.Parallel()

	header := []string{"Date", "Value"}
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "broken.xlsx", Content: []byte("not a zip")},
		{Filename: "good.xlsx", Content: buildWorkbook(t, kunshanSheet("Date", header, []string{"d", "1"}))},
	}, profile.Kunshan())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if got := sheetNames(openResult(t, res)); !equalStrings(got, []string{"WindingStationRodChoke"}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	if res.Report.ProcessedFiles != 1 || res.Report.SkippedFiles != 1 {
		t.Fatalf("unexpected counters processed=%d skipped=%d", res.Report.ProcessedFiles, res.Report.SkippedFiles)
	}
	failed := res.Report.Skipped()
	if len(failed) == 0 || failed[0].File != "broken.xlsx" || failed[0].Status != parser.StatusError {
		t.Fatalf("expected broken.xlsx recorded as error, got %+v", failed)
	}
}

func TestConsolidateGenericSynthesizedNames(t *testing.T) {
	t.Parallel()

	meta := [][]string{{"title"}, {"subtitle"}, {"Name", "Qty"}}
	withData := func(v string) [][]string {
		rows := append([][]string{}, meta...)
		return append(rows, []string{v, "1"})
	}

	prof, err := profile.NewGeneric("Sheet1,Sheet2; Sheet1", "")
	if err != nil {
		t.Fatalf("NewGeneric failed: %v", err)
	}
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "a.xlsx", Content: buildWorkbook(t,
			sheetSpec{name: "Sheet1", rows: withData("a1")},
			sheetSpec{name: "Sheet2", rows: withData("a2")},
		)},
		{Filename: "b file.xlsx", Content: buildWorkbook(t,
			sheetSpec{name: "Sheet1", rows: withData("b1")},
		)},
	}, prof)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if res.Filename != "combined.xlsx" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}

	out := openResult(t, res)
	want := []string{"a_Sheet1", "a_Sheet2", "b_file_Sheet1"}
	if got := sheetNames(out); !equalStrings(got, want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	rows := readRows(t, out, "b_file_Sheet1")
	if len(rows) != 2 || rows[1][0] != "b1" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestConsolidateGenericBlankCustomNameKeepsPosition(t *testing.T) {
	t.Parallel()

	sheet := func(name, v string) sheetSpec {
		return sheetSpec{name: name, rows: [][]string{{"title"}, {"sub"}, {"Name"}, {v}}}
	}

	prof, err := profile.NewGeneric("S1,S2,S3", "A,,C")
	if err != nil {
		t.Fatalf("NewGeneric failed: %v", err)
	}
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "f.xlsx", Content: buildWorkbook(t, sheet("S1", "v1"), sheet("S2", "v2"), sheet("S3", "v3"))},
	}, prof)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	out := openResult(t, res)
	want := []string{"A", "f_S2", "C"}
	if got := sheetNames(out); !equalStrings(got, want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	if rows := readRows(t, out, "C"); len(rows) != 2 || rows[1][0] != "v3" {
		t.Fatalf("S3 must land in C, got %v", rows)
	}
}

func TestConsolidateGenericBlankSheetNameSkipsPosition(t *testing.T) {
	t.Parallel()

	sheet := func(name, v string) sheetSpec {
		return sheetSpec{name: name, rows: [][]string{{"title"}, {"sub"}, {"Name"}, {v}}}
	}

	prof, err := profile.NewGeneric("S1,,S3", "A,B,C")
	if err != nil {
		t.Fatalf("NewGeneric failed: %v", err)
	}
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "f.xlsx", Content: buildWorkbook(t, sheet("S1", "v1"), sheet("S3", "v3"))},
	}, prof)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if got := sheetNames(openResult(t, res)); !equalStrings(got, []string{"A", "C"}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	if res.Report.ImportedSheets != 2 || res.Report.SkippedSheets != 0 {
		t.Fatalf("unexpected report %+v", res.Report)
	}
}

func TestConsolidateGenericSameDestinationMerges(t *testing.T) {
	t.Parallel()

	sheet := func(header []string, data ...[]string) sheetSpec {
		rows := [][]string{{"title"}, {"sub"}, header}
		return sheetSpec{name: "Sheet1", rows: append(rows, data...)}
	}

	prof, err := profile.NewGeneric("Sheet1; Sheet1", "Merged; merged")
	if err != nil {
		t.Fatalf("NewGeneric failed: %v", err)
	}
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "x.xlsx", Content: buildWorkbook(t, sheet([]string{"Name", "Qty"},
			[]string{"x1", "1"}, []string{"x2", "2"}, []string{"x3", "3"}))},
		{Filename: "y.xlsx", Content: buildWorkbook(t, sheet([]string{"Name", "Note"},
			[]string{"y1", "n1"}, []string{"y2", "n2"}))},
	}, prof)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	out := openResult(t, res)
	if got := sheetNames(out); !equalStrings(got, []string{"Merged"}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	rows := readRows(t, out, "Merged")
	if len(rows) != 6 {
		t.Fatalf("expected 5 data rows, got %d", len(rows)-1)
	}
	if !equalStrings(rows[0], []string{"Name", "Qty", "Note"}) {
		t.Fatalf("unexpected header %v", rows[0])
	}
	order := []string{"x1", "x2", "x3", "y1", "y2"}
	for i, v := range order {
		if rows[i+1][0] != v {
			t.Fatalf("row %d: expected %q, got %q", i+1, v, rows[i+1][0])
		}
	}
	if rows[4][1] != "" || rows[4][2] != "n1" {
		t.Fatalf("expected empty Qty and Note n1, got %v", rows[4])
	}
}

func TestConsolidateGenericMissingSheetNames(t *testing.T) {
	t.Parallel()

	if _, err := profile.NewGeneric("  ", ""); !errors.Is(err, profile.ErrSheetNamesRequired) {
		t.Fatalf("expected ErrSheetNamesRequired, got %v", err)
	}
	_, err := newEngine().Consolidate(nil, profile.Generic{})
	if !errors.Is(err, profile.ErrSheetNamesRequired) {
		t.Fatalf("expected ErrSheetNamesRequired, got %v", err)
	}
	if _, err := newEngine().Consolidate(nil, nil); !errors.Is(err, consolidator.ErrNilProfile) {
		t.Fatalf("expected ErrNilProfile, got %v", err)
	}
}

func TestConsolidateGenericMissingSheetSkipped(t *testing.T) {
	t.Parallel()

	prof, err := profile.NewGeneric("Missing", "")
	if err != nil {
		t.Fatalf("NewGeneric failed: %v", err)
	}
	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "a.xlsx", Content: buildWorkbook(t, sheetSpec{name: "Sheet1", rows: [][]string{{"x"}}})},
	}, prof)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if got := sheetNames(openResult(t, res)); !equalStrings(got, []string{consolidator.SummarySheet}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	if res.Report.SkippedSheets != 1 || res.Report.Sheets[0].Reason != "sheet not found" {
		t.Fatalf("unexpected report %+v", res.Report.Sheets)
	}
}

func TestGenericDestinationTruncation(t *testing.T) {
	t.Parallel()

	prof := profile.Generic{SheetGroups: [][]string{{"S"}}}
	for _, n := range []int{29, 30, 198} {
		filename := strings.Repeat("f", n) + ".xlsx"
		got := consolidator.GenericDestination(filename, "S", prof, 0, 0)
		wantLen := n + 2
		if wantLen > 31 {
			wantLen = 31
		}
		if len([]rune(got)) != wantLen {
			t.Fatalf("len(%d) destination %q has %d chars, want %d", n+2, got, len([]rune(got)), wantLen)
		}
	}

	custom := profile.Generic{
		SheetGroups:       [][]string{{"S"}},
		DestinationGroups: [][]string{{"Out/Put"}},
	}
	if got := consolidator.GenericDestination("a.xlsx", "S", custom, 0, 0); got != "Out_Put" {
		t.Fatalf("unexpected custom destination %q", got)
	}
}

func TestConsolidateAnhuiChokes(t *testing.T) {
	t.Parallel()

	content := buildWorkbook(t,
		sheetSpec{name: "Summary", rows: [][]string{{"ignored"}, {"x"}}},
		sheetSpec{name: "Inspection data", rows: [][]string{
			{"Date", "Part", "Defect"},
			{"2025-01-01", "P1", "scratch"},
			{"2025-01-02", "P2", "dent"},
			nil,
			{"2025-01-03", "P3", "crack"},
		}},
	)

	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "Quality follow-up Chokes.xlsx", Content: content},
	}, profile.Anhui())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if res.Filename != "anhui_combined.xlsx" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}

	out := openResult(t, res)
	if got := sheetNames(out); !equalStrings(got, []string{"Chokes", "Brushcards"}) {
		t.Fatalf("unexpected sheets %v", got)
	}

	rows := readRows(t, out, "Chokes")
	if len(rows) != 4 {
		t.Fatalf("expected 3 data rows, got %d", len(rows)-1)
	}
	if !equalStrings(rows[0], []string{"Date", "Part", "Defect", profile.AnhuiClientColumn}) {
		t.Fatalf("unexpected header %v", rows[0])
	}
	for i, row := range rows[1:] {
		if row[3] != "Chokes" {
			t.Fatalf("row %d: expected client Chokes, got %q", i+1, row[3])
		}
	}

	brush := readRows(t, out, "Brushcards")
	if len(brush) != 1 || !equalStrings(brush[0], profile.Anhui().FullSchema()) {
		t.Fatalf("expected Brushcards placeholder header, got %v", brush)
	}
}

func TestConsolidateAnhuiBrushcards(t *testing.T) {
	t.Parallel()

	content := buildWorkbook(t,
		sheetSpec{name: "ACME 2025质量汇总表", rows: [][]string{
			{"Prod Date", "Inspect Date", "Type", "Model", "Defect Name", "Qty", "Daily Inspection", "Station", "Extra"},
			{"d1", "d2", "bare-type", "T-1", "burr", "3", "100", "S1", "drop"},
		}},
		sheetSpec{name: "Notes", rows: [][]string{{"x"}, {"y"}}},
	)

	res, err := newEngine().Consolidate([]consolidator.InputFile{
		{Filename: "ACME 2025质量汇总表.xlsx", Content: content},
	}, profile.Anhui())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	out := openResult(t, res)
	rows := readRows(t, out, "Brushcards")
	schema := profile.Anhui().FullSchema()
	if !equalStrings(rows[0], schema) {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if len(rows) != 2 {
		t.Fatalf("expected 1 data row, got %d", len(rows)-1)
	}

	got := make(map[string]string)
	for i, col := range schema {
		if i < len(rows[1]) {
			got[col] = rows[1][i]
		}
	}
	expect := map[string]string{
		profile.AnhuiSchema[0]:    "d1",
		profile.AnhuiSchema[1]:    "d2",
		profile.AnhuiSchema[2]:    "T-1",
		profile.AnhuiSchema[4]:    "burr",
		profile.AnhuiSchema[5]:    "3",
		profile.AnhuiSchema[8]:    "S1",
		profile.AnhuiSchema[9]:    "100",
		profile.AnhuiClientColumn: "ACME",
	}
	for col, v := range expect {
		if got[col] != v {
			t.Fatalf("column %q: expected %q, got %q", col, v, got[col])
		}
	}

	chokes := readRows(t, out, "Chokes")
	if len(chokes) != 1 || !equalStrings(chokes[0], []string{profile.AnhuiClientColumn}) {
		t.Fatalf("expected Chokes placeholder header, got %v", chokes)
	}
}

func TestConsolidateAnhuiNoFiles(t *testing.T) {
	t.Parallel()

	res, err := newEngine().Consolidate(nil, profile.Anhui())
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	out := openResult(t, res)
	if got := sheetNames(out); !equalStrings(got, []string{"Chokes", "Brushcards"}) {
		t.Fatalf("unexpected sheets %v", got)
	}
	for _, d := range res.Report.Destinations {
		if !d.Placeholder || d.Rows != 0 {
			t.Fatalf("expected placeholder destination, got %+v", d)
		}
	}
}
