package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"plantmerge/internal/config"
	"plantmerge/internal/parser"
)

func writeChokesWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Inspection data"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]interface{}{
		{"Date", "Part"},
		{"2025-01-01", "P1"},
		{"2025-01-02", "P2"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Inspection data", cell, &r); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestCombineWritesWorkbookAndReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Quality follow-up Chokes.xlsx")
	writeChokesWorkbook(t, input)

	output := filepath.Join(dir, "out.xlsx")
	reportPath := filepath.Join(dir, "report.yaml")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.toml"),
		"combine", "--plant", "anhui", "--log-level", "error",
		"-o", output, "--report", reportPath, input,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("combine failed: %v", err)
	}

	f, err := excelize.OpenFile(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Chokes")
	if err != nil {
		t.Fatalf("read Chokes: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 2 data rows, got %d", len(rows)-1)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report parser.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Plant != "anhui" || report.ImportedSheets != 1 || report.TotalFiles != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !strings.Contains(stdout.String(), "out.xlsx") {
		t.Fatalf("unexpected summary line %q", stdout.String())
	}
}

func TestCombineCustomRequiresSheetNames(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.toml"),
		"combine", "--plant", "custom", "-o", filepath.Join(dir, "out.xlsx"),
	})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "sheet names input required") {
		t.Fatalf("expected sheet names error, got %v", err)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := newLogger("loud", false); err == nil {
		t.Fatalf("expected invalid level error")
	}
	logger, err := newLogger("debug", true)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	_ = logger.Sync()
}

func TestInitConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	run := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", path, "init-config"}, args...))
		return cmd.Execute()
	}

	if err := run(); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}
	cfg, info, err := config.LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if !info.FromFile || cfg.Server.Port != config.DefaultConfig().Server.Port {
		t.Fatalf("unexpected config %+v (%+v)", cfg, info)
	}

	if err := run(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
	if err := run("--force"); err != nil {
		t.Fatalf("init-config --force failed: %v", err)
	}
}
