package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plantmerge/internal/parser"
)

// Run 一次合并请求的持久化记录
type Run struct {
	ID             string                      `json:"id"`
	Plant          string                      `json:"plant"`
	TotalFiles     int                         `json:"totalFiles"`
	ProcessedFiles int                         `json:"processedFiles"`
	SkippedFiles   int                         `json:"skippedFiles"`
	ImportedSheets int                         `json:"importedSheets"`
	SkippedSheets  int                         `json:"skippedSheets"`
	TotalRows      int                         `json:"totalRows"`
	DurationMS     int64                       `json:"durationMs"`
	OutputFilename string                      `json:"outputFilename"`
	Destinations   []parser.DestinationSummary `json:"destinations"`
	CreatedAt      time.Time                   `json:"createdAt"`
	Sheets         []parser.SheetResult        `json:"sheets,omitempty"`
}

// SaveRun 保存运行报告及逐 sheet 结果
func (s *Store) SaveRun(report *parser.RunReport, outputFilename string) error {
	if report == nil || report.RunID == "" {
		return errors.New("run report without id")
	}

	destJSON, err := json.Marshal(report.Destinations)
	if err != nil {
		return fmt.Errorf("failed to encode destinations: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, plant,
			total_files, processed_files, skipped_files,
			imported_sheets, skipped_sheets, total_rows,
			duration_ms, output_filename, destinations_json,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID, report.Plant,
		report.TotalFiles, report.ProcessedFiles, report.SkippedFiles,
		report.ImportedSheets, report.SkippedSheets, report.TotalRows(),
		report.Duration.Milliseconds(), outputFilename, string(destJSON),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_sheets (run_id, seq, file, sheet, destination, status, row_count, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare run_sheets insert: %w", err)
	}
	defer stmt.Close()

	for i, sh := range report.Sheets {
		if _, err := stmt.Exec(report.RunID, i, sh.File, sh.Sheet, sh.Destination, string(sh.Status), sh.Rows, sh.Reason); err != nil {
			return fmt.Errorf("failed to insert run_sheets: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `
	id, plant,
	total_files, processed_files, skipped_files,
	imported_sheets, skipped_sheets, total_rows,
	duration_ms, output_filename, destinations_json,
	created_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var destJSON string
	if err := row.Scan(
		&r.ID, &r.Plant,
		&r.TotalFiles, &r.ProcessedFiles, &r.SkippedFiles,
		&r.ImportedSheets, &r.SkippedSheets, &r.TotalRows,
		&r.DurationMS, &r.OutputFilename, &destJSON,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.Destinations = []parser.DestinationSummary{}
	if destJSON != "" {
		if err := json.Unmarshal([]byte(destJSON), &r.Destinations); err != nil {
			return nil, fmt.Errorf("failed to decode destinations of run %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

// ListRuns 最近的运行记录（不含逐 sheet 结果），新的在前
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun 查询单次运行及其逐 sheet 结果
func (s *Store) GetRun(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT file, sheet, destination, status, row_count, reason
		FROM run_sheets WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run_sheets: %w", err)
	}
	defer rows.Close()

	r.Sheets = make([]parser.SheetResult, 0)
	for rows.Next() {
		var sh parser.SheetResult
		var status string
		if err := rows.Scan(&sh.File, &sh.Sheet, &sh.Destination, &status, &sh.Rows, &sh.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan run_sheets: %w", err)
		}
		sh.Status = parser.SheetStatus(status)
		r.Sheets = append(r.Sheets, sh)
	}
	return r, rows.Err()
}
