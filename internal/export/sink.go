package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sink is one destination for an exported document. Write returns where the
// document ended up (a path or a sheet range).
type Sink interface {
	Name() string
	Write(ctx context.Context, doc Document) (string, error)
}

// FileSink writes the CSV into Dir.
type FileSink struct {
	Dir string
}

func (s FileSink) Name() string { return "csv" }

func (s FileSink) Write(_ context.Context, doc Document) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.Dir, doc.Filename("csv"))
	if err := os.WriteFile(path, doc.CSV(), 0o644); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}

// XLSXSink writes the same rows as a spreadsheet, amounts as numeric cells.
type XLSXSink struct {
	Dir       string
	SheetName string
}

const defaultXLSXSheet = "Transactions"

func (s XLSXSink) Name() string { return "xlsx" }

func (s XLSXSink) Write(_ context.Context, doc Document) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	sheet := s.SheetName
	if sheet == "" {
		sheet = defaultXLSXSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return "", fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i, tx := range doc.Transactions {
		amount, _ := tx.Amount.Float64()
		row := []any{tx.FormattedDate, string(tx.Type), amount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	path := filepath.Join(s.Dir, doc.Filename("xlsx"))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save xlsx: %w", err)
	}
	return path, nil
}

// RowWriter replaces the contents of a remote sheet.
type RowWriter interface {
	ReplaceRows(ctx context.Context, rows [][]any) (string, error)
}

// SheetsSink mirrors the export into a spreadsheet through a RowWriter.
type SheetsSink struct {
	Writer RowWriter
}

func (s SheetsSink) Name() string { return "sheets" }

func (s SheetsSink) Write(ctx context.Context, doc Document) (string, error) {
	if s.Writer == nil {
		return "", fmt.Errorf("sheets sink not configured")
	}
	rows := make([][]any, 0, len(doc.Transactions)+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, r := range doc.Rows() {
		rows = append(rows, []any{r[0], r[1], r[2]})
	}
	return s.Writer.ReplaceRows(ctx, rows)
}
