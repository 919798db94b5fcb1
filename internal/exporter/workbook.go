package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"
)

// WorkbookFromCSV mirrors a consolidated CSV into an xlsx workbook at
// xlsxPath, one sheet, same rows and columns. Spreadsheet users get a
// file that opens with correct cell boundaries without import wizards.
func (w *CSVWriter) WorkbookFromCSV(csvPath, xlsxPath string) error {
	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open consolidated file: %w", err)
	}
	defer file.Close()

	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rowNum := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read consolidated file: %w", err)
		}

		rowNum++
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", rowNum, err)
		}
		row := make([]interface{}, len(record))
		for i, value := range record {
			row[i] = value
		}
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
	}

	if err := workbook.SaveAs(xlsxPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("Wrote workbook",
		slog.String("source", csvPath),
		slog.String("workbook", xlsxPath),
		slog.Int("row_count", rowNum))

	return nil
}
