package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// XLSXFileName is Report_DDMM_HHMM.xlsx in the ledger time zone.
func XLSXFileName(t time.Time) string {
	return "Report_" + t.Format("0201_1504") + ".xlsx"
}

// WriteXLSX writes the report rows as a single sheet workbook.
func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	numFmt := "#,##0"
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "D1", bold); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	rows := rep.rows()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{r.Date, r.Category, r.Description, r.Amount}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(4, len(rows)+1)
		if err := f.SetCellStyle(sheetName, "D2", last, amount); err != nil {
			return fmt.Errorf("xlsx style: %w", err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 14)
	_ = f.SetColWidth(sheetName, "C", "C", 40)
	_ = f.SetColWidth(sheetName, "D", "D", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
