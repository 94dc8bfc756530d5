// Package export renders the expense log as a downloadable spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"smartreceipt/internal/core"
)

const sheetName = "Expenses"

var headers = []string{"Date", "Merchant", "Category", "Amount", "AI Scanned"}

// WriteXLSX writes the expenses as a workbook with a header row and one
// row per expense, newest ordering preserved from the input.
func WriteXLSX(w io.Writer, expenses []core.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, e := range expenses {
		row := i + 2
		values := []any{
			e.Date.ISO(),
			e.Merchant,
			e.Category,
			e.Amount.Dollars(),
			e.AiGenerated,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "C", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
