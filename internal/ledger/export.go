package ledger

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name of exported workbooks.
const ExportSheet = "Expenses"

var exportHeaders = []string{"Date", "Time", "Category", "Description", "Payment Method", "Amount"}

// Export writes the user's entries matching f to w as an XLSX workbook.
func (s *Service) Export(ctx context.Context, userID int64, f Filters, w io.Writer) error {
	entries, err := s.Query(ctx, userID, f)
	if err != nil {
		return err
	}

	x := excelize.NewFile()
	defer x.Close()

	index, err := x.NewSheet(ExportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	x.SetActiveSheet(index)
	if err := x.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := x.SetCellValue(ExportSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.OccurredAt.Format(DateLayout),
			e.OccurredAt.Format("15:04:05"),
			e.Category,
			e.Description,
			e.PaymentMethod,
			e.Amount.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := x.SetCellValue(ExportSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := x.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
