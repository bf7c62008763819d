package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sevencars/estimation/internal/estimate"
)

const sheetName = "Estimation"

// Excel serializes one estimation record as an XLSX workbook with a single
// sheet: the shared header row plus one data row.
func Excel(w io.Writer, record estimate.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename xlsx sheet: %w", err)
	}

	headers := estimate.Headers()
	values := record.Values()
	for i := range headers {
		headerCell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("build xlsx header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, headerCell, headers[i]); err != nil {
			return fmt.Errorf("set xlsx header cell: %w", err)
		}

		valueCell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return fmt.Errorf("build xlsx value cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, valueCell, values[i]); err != nil {
			return fmt.Errorf("set xlsx value cell: %w", err)
		}
	}

	lastColumn, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("resolve xlsx last column: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", lastColumn, 26); err != nil {
		return fmt.Errorf("set xlsx column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	return nil
}
