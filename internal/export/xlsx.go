package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/zeitwerk/timeclock/internal/domain/timeentry"
)

const sheetName = "TimeEntries"

const cellTimeLayout = "2006-01-02 15:04"

var headers = []string{"Employee", "Email", "Type", "Start", "End", "Break (min)"}

// BuildWorkbook serializes the joined entries into a single-sheet xlsx
// file, newest entry first as given.
func BuildWorkbook(records []timeentry.ExportRecord) ([]byte, error) {
	f := excelize.NewFile()

	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
	}

	for i, rec := range records {
		end := ""

		if rec.End != nil {
			end = rec.End.Format(cellTimeLayout)
		}

		values := []interface{}{
			rec.EmployeeName,
			rec.Email,
			rec.EntryType,
			rec.Start.Format(cellTimeLayout),
			end,
			rec.BreakMinutes,
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()

	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	return buf.Bytes(), nil
}

// Filename returns the attachment name for an export taken at ts.
func Filename(ts time.Time) string {
	return "timeclock_export_" + ts.Format("2006-01-02") + ".xlsx"
}
