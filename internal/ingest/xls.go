package ingest

import (
	"fmt"

	"github.com/shakinm/xlsReader/xls"

	"analyst-agent/internal/entity"
)

// processXLS reads legacy OLE2 workbooks, which the OOXML reader cannot
// open. Sheet handling mirrors processExcel: first sheet becomes the primary
// relation, the rest contribute shape info only.
func (p *Processor) processXLS(path string) (result *entity.IngestResult) {
	// The BIFF parser can panic on truncated containers.
	defer func() {
		if r := recover(); r != nil {
			result = entity.NewFailureResult(entity.FailureParse,
				fmt.Sprintf("XLS processing failed: %v", r))
		}
	}()

	wb, err := xls.OpenFile(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("XLS processing failed: %v", err))
	}

	sheetCount := wb.GetNumberSheets()
	if sheetCount == 0 {
		return entity.NewFailureResult(entity.FailureParse, "workbook contains no sheets")
	}

	var primary *entity.Relation
	sheets := make([]entity.SheetInfo, 0, sheetCount)
	for i := 0; i < sheetCount; i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil {
			return entity.NewFailureResult(entity.FailureParse,
				fmt.Sprintf("XLS processing failed on sheet %d: %v", i, err))
		}

		rowCount := sheet.GetNumberRows()
		rows := make([][]string, 0, rowCount)
		for r := 0; r < rowCount; r++ {
			row, err := sheet.GetRow(r)
			if err != nil {
				continue
			}
			cols := row.GetCols()
			cells := make([]string, len(cols))
			for j, cell := range cols {
				cells[j] = cell.GetString()
			}
			rows = append(rows, cells)
		}

		header, data := splitSheet(rows)
		if i == 0 {
			primary = entity.NewRelationFromRecords(header, data)
		}
		sheets = append(sheets, entity.SheetInfo{
			Name:    sheet.GetName(),
			Rows:    len(data),
			Columns: len(header),
		})
	}

	return entity.NewTabularResult(primary, tabularInfo(primary, sheets))
}
