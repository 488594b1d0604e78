package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"analyst-agent/internal/entity"
)

func (p *Processor) processExcel(path string) *entity.IngestResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("Excel processing failed: %v", err))
	}
	defer f.Close()

	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return entity.NewFailureResult(entity.FailureParse, "workbook contains no sheets")
	}

	// All sheets are parsed; the first one becomes the primary relation and
	// the rest contribute shape info only.
	var primary *entity.Relation
	sheets := make([]entity.SheetInfo, 0, len(sheetNames))
	for i, name := range sheetNames {
		rows, err := f.GetRows(name)
		if err != nil {
			return entity.NewFailureResult(entity.FailureParse,
				fmt.Sprintf("Excel processing failed on sheet %q: %v", name, err))
		}

		header, data := splitSheet(rows)
		if i == 0 {
			primary = entity.NewRelationFromRecords(header, data)
		}
		sheets = append(sheets, entity.SheetInfo{
			Name:    name,
			Rows:    len(data),
			Columns: len(header),
		})
	}

	return entity.NewTabularResult(primary, tabularInfo(primary, sheets))
}

// splitSheet separates the header row and pads ragged data rows to the
// widest row; spreadsheet readers drop trailing empty cells. Columns beyond
// the header get placeholder names keyed by position.
func splitSheet(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(header) < width {
		header = append(header, fmt.Sprintf("Unnamed: %d", len(header)))
	}

	data := make([][]string, len(rows)-1)
	for i, row := range rows[1:] {
		padded := make([]string, width)
		copy(padded, row)
		data[i] = padded
	}
	return header, data
}
