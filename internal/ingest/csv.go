package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"analyst-agent/internal/entity"
)

// csvEncodings is the fixed candidate order for decoding delimited text.
// ISO 8859-1 accepts any byte sequence, so the tail entries are effectively
// a terminator; the list is kept whole for explicitness.
var csvEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8", nil},
	{"latin1", charmap.ISO8859_1},
	{"iso-8859-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

func (p *Processor) processCSV(path string) *entity.IngestResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("CSV processing failed: %v", err))
	}

	text, ok := decodeWithFallback(raw)
	if !ok {
		return entity.NewFailureResult(entity.FailureParse,
			"could not read CSV file with any candidate encoding")
	}

	reader := csv.NewReader(strings.NewReader(text))
	records, err := reader.ReadAll()
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("CSV processing failed: %v", err))
	}
	if len(records) == 0 {
		return entity.NewFailureResult(entity.FailureParse, "CSV file contains no records")
	}

	rel := entity.NewRelationFromRecords(records[0], records[1:])
	return entity.NewTabularResult(rel, tabularInfo(rel, nil))
}

// decodeWithFallback tries each candidate encoding in order and returns the
// first clean decode.
func decodeWithFallback(raw []byte) (string, bool) {
	for _, candidate := range csvEncodings {
		if candidate.enc == nil {
			if utf8.Valid(raw) {
				return string(raw), true
			}
			continue
		}
		decoded, err := candidate.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		return string(decoded), true
	}
	return "", false
}

func tabularInfo(rel *entity.Relation, sheets []entity.SheetInfo) *entity.TabularInfo {
	return &entity.TabularInfo{
		Rows:         rel.NumRows(),
		Columns:      rel.NumColumns(),
		ByteEstimate: rel.ByteEstimate(),
		ColumnStats:  rel.Summaries(),
		Sheets:       sheets,
	}
}
