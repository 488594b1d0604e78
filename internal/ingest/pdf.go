package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"analyst-agent/internal/entity"
)

func (p *Processor) processPDF(path string) (result *entity.IngestResult) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = entity.NewFailureResult(entity.FailureParse,
				fmt.Sprintf("PDF processing failed: %v", r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("PDF processing failed: %v", err))
	}
	defer f.Close()

	pages := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	text := b.String()
	info := &entity.DocumentInfo{
		Pages:     pages,
		WordCount: wordCount(text),
		CharCount: charCount(text),
	}
	return entity.NewDocumentResult(text, info)
}
