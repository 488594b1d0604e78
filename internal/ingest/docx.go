package ingest

import (
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/document"

	"analyst-agent/internal/entity"
)

func (p *Processor) processDOCX(path string) *entity.IngestResult {
	doc, err := document.Open(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("DOCX processing failed: %v", err))
	}
	defer doc.Close()

	// Narrative text first, in document order.
	paragraphs := doc.Paragraphs()
	var b strings.Builder
	for _, para := range paragraphs {
		for _, run := range para.Runs() {
			b.WriteString(run.Text())
		}
		b.WriteString("\n")
	}

	// Embedded tables follow, cells tab-separated, rows newline-separated.
	tables := doc.Tables()
	var tb strings.Builder
	for _, table := range tables {
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				for _, para := range cell.Paragraphs() {
					for _, run := range para.Runs() {
						tb.WriteString(run.Text())
					}
				}
				tb.WriteString("\t")
			}
			tb.WriteString("\n")
		}
	}

	text := b.String() + "\n" + tb.String()
	info := &entity.DocumentInfo{
		Paragraphs: len(paragraphs),
		Tables:     len(tables),
		WordCount:  wordCount(text),
		CharCount:  charCount(text),
	}
	return entity.NewDocumentResult(text, info)
}
