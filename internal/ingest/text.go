package ingest

import (
	"fmt"
	"os"
	"unicode/utf8"

	"analyst-agent/internal/entity"
)

func (p *Processor) processText(path string) *entity.IngestResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("text file processing failed: %v", err))
	}
	if !utf8.Valid(raw) {
		return entity.NewFailureResult(entity.FailureParse,
			"text file processing failed: not valid UTF-8")
	}

	text := string(raw)
	info := &entity.DocumentInfo{
		WordCount: wordCount(text),
		CharCount: charCount(text),
	}
	return entity.NewDocumentResult(text, info)
}
