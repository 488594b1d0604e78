// Package ingest converts uploaded files into normalized ingest results:
// a relation for tabular sources, extracted text for documents and images,
// or a classified failure.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"analyst-agent/internal/entity"
)

// Format tags one of the supported source formats.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatXLS   Format = "xls"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatImage Format = "image"
	FormatText  Format = "text"
)

// extensionFormats is the closed dispatch table. Extensions are matched
// case-insensitively; anything absent here is unsupported.
var extensionFormats = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatExcel,
	".xls":  FormatXLS,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".txt":  FormatText,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".tiff": FormatImage,
	".bmp":  FormatImage,
}

type handlerFunc func(path string) *entity.IngestResult

// Processor dispatches files to per-format extraction routines.
type Processor struct {
	logger   *zap.Logger
	handlers map[Format]handlerFunc
}

func NewProcessor(logger *zap.Logger) *Processor {
	p := &Processor{logger: logger}
	p.handlers = map[Format]handlerFunc{
		FormatCSV:   p.processCSV,
		FormatExcel: p.processExcel,
		FormatXLS:   p.processXLS,
		FormatPDF:   p.processPDF,
		FormatDOCX:  p.processDOCX,
		FormatImage: p.processImage,
		FormatText:  p.processText,
	}
	return p
}

// Ingest converts the file at path into an IngestResult. Failures are
// returned as data, never as an error.
func (p *Processor) Ingest(path string) *entity.IngestResult {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := extensionFormats[ext]
	if !ok {
		return entity.NewFailureResult(entity.FailureUnsupportedFormat,
			fmt.Sprintf("unsupported file format: %s", ext))
	}

	if fi, err := os.Stat(path); err == nil && fi.Size() == 0 {
		return entity.NewFailureResult(entity.FailureParse, "file is empty")
	}

	result := p.handlers[format](path)

	if result.IsFailure() {
		p.logger.Warn("file ingestion failed",
			zap.String("path", path),
			zap.String("format", string(format)),
			zap.String("kind", string(result.Failure.Kind)),
			zap.String("message", result.Failure.Message),
		)
	} else {
		p.logger.Info("file ingested",
			zap.String("path", path),
			zap.String("format", string(format)),
			zap.String("result", string(result.Type)),
		)
	}

	return result
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func charCount(s string) int {
	return utf8.RuneCountInString(s)
}
