// Package export renders a session transcript into downloadable formats.
package export

import (
	"fmt"
	"strings"
	"time"

	"analyst-agent/internal/entity"
)

const baseTitle = "Analysis Transcript"

// Format names a supported export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

// ParseFormat validates a caller-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatDOCX:
		return FormatDOCX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", entity.ErrInvalidFormat, s)
	}
}

type Formatter interface {
	Format(plainText string) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format Format) (Formatter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case FormatDOCX:
		return NewDOCXFormatter(), nil
	case FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidFormat, format)
	}
}

// BuildTranscript renders the data context and conversation history as the
// plain text handed to a Formatter.
func BuildTranscript(dataContext string, history []entity.ConversationEntry) string {
	var b strings.Builder

	b.WriteString("Data Context\n------------\n")
	b.WriteString(dataContext)
	b.WriteString("\n\nConversation\n------------\n")

	if len(history) == 0 {
		b.WriteString("(no questions asked)\n")
		return b.String()
	}

	for _, e := range history {
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n",
			e.Timestamp.Format(time.RFC3339), e.Role, e.Content)
	}
	return b.String()
}
