package analyst

import (
	"fmt"
	"strings"

	"analyst-agent/internal/entity"
)

const (
	// NoDataLoaded is returned by Context before any successful ingest.
	NoDataLoaded = "No data loaded"

	previewRows  = 5
	previewChars = 1000
)

// Context renders a bounded textual description of the session state for
// the AI backend. Read-only; safe to call any number of times.
func (a *Agent) Context() string {
	switch {
	case a.current == nil:
		return NoDataLoaded
	case a.current.Type == entity.ResultTabular:
		return tabularContext(a.current.Relation)
	case a.current.Type == entity.ResultDocument:
		return documentContext(a.current.Text, a.current.DocumentInfo)
	default:
		return NoDataLoaded
	}
}

func tabularContext(rel *entity.Relation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset Overview:\n")
	fmt.Fprintf(&b, "- Rows: %d\n", rel.NumRows())
	fmt.Fprintf(&b, "- Columns: %d\n", rel.NumColumns())
	fmt.Fprintf(&b, "- Column names: %s\n\n", strings.Join(rel.ColumnNames(), ", "))

	b.WriteString("Data Types:\n")
	for _, col := range rel.Columns {
		fmt.Fprintf(&b, "- %s: %s\n", col.Name, col.Type)
	}

	fmt.Fprintf(&b, "\nFirst %d rows:\n%s\n", previewRows, rel.RenderPreview(previewRows))

	if stats := rel.Describe(); stats != "" {
		fmt.Fprintf(&b, "\nBasic Statistics:\n%s\n", stats)
	}

	return b.String()
}

func documentContext(text string, info *entity.DocumentInfo) string {
	var b strings.Builder

	b.WriteString("Document Content:\n")
	fmt.Fprintf(&b, "- Word count: %d\n", info.WordCount)
	fmt.Fprintf(&b, "- Character count: %d\n\n", info.CharCount)

	preview := text
	if runes := []rune(text); len(runes) > previewChars {
		preview = string(runes[:previewChars])
	}
	fmt.Fprintf(&b, "Content preview:\n%s...", preview)

	return b.String()
}
